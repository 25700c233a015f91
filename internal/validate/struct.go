package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Validator returns the shared struct validator with the worksheet predicates
// registered as tags: email_loose, phone, currency, numeric_str, percentage.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report the worksheet column name rather than the Go field name.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("col"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		must(v.RegisterValidation("email_loose", stringRule(Email)))
		must(v.RegisterValidation("phone", stringRule(Phone)))
		must(v.RegisterValidation("currency", stringRule(Currency)))
		must(v.RegisterValidation("numeric_str", stringRule(Numeric)))
		must(v.RegisterValidation("percentage", stringRule(Percentage)))
		must(v.RegisterValidation("notblank", stringRule(Required)))

		instance = v
	})
	return instance
}

// Struct validates a tagged record and converts the first violation into a
// common.FieldError carrying the column name.
func Struct(record any) error {
	err := Validator().Struct(record)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidFormat, err)
	}

	fe := verrs[0]
	kind := common.ErrInvalidFormat
	if fe.Tag() == "required" || fe.Tag() == "notblank" {
		kind = common.ErrMissingField
	}
	return &common.FieldError{Kind: kind, Field: fe.Field(), Detail: fe.Tag()}
}

func stringRule(pred func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return pred(fl.Field().String())
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
