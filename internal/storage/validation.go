package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrInvalidRow      = errors.New("row number must be positive")
	ErrEmptyHeader     = errors.New("header must have at least one named column")
	ErrInvalidSheetTab = errors.New("invalid worksheet name")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRowNumber ensures a 1-based row number.
func validateRowNumber(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRow, n)
	}
	return nil
}

// validateSheetName applies the spreadsheet tab naming rules that matter here.
func validateSheetName(name string) error {
	if err := validateString(name, "worksheet"); err != nil {
		return err
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: longer than 100 characters", ErrInvalidSheetTab)
	}
	if strings.ContainsAny(name, "[]*?/\\:") {
		return fmt.Errorf("%w: %q contains one of []*?/\\:", ErrInvalidSheetTab, name)
	}
	return nil
}

// validateHeader ensures at least one non-blank column name.
func validateHeader(header []string) error {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return nil
		}
	}
	return ErrEmptyHeader
}
