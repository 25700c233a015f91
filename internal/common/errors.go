// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Record errors.
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// Validation errors.
	ErrInvalidFormat = errors.New("invalid format")
	ErrMissingField  = errors.New("missing required field")

	// Backend errors.
	ErrUpstream = errors.New("upstream failure")

	// Session errors.
	ErrAccessDenied = errors.New("access denied")
	ErrNotConfirmed = errors.New("deletion not confirmed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// FieldError ties a validation failure to the column that caused it.
type FieldError struct {
	Kind   error
	Field  string
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// Upstream wraps a backend failure so callers can match it with errors.Is(err, ErrUpstream).
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// UserMessage returns the Spanish message shown for an error at the surface.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		switch {
		case errors.Is(fieldErr.Kind, ErrMissingField):
			return fmt.Sprintf("El campo '%s' es obligatorio.", fieldErr.Field)
		default:
			return fmt.Sprintf("El campo '%s' no es válido.", fieldErr.Field)
		}
	}

	switch {
	case errors.Is(err, ErrDuplicateKey):
		return "El registro ya existe. La clave debe ser única."
	case errors.Is(err, ErrNotFound):
		return "Registro no encontrado."
	case errors.Is(err, ErrNotConfirmed):
		return "Debes escribir 'delete' para confirmar la eliminación."
	case errors.Is(err, ErrAccessDenied):
		return "Acceso denegado."
	case errors.Is(err, ErrMissingConfig):
		return "Configuración incompleta."
	case errors.Is(err, ErrUpstream):
		return "Ocurrió un error al comunicarse con el servicio remoto."
	default:
		return "Ocurrió un error inesperado."
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
