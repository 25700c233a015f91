package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstream(t *testing.T) {
	assert.NoError(t, Upstream("append row", nil))

	cause := errors.New("quota exceeded")
	err := Upstream("append row", cause)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "append row")

	// Wrapping twice does not stack the sentinel.
	again := Upstream("save header", err)
	assert.Equal(t, err, again)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want string
	}{
		{
			name: "duplicate key",
			err:  fmt.Errorf("Clave 'A1': %w", ErrDuplicateKey),
			want: "El registro ya existe. La clave debe ser única.",
		},
		{
			name: "not found",
			err:  fmt.Errorf("Clave 'A1': %w", ErrNotFound),
			want: "Registro no encontrado.",
		},
		{
			name: "missing field",
			err:  &FieldError{Kind: ErrMissingField, Field: "Agricultor"},
			want: "El campo 'Agricultor' es obligatorio.",
		},
		{
			name: "invalid field",
			err:  &FieldError{Kind: ErrInvalidFormat, Field: "Email"},
			want: "El campo 'Email' no es válido.",
		},
		{
			name: "explicit user error wins",
			err:  NewUserError("Ocurrió un error al guardar la factura.", ErrUpstream),
			want: "Ocurrió un error al guardar la factura.",
		},
		{
			name: "upstream",
			err:  Upstream("delete row", errors.New("boom")),
			want: "Ocurrió un error al comunicarse con el servicio remoto.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestFieldError_Unwrap(t *testing.T) {
	err := fmt.Errorf("agricultor: %w", &FieldError{Kind: ErrInvalidFormat, Field: "Telefono", Detail: "phone"})
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.NotErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "Telefono")
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("succeeds after retryable failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return &RetryableError{Err: errors.New("503"), Retryable: true}
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non retryable error", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return ErrDuplicateKey
		}, opts)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return &RetryableError{Err: errors.New("500"), Retryable: true}
		}, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 3, calls)
	})
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", lvl.String())

	_, err = ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewLogger(nil, lvl, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
