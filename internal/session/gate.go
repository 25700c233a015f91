package session

import (
	"crypto/subtle"
	"fmt"

	"github.com/Veraticus/esparrago/internal/common"
)

// Gate guards master-data management with a shared password.
type Gate struct {
	secret string
}

// NewGate creates a gate for secret. An empty secret refuses everyone.
func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// Check compares input with the secret in constant time.
func (g *Gate) Check(input string) error {
	if g == nil || g.secret == "" {
		return fmt.Errorf("maestros password: %w", common.ErrMissingConfig)
	}
	if input == "" || subtle.ConstantTimeCompare([]byte(input), []byte(g.secret)) != 1 {
		return common.ErrAccessDenied
	}
	return nil
}
