// Package session holds the per-operator state of one working session: the
// master-data access grant, the invoice lines being collected and memoized
// reference-sheet reads.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

// DefaultCacheTTL is how long reference-sheet reads are reused.
const DefaultCacheTTL = 600 * time.Second

const cacheSize = 16

// Session is one operator's working state. It is safe for concurrent use.
type Session struct {
	CreatedAt time.Time
	cache     *expirable.LRU[string, records.Snapshot]
	ID        string
	UserEmail string
	lines     []model.Line
	mu        sync.Mutex
	granted   bool
}

// New starts a session. A zero ttl uses DefaultCacheTTL.
func New(userEmail string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Session{
		ID:        uuid.NewString(),
		UserEmail: userEmail,
		CreatedAt: time.Now(),
		cache:     expirable.NewLRU[string, records.Snapshot](cacheSize, nil, ttl),
	}
}

// IngresadoPor is the name recorded on invoices entered in this session.
func (s *Session) IngresadoPor() string {
	if s.UserEmail == "" {
		return model.IngresadoPorDefault
	}
	return s.UserEmail
}

// Unlock checks input against the gate and, on success, grants master-data
// access for the rest of the session.
func (s *Session) Unlock(g *Gate, input string) error {
	if err := g.Check(input); err != nil {
		return err
	}
	s.mu.Lock()
	s.granted = true
	s.mu.Unlock()
	return nil
}

// Granted reports whether the gate was passed.
func (s *Session) Granted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted
}

// RequireAccess fails with common.ErrAccessDenied until Unlock succeeds.
func (s *Session) RequireAccess() error {
	if !s.Granted() {
		return common.ErrAccessDenied
	}
	return nil
}

// AddLine appends an invoice line. Lines without a product or with a
// non-positive quantity are rejected.
func (s *Session) AddLine(line model.Line) error {
	if line.Codigo == "" {
		return &common.FieldError{Kind: common.ErrMissingField, Field: "Codigo_Esparrago"}
	}
	if !line.Cantidad.IsPositive() {
		return &common.FieldError{Kind: common.ErrInvalidFormat, Field: "Cantidad", Detail: line.Cantidad.String()}
	}
	if line.Precio.IsNegative() {
		return &common.FieldError{Kind: common.ErrInvalidFormat, Field: "Precio", Detail: line.Precio.String()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

// RemoveLine drops the line at index i.
func (s *Session) RemoveLine(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lines) {
		return fmt.Errorf("line %d: %w", i+1, common.ErrNotFound)
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	return nil
}

// Lines returns a copy of the collected lines.
func (s *Session) Lines() []model.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

// RunningTotal is the sum of the line totals.
func (s *Session) RunningTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines() {
		total = total.Add(l.Total())
	}
	return total
}

// ClearLines empties the line list.
func (s *Session) ClearLines() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Cached returns the snapshot stored under key, calling load on a miss or
// after the entry expired. Failed loads are not cached.
func (s *Session) Cached(ctx context.Context, key string, load func(context.Context) (records.Snapshot, error)) (records.Snapshot, error) {
	if snap, ok := s.cache.Get(key); ok {
		return snap, nil
	}
	snap, err := load(ctx)
	if err != nil {
		return records.Snapshot{}, err
	}
	s.cache.Add(key, snap)
	return snap, nil
}

// Invalidate drops the cached snapshot for key.
func (s *Session) Invalidate(key string) {
	s.cache.Remove(key)
}
