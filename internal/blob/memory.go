package blob

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps uploads in process. Tests inject failures with FailWith.
type Memory struct {
	err     error
	uploads []Object
	mu      sync.Mutex
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// Upload records obj and returns a synthetic link.
func (m *Memory) Upload(ctx context.Context, obj Object) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if err := obj.Validate(); err != nil {
		return File{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return File{}, m.err
	}

	m.uploads = append(m.uploads, obj)
	id := fmt.Sprintf("mem-%d", len(m.uploads))
	link := "https://example.invalid/view/" + id
	return File{ID: id, WebViewLink: link, ViewURL: link}, nil
}

// FailWith makes every later upload return err; nil clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Uploads returns a copy of what was stored.
func (m *Memory) Uploads() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Object(nil), m.uploads...)
}
