// Package lock provides the optional per-worksheet lock that serializes the
// read-check-write sequence of record writes across sessions.
package lock

import (
	"context"
	"sync"
)

// Locker acquires a named lock. The returned release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Nop never blocks. It is the default: concurrent sessions may race.
type Nop struct{}

// Acquire implements Locker.
func (Nop) Acquire(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}

// Local serializes holders of the same key within one process.
type Local struct {
	locks map[string]chan struct{}
	mu    sync.Mutex
}

// NewLocal creates an in-process keyed lock.
func NewLocal() *Local {
	return &Local{locks: make(map[string]chan struct{})}
}

// Acquire implements Locker. It honors ctx cancellation while waiting.
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
