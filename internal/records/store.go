package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/lock"
	"github.com/Veraticus/esparrago/internal/tabular"
)

// Add appends fields as a new row ordered by the snapshot header. When keyColumn
// is set and fields[keyColumn] already appears in that column, Add fails with
// common.ErrDuplicateKey and writes nothing. An empty keyColumn appends unchecked.
func Add(ctx context.Context, snap Snapshot, table tabular.Table, fields Record, keyColumn string) error {
	if err := requireHeader(snap, table); err != nil {
		return err
	}

	if keyColumn != "" {
		key := fields[keyColumn]
		if snap.Find(keyColumn, key) >= 0 {
			return fmt.Errorf("%s %s=%q: %w", table.Name(), keyColumn, key, common.ErrDuplicateKey)
		}
	}

	if err := table.AppendRow(ctx, snap.Values(fields)); err != nil {
		return fmt.Errorf("append to %s: %w", table.Name(), err)
	}
	return nil
}

// Edit overwrites the whole row whose keyColumn equals keyValue. Columns missing
// from fields are written blank. Fails with common.ErrNotFound and writes nothing
// when no row matches.
func Edit(ctx context.Context, snap Snapshot, table tabular.Table, keyColumn, keyValue string, fields Record) error {
	i := snap.Find(keyColumn, keyValue)
	if i < 0 {
		return fmt.Errorf("%s %s=%q: %w", table.Name(), keyColumn, keyValue, common.ErrNotFound)
	}

	if err := table.UpdateRow(ctx, RowNumber(i), snap.Values(fields)); err != nil {
		return fmt.Errorf("update %s row %d: %w", table.Name(), RowNumber(i), err)
	}
	return nil
}

// Delete removes the single row whose keyColumn equals keyValue.
func Delete(ctx context.Context, snap Snapshot, table tabular.Table, keyColumn, keyValue string) error {
	i := snap.Find(keyColumn, keyValue)
	if i < 0 {
		return fmt.Errorf("%s %s=%q: %w", table.Name(), keyColumn, keyValue, common.ErrNotFound)
	}

	if err := table.DeleteRow(ctx, RowNumber(i)); err != nil {
		return fmt.Errorf("delete %s row %d: %w", table.Name(), RowNumber(i), err)
	}
	return nil
}

// DeleteByColumn reloads the worksheet and removes every row whose column equals
// value, returning how many were removed. Rows are deleted from the bottom up so
// the row numbers still to be deleted do not shift.
func DeleteByColumn(ctx context.Context, table tabular.Table, column, value string) (int, error) {
	snap, err := Load(ctx, table)
	if err != nil {
		return 0, err
	}
	if !snap.HasColumn(column) {
		return 0, fmt.Errorf("%s: column %q not found: %w", table.Name(), column, common.ErrNotFound)
	}

	deleted := 0
	for i := snap.Len() - 1; i >= 0; i-- {
		if snap.Records[i][column] != value {
			continue
		}
		if err := table.DeleteRow(ctx, RowNumber(i)); err != nil {
			return deleted, fmt.Errorf("delete %s row %d: %w", table.Name(), RowNumber(i), err)
		}
		deleted++
	}
	return deleted, nil
}

// Store runs record operations with an optional per-worksheet lock, retried
// reads and logging. The zero value is not usable; call NewStore.
type Store struct {
	locker lock.Locker
	logger *slog.Logger
	retry  common.RetryOptions
	locked bool
}

// Option configures a Store.
type Option func(*Store)

// WithLocker serializes writes per worksheet. Inside the lock the snapshot is
// re-read so uniqueness and row positions are checked against current data.
func WithLocker(l lock.Locker) Option {
	return func(s *Store) {
		if l == nil {
			return
		}
		if _, nop := l.(lock.Nop); nop {
			return
		}
		s.locker = l
		s.locked = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetry sets the retry policy for whole-table reads. Writes are never retried.
func WithRetry(opts common.RetryOptions) Option {
	return func(s *Store) {
		s.retry = opts
	}
}

// NewStore creates a Store. Without WithLocker writes are not serialized.
func NewStore(opts ...Option) *Store {
	s := &Store{
		locker: lock.Nop{},
		logger: slog.Default(),
		retry: common.RetryOptions{
			MaxAttempts: 3,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locked reports whether writes hold a per-worksheet lock.
func (s *Store) Locked() bool {
	return s.locked
}

// Load reads the worksheet, retrying retryable upstream failures.
func (s *Store) Load(ctx context.Context, table tabular.Table) (Snapshot, error) {
	var snap Snapshot
	err := common.WithRetry(ctx, func() error {
		var err error
		snap, err = Load(ctx, table)
		return err
	}, s.retry)
	if err != nil {
		return Snapshot{}, err
	}
	s.logger.Debug("loaded worksheet", "worksheet", table.Name(), "rows", snap.Len())
	return snap, nil
}

// Add is Add under the store's lock.
func (s *Store) Add(ctx context.Context, snap Snapshot, table tabular.Table, fields Record, keyColumn string) error {
	return s.write(ctx, snap, table, func(snap Snapshot) error {
		if err := Add(ctx, snap, table, fields, keyColumn); err != nil {
			return err
		}
		s.logger.Info("row added", "worksheet", table.Name(), "key", fields[keyColumn])
		return nil
	})
}

// Edit is Edit under the store's lock.
func (s *Store) Edit(ctx context.Context, snap Snapshot, table tabular.Table, keyColumn, keyValue string, fields Record) error {
	return s.write(ctx, snap, table, func(snap Snapshot) error {
		if err := Edit(ctx, snap, table, keyColumn, keyValue, fields); err != nil {
			return err
		}
		s.logger.Info("row updated", "worksheet", table.Name(), "key", keyValue)
		return nil
	})
}

// Delete is Delete under the store's lock.
func (s *Store) Delete(ctx context.Context, snap Snapshot, table tabular.Table, keyColumn, keyValue string) error {
	return s.write(ctx, snap, table, func(snap Snapshot) error {
		if err := Delete(ctx, snap, table, keyColumn, keyValue); err != nil {
			return err
		}
		s.logger.Info("row deleted", "worksheet", table.Name(), "key", keyValue)
		return nil
	})
}

// DeleteByColumn is DeleteByColumn under the store's lock.
func (s *Store) DeleteByColumn(ctx context.Context, table tabular.Table, column, value string) (int, error) {
	release, err := s.locker.Acquire(ctx, table.Name())
	if err != nil {
		return 0, fmt.Errorf("lock %s: %w", table.Name(), err)
	}
	defer release()

	n, err := DeleteByColumn(ctx, table, column, value)
	if n > 0 {
		s.logger.Info("rows deleted", "worksheet", table.Name(), "column", column, "value", value, "count", n)
	}
	return n, err
}

func (s *Store) write(ctx context.Context, snap Snapshot, table tabular.Table, fn func(Snapshot) error) error {
	release, err := s.locker.Acquire(ctx, table.Name())
	if err != nil {
		return fmt.Errorf("lock %s: %w", table.Name(), err)
	}
	defer release()

	if s.locked {
		if snap, err = s.Load(ctx, table); err != nil {
			return err
		}
	}
	return fn(snap)
}
