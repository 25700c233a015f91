package maestros

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/tabular"
	"github.com/Veraticus/esparrago/internal/validate"
)

// entity describes how one record type maps onto its worksheet.
type entity[T any] struct {
	// prepare fixes derived and carried-over fields before validation.
	// current is the stored row on edit and nil on add.
	prepare func(rec *T, current records.Record) error
	name    string
	sheet   string
	key     string
	columns []string
}

// Repo stores one entity type.
type Repo[T any] struct {
	svc    *Service
	entity entity[T]
}

func newRepo[T any](svc *Service, e entity[T]) *Repo[T] {
	return &Repo[T]{svc: svc, entity: e}
}

// Name returns the entity name used on the command line.
func (r *Repo[T]) Name() string { return r.entity.name }

// Sheet returns the worksheet name.
func (r *Repo[T]) Sheet() string { return r.entity.sheet }

// KeyColumn returns the unique key column.
func (r *Repo[T]) KeyColumn() string { return r.entity.key }

// Columns returns the default header.
func (r *Repo[T]) Columns() []string { return r.entity.columns }

func (r *Repo[T]) table(ctx context.Context) (tabular.Table, error) {
	return r.svc.workbook.Table(ctx, r.entity.sheet)
}

// Snapshot loads the worksheet.
func (r *Repo[T]) Snapshot(ctx context.Context) (records.Snapshot, error) {
	tbl, err := r.table(ctx)
	if err != nil {
		return records.Snapshot{}, err
	}
	return r.svc.store.Load(ctx, tbl)
}

// List decodes every row.
func (r *Repo[T]) List(ctx context.Context) ([]T, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return records.DecodeAll[T](snap)
}

// Get returns the record whose key column equals key.
func (r *Repo[T]) Get(ctx context.Context, key string) (T, error) {
	var rec T
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return rec, err
	}
	i := snap.Find(r.entity.key, key)
	if i < 0 {
		return rec, fmt.Errorf("%s %q: %w", r.entity.sheet, key, common.ErrNotFound)
	}
	err = records.Decode(snap.Records[i], &rec)
	return rec, err
}

// Add validates rec and appends it. The key must be unique.
func (r *Repo[T]) Add(ctx context.Context, rec *T) error {
	fields, err := r.encode(rec, nil)
	if err != nil {
		return err
	}

	tbl, err := r.table(ctx)
	if err != nil {
		return err
	}
	snap, err := r.svc.store.Load(ctx, tbl)
	if err != nil {
		return err
	}
	return r.svc.store.Add(ctx, snap, tbl, fields, r.entity.key)
}

// Edit validates rec and overwrites the row whose key column equals key.
func (r *Repo[T]) Edit(ctx context.Context, key string, rec *T) error {
	tbl, err := r.table(ctx)
	if err != nil {
		return err
	}
	snap, err := r.svc.store.Load(ctx, tbl)
	if err != nil {
		return err
	}
	i := snap.Find(r.entity.key, key)
	if i < 0 {
		return fmt.Errorf("%s %q: %w", r.entity.sheet, key, common.ErrNotFound)
	}

	fields, err := r.encode(rec, snap.Records[i])
	if err != nil {
		return err
	}
	return r.svc.store.Edit(ctx, snap, tbl, r.entity.key, key, fields)
}

// Delete removes the row for key once confirm reads "delete".
func (r *Repo[T]) Delete(ctx context.Context, key, confirm string) error {
	if !validate.Confirmed(confirm) {
		return fmt.Errorf("delete %s %q: %w", r.entity.sheet, key, common.ErrNotConfirmed)
	}

	tbl, err := r.table(ctx)
	if err != nil {
		return err
	}
	snap, err := r.svc.store.Load(ctx, tbl)
	if err != nil {
		return err
	}
	return r.svc.store.Delete(ctx, snap, tbl, r.entity.key, key)
}

// Parse turns a raw form into a typed record. Currency and percentage inputs
// must be present and numeric.
func (r *Repo[T]) Parse(form records.Record) (T, error) {
	var rec T
	clean := make(records.Record, len(form))
	for k, v := range form {
		clean[k] = strings.TrimSpace(v)
	}

	formats := records.Formats(&rec)
	for _, col := range r.entity.columns {
		raw := clean[col]
		switch formats[col] {
		case records.FormatCurrency:
			if !validate.Currency(raw) {
				return rec, &common.FieldError{Kind: common.ErrInvalidFormat, Field: col, Detail: raw}
			}
		case records.FormatPercent:
			if !validate.Percentage(raw) {
				return rec, &common.FieldError{Kind: common.ErrInvalidFormat, Field: col, Detail: raw}
			}
		}
	}

	if err := records.Decode(clean, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// AddForm parses and adds a raw form. The key column must be filled in.
func (r *Repo[T]) AddForm(ctx context.Context, form records.Record) error {
	if !validate.Required(form[r.entity.key]) {
		return &common.FieldError{Kind: common.ErrMissingField, Field: r.entity.key}
	}
	rec, err := r.Parse(form)
	if err != nil {
		return err
	}
	return r.Add(ctx, &rec)
}

// EditForm parses a raw form and edits the row for key.
func (r *Repo[T]) EditForm(ctx context.Context, key string, form records.Record) error {
	rec, err := r.Parse(form)
	if err != nil {
		return err
	}
	return r.Edit(ctx, key, &rec)
}

func (r *Repo[T]) encode(rec *T, current records.Record) (records.Record, error) {
	if r.entity.prepare != nil {
		if err := r.entity.prepare(rec, current); err != nil {
			return nil, err
		}
	}
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}
	return records.Encode(rec)
}
