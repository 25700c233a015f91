package maestros

import (
	"context"
	"fmt"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/validate"
	"github.com/shopspring/decimal"
)

const columnPrecioBase = "Precio Factura Base"

// Productos adds price lookups to the product repository.
type Productos struct {
	*Repo[model.Producto]
}

// BasePrice returns the default invoice unit price of a product.
func (p *Productos) BasePrice(ctx context.Context, codigo string) (decimal.Decimal, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return BasePrice(snap, codigo)
}

// BasePrice reads Precio Factura Base for codigo from a loaded product sheet.
func BasePrice(snap records.Snapshot, codigo string) (decimal.Decimal, error) {
	i := snap.Find(model.KeyProducto, codigo)
	if i < 0 {
		return decimal.Zero, fmt.Errorf("producto %q: %w", codigo, common.ErrNotFound)
	}

	raw := snap.Records[i][columnPrecioBase]
	price, err := validate.ParseCurrency(raw)
	if err != nil {
		return decimal.Zero, &common.FieldError{Kind: common.ErrInvalidFormat, Field: columnPrecioBase, Detail: raw}
	}
	return price, nil
}
