package cli

import (
	"context"
	"fmt"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/reports"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/validate"
	"github.com/shopspring/decimal"
)

// LineSource supplies product codes and their default prices.
type LineSource interface {
	Productos(ctx context.Context, sess *session.Session) ([]string, error)
	DefaultPrice(ctx context.Context, sess *session.Session, codigo string) (decimal.Decimal, error)
}

// CollectLines prompts for invoice lines until the product answer is left
// empty. Each accepted line is added to sess and the running total printed.
func CollectLines(ctx context.Context, p *Prompter, src LineSource, sess *session.Session) error {
	codes, err := src.Productos(ctx, sess)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return fmt.Errorf("%s: %w", "Producto_Esparrago", common.ErrNotFound)
	}

	for {
		codigo, err := p.Choose(ctx, "Producto (vacío para terminar)", codes)
		if err != nil {
			return err
		}
		if codigo == "" {
			return nil
		}

		base, err := src.DefaultPrice(ctx, sess, codigo)
		if err != nil {
			p.Println(FormatWarning(common.UserMessage(err)))
			base = decimal.Zero
		}
		cantidad, err := p.Decimal(ctx, "Cantidad", decimal.Zero)
		if err != nil {
			return err
		}
		precio, err := p.Decimal(ctx, "Precio", base)
		if err != nil {
			return err
		}

		if err := sess.AddLine(model.Line{Codigo: codigo, Cantidad: cantidad, Precio: precio}); err != nil {
			p.Println(FormatWarning(common.UserMessage(err)))
			continue
		}
		p.Println(FormatInfo("Total: " + validate.FormatCurrency(sess.RunningTotal())))
	}
}

// LinesTable renders collected lines with their totals.
func LinesTable(lines []model.Line) string {
	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			l.Codigo,
			l.Cantidad.String(),
			validate.FormatCurrency(l.Precio),
			validate.FormatCurrency(l.Total()),
		}
	}
	return reports.Table([]string{"#", "Codigo_Esparrago", "Cantidad", "Precio", "Total"}, rows)
}
