package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/facturas"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/reports"
	"github.com/Veraticus/esparrago/internal/service"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/validate"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func facturasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facturas",
		Short: "Capturar y consultar facturas",
	}
	cmd.AddCommand(facturasAddCmd(), facturasListCmd(), facturasDetallesCmd(), facturasBorrarDetallesCmd())
	return cmd
}

func facturasAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Capture an invoice interactively",
		Long: `Capture an invoice: header fields, then product lines with their default
prices and a running total. Nothing is written until you confirm.`,
		Args: cobra.NoArgs,
		RunE: runFacturasAdd,
	}
	cmd.Flags().String("usuario", "", "name recorded in Ingresado Por")
	cmd.Flags().String("documento", "", "invoice document to attach")
	return cmd
}

func runFacturasAdd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	app, err := loadApp(cmd, service.WithProgress(cli.Progress(cmd.ErrOrStderr(), "Guardando detalles")))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	usuario, _ := cmd.Flags().GetString("usuario")
	sess := app.Sessions.Create(usuario)

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), func() int { return len(sess.Lines()) })
	p := cli.NewPrompter(cmd.InOrStdin(), out)

	p.Println(cli.FormatTitle(cli.AppIcon + " Nueva factura"))
	in, err := facturaHeader(ctx, p, app, sess)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("documento"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read documento: %w", err)
		}
		in.Documento = &blob.Object{Name: filepath.Base(path), Data: data}
	}

	if err := cli.CollectLines(ctx, p, app.Facturas, sess); err != nil {
		return err
	}
	if len(sess.Lines()) == 0 {
		p.Println(cli.FormatWarning("Sin productos: la factura no se registró."))
		return nil
	}

	p.Println(cli.RenderBox(fmt.Sprintf("Factura %s · %s", in.NoFactura, in.Cliente), cli.LinesTable(sess.Lines())))
	ok, err := p.Confirm(ctx, fmt.Sprintf("¿Guardar la factura %s por %s?", in.NoFactura, validate.FormatCurrency(sess.RunningTotal())))
	if err != nil {
		return err
	}
	if !ok {
		p.Println(cli.FormatWarning("Factura descartada."))
		return nil
	}

	res, err := app.Facturas.Submit(ctx, sess, in)
	if err != nil {
		return err
	}
	p.Println(cli.FormatSuccess(fmt.Sprintf("Factura %s guardada con %d detalle(s).", res.Header.NoFactura, res.Details)))
	if res.Documento.WebViewLink != "" {
		p.Println(cli.FormatInfo("Documento: " + res.Documento.WebViewLink))
	}
	return nil
}

func facturaHeader(ctx context.Context, p *cli.Prompter, app *service.App, sess *session.Session) (facturas.Input, error) {
	var in facturas.Input

	for {
		raw, err := p.Ask(ctx, "Fecha (AAAA-MM-DD)", time.Now().Format(dateLayout))
		if err != nil {
			return in, err
		}
		fecha, err := time.Parse(dateLayout, raw)
		if err == nil {
			in.Fecha = fecha
			break
		}
		p.Println(cli.FormatWarning("Fecha no válida: " + raw))
	}

	for in.NoFactura == "" {
		v, err := p.Ask(ctx, model.KeyFactura, "")
		if err != nil {
			return in, err
		}
		in.NoFactura = strings.TrimSpace(v)
	}

	clientes, err := app.Facturas.Clientes(ctx, sess)
	if err != nil {
		p.Println(cli.FormatWarning(common.UserMessage(err)))
	}
	if len(clientes) > 0 {
		in.Cliente, err = p.Choose(ctx, "Cliente", clientes)
	} else {
		in.Cliente, err = p.Ask(ctx, "Cliente", "")
	}
	if err != nil {
		return in, err
	}

	in.Observaciones, err = p.Ask(ctx, "Observaciones", "")
	return in, err
}

func facturasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved invoice headers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			headers, err := app.Facturas.ListHeaders(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(headers))
			for i, h := range headers {
				rows[i] = []string{
					h.Fecha.Format(dateLayout), fmt.Sprint(h.Semana), h.NoFactura, h.Cliente,
					validate.FormatCurrency(h.Total), h.IngresadoPor,
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), reports.Table(
				[]string{"Fecha", "Semana", "No. Factura", "Cliente", "Total", "Ingresado Por"}, rows))
			return nil
		},
	}
}

func facturasDetallesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detalles [no-factura]",
		Short: "List invoice detail rows, optionally for one invoice",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			var no string
			if len(args) == 1 {
				no = args[0]
			}
			details, err := app.Facturas.ListDetails(cmd.Context(), no)
			if err != nil {
				return err
			}
			rows := make([][]string, len(details))
			for i, d := range details {
				rows[i] = []string{
					d.NoFactura, d.Codigo, d.Cantidad.String(),
					validate.FormatCurrency(d.Precio), validate.FormatCurrency(d.Total),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), reports.Table(
				[]string{"No. Factura", "Codigo_Esparrago", "Cantidad", "Precio", "Total"}, rows))
			return nil
		},
	}
}

func facturasBorrarDetallesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "borrar-detalles <no-factura>",
		Short: "Delete every detail row of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetString("confirm")
			if !strings.EqualFold(confirm, "delete") {
				return common.ErrNotConfirmed
			}

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			n, err := app.Facturas.DeleteDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%d detalle(s) eliminados de %s.", n, args[0])))
			return nil
		},
	}
	cmd.Flags().String("confirm", "", "type 'delete' to confirm")
	return cmd
}
