package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/Veraticus/esparrago/internal/reports"
	"github.com/spf13/cobra"
)

func reportesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reportes",
		Short: "Resumen de facturas y productos",
	}
	cmd.PersistentFlags().String("xlsx", "", "also write the report to this XLSX file")

	cmd.AddCommand(&cobra.Command{
		Use:   "facturas",
		Short: "Invoice totals by client and by week",
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
			report := reports.InvoiceSummary(headers)
			fmt.Fprintln(cmd.OutOrStdout(), report.Render())
			return exportXLSX(cmd, &report, nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "productos [no-factura]",
		Short: "Quantity and total per product",
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
			report := reports.ProductSummary(details)
			fmt.Fprintln(cmd.OutOrStdout(), report.Render())
			return exportXLSX(cmd, nil, &report)
		},
	})
	return cmd
}

func exportXLSX(cmd *cobra.Command, inv *reports.InvoiceReport, prod *reports.ProductReport) error {
	path, _ := cmd.Flags().GetString("xlsx")
	if path == "" {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := reports.WriteXLSX(f, inv, prod); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Reporte guardado en "+path))
	return nil
}
