package main

import (
	"fmt"

	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/Veraticus/esparrago/internal/reports"
	"github.com/spf13/cobra"
)

func tablaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabla",
		Short: "Acceso directo a una hoja",
		Long: `Read or append raw rows of any worksheet. Rows are shown with the row
number they have in the sheet; the header is row 1.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ver <hoja>",
		Short: "Show every row of a worksheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			tbl, err := app.Table(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := tbl.Rows(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Hoja vacía."))
				return nil
			}

			header := append([]string{"Fila"}, rows[0]...)
			body := make([][]string, 0, len(rows)-1)
			for i, r := range rows[1:] {
				row := make([]string, len(header))
				row[0] = fmt.Sprint(i + 2)
				copy(row[1:], r)
				body = append(body, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reports.Table(header, body))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "append <hoja> <valor>...",
		Short: "Append one raw row to a worksheet",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			tbl, err := app.Table(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := tbl.AppendRow(cmd.Context(), args[1:]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Fila agregada a %s.", args[0])))
			return nil
		},
	})
	return cmd
}
