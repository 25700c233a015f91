package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing worksheets and update the local schema",
		Long: `Create every worksheet the application uses that does not exist yet, with
its default header row. With the sqlite backend the database schema is
migrated first. Existing worksheets are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			slog.Info("Preparing worksheets", "backend", app.Config.Backend)
			created, err := app.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Todas las hojas ya existen."))
				return nil
			}
			for _, name := range created {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Hoja creada: "+name))
			}
			return nil
		},
	}
}
