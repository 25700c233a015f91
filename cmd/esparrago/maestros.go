package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/maestros"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/reports"
	"github.com/Veraticus/esparrago/internal/service"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/spf13/cobra"
)

var entityNames = []string{
	maestros.NameAgricultores,
	maestros.NameClientes,
	maestros.NameProductos,
	maestros.NameComisiones,
	maestros.NameCajas,
}

var entityShort = map[string]string{
	maestros.NameAgricultores: "Administrar agricultores",
	maestros.NameClientes:     "Administrar clientes",
	maestros.NameProductos:    "Administrar productos de espárrago",
	maestros.NameComisiones:   "Administrar comisiones",
	maestros.NameCajas:        "Administrar costos de cajas",
}

// columnOptions are offered as numbered choices instead of free text.
var columnOptions = map[string][]string{
	"TipoCaja":          model.TiposCaja,
	"Primeras/Segundas": model.PrimerasSegunda,
	"Cajas":             model.Cajas,
}

// derived columns are maintained by the service, never typed in.
var derived = map[string][]string{
	maestros.NameAgricultores: {"Orden"},
	maestros.NameCajas:        {"Totales"},
}

func entityCmd(name string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: entityShort[name],
	}
	cmd.PersistentFlags().String("password", "", "master-data password (prompted when omitted)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEntity(cmd, name, func(ctx context.Context, _ *service.App, m maestros.Manager, _ *cli.Prompter) error {
				snap, err := m.Snapshot(ctx)
				if err != nil {
					return err
				}
				if snap.Len() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Sin registros."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), reports.Table(m.Columns(), snapshotRows(m.Columns(), snap)))
				return nil
			})
		},
	})

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a record interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEntity(cmd, name, func(ctx context.Context, app *service.App, m maestros.Manager, p *cli.Prompter) error {
				form, err := entityForm(ctx, p, m, nil, derived[name]...)
				if err != nil {
					return err
				}
				if err := attachLogo(ctx, cmd, app, form); err != nil {
					return err
				}
				if err := m.AddForm(ctx, form); err != nil {
					return err
				}
				p.Println(cli.FormatSuccess(fmt.Sprintf("Registro '%s' agregado.", form[m.KeyColumn()])))
				return nil
			})
		},
	}

	edit := &cobra.Command{
		Use:   "edit <key>",
		Short: "Edit the record with the given key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEntity(cmd, name, func(ctx context.Context, app *service.App, m maestros.Manager, p *cli.Prompter) error {
				snap, err := m.Snapshot(ctx)
				if err != nil {
					return err
				}
				i := snap.Find(m.KeyColumn(), args[0])
				if i < 0 {
					return fmt.Errorf("%s %q: %w", name, args[0], common.ErrNotFound)
				}

				skip := slices.Clone(derived[name])
				if name == maestros.NameClientes {
					skip = append(skip, model.KeyCliente)
				}
				form, err := entityForm(ctx, p, m, snap.Records[i], skip...)
				if err != nil {
					return err
				}
				if err := attachLogo(ctx, cmd, app, form); err != nil {
					return err
				}
				if err := m.EditForm(ctx, args[0], form); err != nil {
					return err
				}
				p.Println(cli.FormatSuccess(fmt.Sprintf("Registro '%s' actualizado.", args[0])))
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete the record with the given key",
		Long:  `Delete a record. Pass --confirm delete, or type it when asked.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEntity(cmd, name, func(ctx context.Context, _ *service.App, m maestros.Manager, p *cli.Prompter) error {
				confirm, _ := cmd.Flags().GetString("confirm")
				if confirm == "" {
					var err error
					confirm, err = p.Ask(ctx, fmt.Sprintf("Escribe 'delete' para eliminar '%s'", args[0]), "")
					if err != nil {
						return err
					}
				}
				if err := m.Delete(ctx, args[0], confirm); err != nil {
					return err
				}
				p.Println(cli.FormatSuccess(fmt.Sprintf("Registro '%s' eliminado.", args[0])))
				return nil
			})
		},
	}
	del.Flags().String("confirm", "", "type 'delete' to confirm")

	if name == maestros.NameClientes {
		add.Flags().String("logo", "", "image file uploaded as the client's Icono")
		edit.Flags().String("logo", "", "image file uploaded as the client's Icono")
	}

	cmd.AddCommand(add, edit, del)
	return cmd
}

// withEntity opens the app, passes the password gate and resolves the entity.
func withEntity(cmd *cobra.Command, name string, fn func(context.Context, *service.App, maestros.Manager, *cli.Prompter) error) error {
	ctx := cmd.Context()
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	sess := app.Sessions.Create("")
	if err := unlock(cmd, app, sess); err != nil {
		return err
	}

	m, err := app.Maestros.Manager(name)
	if err != nil {
		return err
	}
	return fn(ctx, app, m, cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
}

func unlock(cmd *cobra.Command, app *service.App, sess *session.Session) error {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		password, err = cli.ReadPassword(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), "Contraseña de datos maestros")
		if err != nil {
			return err
		}
	}
	return sess.Unlock(app.Gate, password)
}

func entityForm(ctx context.Context, p *cli.Prompter, m maestros.Manager, current records.Record, skip ...string) (records.Record, error) {
	var free []string
	for _, col := range m.Columns() {
		if _, ok := columnOptions[col]; !ok {
			free = append(free, col)
		}
	}
	form, err := p.Form(ctx, free, current, skip...)
	if err != nil {
		return nil, err
	}

	for _, col := range m.Columns() {
		options, ok := columnOptions[col]
		if !ok {
			continue
		}
		choice, err := p.Choose(ctx, col, options)
		if err != nil {
			return nil, err
		}
		if choice == "" {
			choice = current[col]
		}
		form[col] = choice
	}
	return form, nil
}

func attachLogo(ctx context.Context, cmd *cobra.Command, app *service.App, form records.Record) error {
	if cmd.Flags().Lookup("logo") == nil {
		return nil
	}
	path, _ := cmd.Flags().GetString("logo")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read logo: %w", err)
	}
	url, err := app.Maestros.Clientes.UploadLogo(ctx, maestros.Logo{Name: path, Data: data})
	if err != nil {
		return err
	}
	form["Icono"] = url
	return nil
}

func snapshotRows(columns []string, snap records.Snapshot) [][]string {
	rows := make([][]string, len(snap.Records))
	for i, rec := range snap.Records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = rec[col]
		}
		rows[i] = row
	}
	return rows
}
