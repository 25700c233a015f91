package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/config"
	"github.com/Veraticus/esparrago/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
	version = "dev"
	rootCmd = newRootCmd()
)

// newApp builds the application from the loaded configuration. Tests swap it
// for an in-memory one.
var newApp = func(ctx context.Context, cfg *config.App, opts ...service.Option) (*service.App, error) {
	return service.New(ctx, cfg, slog.Default(), opts...)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "esparrago",
		Short: "🌱 Datos maestros y facturas de espárrago",
		Long: `esparrago: registro de agricultores, clientes, productos, comisiones y cajas,
captura de facturas con sus detalles, y reportes.

Los datos viven en Google Sheets o en una base SQLite local.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/esparrago/config.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: ./.env)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("backend", "", "worksheet backend (sheets, sqlite)")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("backend", cmd.PersistentFlags().Lookup("backend"))

	for _, name := range entityNames {
		cmd.AddCommand(entityCmd(name))
	}
	cmd.AddCommand(facturasCmd())
	cmd.AddCommand(reportesCmd())
	cmd.AddCommand(tablaCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(authCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(common.UserMessage(err)))
		slog.Debug("command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	var dotenv []string
	if envFile != "" {
		dotenv = append(dotenv, envFile)
	}
	if err := config.LoadDotEnv(dotenv...); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

// loadApp validates the configuration and assembles the application. The
// caller closes it.
func loadApp(cmd *cobra.Command, opts ...service.Option) (*service.App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, opts...)
}

// saveConfig writes the current settings to the config file in use, or to
// the default location.
func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = filepath.Join(config.DefaultDir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o750); err != nil {
		return err
	}
	return viper.WriteConfigAs(configFile)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s esparrago %s\n", cli.AppIcon, version)
		},
	}
}
