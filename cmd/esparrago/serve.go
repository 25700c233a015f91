package main

import (
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/esparrago/internal/api"
	"github.com/Veraticus/esparrago/internal/certs"
	"github.com/Veraticus/esparrago/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the JSON API. With --tls a self-signed certificate for localhost and
any --host names is kept in the config directory and renewed before it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if _, err := app.Migrate(cmd.Context()); err != nil {
				return err
			}

			if viper.GetString("logging.level") != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := api.New(app, slog.Default())

			if useTLS, _ := cmd.Flags().GetBool("tls"); useTLS {
				hosts, _ := cmd.Flags().GetStringSlice("host")
				cert, err := certs.NewFileManager(filepath.Join(config.DefaultDir(), "certs"), slog.Default(), hosts...).GetOrCreateCertificate()
				if err != nil {
					return err
				}
				srv.UseTLS(cert)
			}
			return srv.Run(cmd.Context(), app.Config.Listen)
		},
	}
	cmd.Flags().String("listen", ":8080", "address to listen on")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("host", nil, "extra host names or IPs for the certificate")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	return cmd
}
