package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/esparrago/internal/cli"
	"github.com/Veraticus/esparrago/internal/config"
	"github.com/Veraticus/esparrago/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Sheets and Drive",
		Long: `Authenticate with Google using OAuth2.

This command will:
1. Open your browser to authenticate with Google
2. Save the token next to the config file
3. Store the refresh token in your config file

Not needed when a service account is configured.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback", "localhost:8080", "address for the OAuth2 callback server")
	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")
	if v, _ := cmd.Flags().GetString("client-id"); v != "" {
		clientID = v
	}
	if v, _ := cmd.Flags().GetString("client-secret"); v != "" {
		clientSecret = v
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("OAuth2 credentials not found: set sheets.client_id and sheets.client_secret (or GOOGLE_SHEETS_CLIENT_ID / GOOGLE_SHEETS_CLIENT_SECRET) or pass --client-id and --client-secret")
	}
	callback, _ := cmd.Flags().GetString("callback")

	tokenFile := filepath.Join(config.DefaultDir(), "sheets-token.json")
	slog.Info("Starting Google authentication", "token_file", tokenFile)

	token, err := sheets.AuthenticateOAuth2Interactive(ctx, sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		ListenAddr:   callback,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	viper.Set("sheets.client_id", clientID)
	viper.Set("sheets.client_secret", clientSecret)
	viper.Set("sheets.refresh_token", token.RefreshToken)

	out := cmd.OutOrStdout()
	if err := saveConfig(); err != nil {
		slog.Warn("Failed to update config file with refresh token", "error", err)
		fmt.Fprintln(out, cli.FormatWarning("No se pudo guardar el token en el archivo de configuración."))
		fmt.Fprintf(os.Stderr, "sheets:\n  refresh_token: %q\n", token.RefreshToken)
		return nil
	}
	fmt.Fprintln(out, cli.FormatSuccess("Autenticación completada."))
	return nil
}
