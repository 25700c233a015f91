// Package config loads the application settings from the config file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/sheets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every setting's environment variable.
const EnvPrefix = "ESPARRAGO"

// Backends.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"

	BlobDrive  = "drive"
	BlobGCS    = "gcs"
	BlobMemory = "memory"

	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

// App is the validated application configuration.
type App struct {
	Sheets          sheets.Config
	MaestrosSheetID string
	FacturasSheetID string
	FolderFacturas  string
	FolderLogos     string
	Password        string
	Backend         string
	SQLitePath      string
	Blob            string
	GCSBucket       string
	Lock            string
	RedisAddr       string
	Listen          string
	LogLevel        string
	LogFormat       string
	LockTTL         time.Duration
	CacheTTL        time.Duration
	Compensate      bool
}

// envAliases are the plain variable names accepted alongside the prefixed
// ones.
var envAliases = map[string][]string{
	"maestros.sheet_id":           {"SHEET_ID"},
	"facturas.sheet_id":           {"INGRESAR_DATOS_SHEET_ID"},
	"facturas.folder_id":          {"FOLDER_ID_FACTURAS"},
	"clientes.logos_folder_id":    {"FOLDER_ID_CLIENTES_LOGOS"},
	"maestros.password":           {"MAESTROS_PASSWORD"},
	"sheets.service_account_path": {"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"},
	"sheets.client_id":            {"GOOGLE_SHEETS_CLIENT_ID"},
	"sheets.client_secret":        {"GOOGLE_SHEETS_CLIENT_SECRET"},
	"sheets.refresh_token":        {"GOOGLE_SHEETS_REFRESH_TOKEN"},
	"lock.redis_addr":             {"REDIS_ADDR"},
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSheets)
	v.SetDefault("sqlite.path", filepath.Join(DefaultDir(), "esparrago.db"))
	v.SetDefault("blob.backend", BlobDrive)
	v.SetDefault("lock.backend", LockLocal)
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("facturas.compensate", false)
	v.SetDefault("cache.ttl", session.DefaultCacheTTL)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("sheets.value_input_option", sheets.InputRaw)
	v.SetDefault("sheets.retry_attempts", 3)
	v.SetDefault("sheets.retry_delay", time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(ExpandPath(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads App from v and validates it.
func Load(v *viper.Viper) (*App, error) {
	app := &App{
		MaestrosSheetID: v.GetString("maestros.sheet_id"),
		FacturasSheetID: v.GetString("facturas.sheet_id"),
		FolderFacturas:  v.GetString("facturas.folder_id"),
		FolderLogos:     v.GetString("clientes.logos_folder_id"),
		Password:        v.GetString("maestros.password"),
		Backend:         strings.ToLower(v.GetString("backend")),
		SQLitePath:      ExpandPath(v.GetString("sqlite.path")),
		Blob:            strings.ToLower(v.GetString("blob.backend")),
		GCSBucket:       v.GetString("blob.gcs_bucket"),
		Lock:            strings.ToLower(v.GetString("lock.backend")),
		RedisAddr:       v.GetString("lock.redis_addr"),
		LockTTL:         v.GetDuration("lock.ttl"),
		Compensate:      v.GetBool("facturas.compensate"),
		CacheTTL:        v.GetDuration("cache.ttl"),
		Listen:          v.GetString("server.listen"),
		LogLevel:        v.GetString("logging.level"),
		LogFormat:       v.GetString("logging.format"),
	}

	app.Sheets = sheets.DefaultConfig()
	app.Sheets.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	app.Sheets.ClientID = v.GetString("sheets.client_id")
	app.Sheets.ClientSecret = v.GetString("sheets.client_secret")
	app.Sheets.RefreshToken = v.GetString("sheets.refresh_token")
	app.Sheets.ValueInputOption = v.GetString("sheets.value_input_option")
	app.Sheets.RetryAttempts = v.GetInt("sheets.retry_attempts")
	app.Sheets.RetryDelay = v.GetDuration("sheets.retry_delay")

	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// NeedsGoogle reports whether any configured backend talks to Google.
func (a *App) NeedsGoogle() bool {
	return a.Backend == BackendSheets || a.Blob == BlobDrive || a.Blob == BlobGCS
}

// Validate checks the settings that the selected backends depend on.
func (a *App) Validate() error {
	if _, err := common.ParseLevel(a.LogLevel); err != nil {
		return err
	}
	switch a.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, a.LogFormat)
	}

	switch a.Backend {
	case BackendSheets:
		if a.MaestrosSheetID == "" || a.FacturasSheetID == "" {
			return fmt.Errorf("%w: SHEET_ID and INGRESAR_DATOS_SHEET_ID are required for the sheets backend", common.ErrMissingConfig)
		}
	case BackendSQLite:
		if a.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite.path", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: backend %q", common.ErrInvalidConfig, a.Backend)
	}

	switch a.Blob {
	case BlobDrive, BlobMemory:
	case BlobGCS:
		if a.GCSBucket == "" {
			return fmt.Errorf("%w: blob.gcs_bucket", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: blob backend %q", common.ErrInvalidConfig, a.Blob)
	}

	switch a.Lock {
	case LockNone, LockLocal:
	case LockRedis:
		if a.RedisAddr == "" {
			return fmt.Errorf("%w: lock.redis_addr", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: lock backend %q", common.ErrInvalidConfig, a.Lock)
	}

	if a.CacheTTL < 0 || a.LockTTL < 0 {
		return fmt.Errorf("%w: durations cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// GoogleCredentials completes the Sheets credentials from the standard
// locations when none were configured, then validates them.
func (a *App) GoogleCredentials() (sheets.Config, error) {
	c := a.Sheets
	if c.ServiceAccountPath == "" && (c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "") {
		if err := c.LoadFromEnv(); err != nil {
			return c, err
		}
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// DefaultDir is where the config file and local database live.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".esparrago"
	}
	return filepath.Join(home, ".config", "esparrago")
}

// ExpandPath expands a leading ~ and $VAR references.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~" || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
