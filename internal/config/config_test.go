package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	for key, aliases := range envAliases {
		t.Setenv(envName(key), "")
		for _, a := range aliases {
			t.Setenv(a, "")
		}
	}
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_PlainEnvNames(t *testing.T) {
	v := newViper(t)
	t.Setenv("SHEET_ID", "maestros-id")
	t.Setenv("INGRESAR_DATOS_SHEET_ID", "facturas-id")
	t.Setenv("FOLDER_ID_FACTURAS", "folder-f")
	t.Setenv("FOLDER_ID_CLIENTES_LOGOS", "folder-l")
	t.Setenv("MAESTROS_PASSWORD", "secreto")

	app, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "maestros-id", app.MaestrosSheetID)
	assert.Equal(t, "facturas-id", app.FacturasSheetID)
	assert.Equal(t, "folder-f", app.FolderFacturas)
	assert.Equal(t, "folder-l", app.FolderLogos)
	assert.Equal(t, "secreto", app.Password)

	assert.Equal(t, BackendSheets, app.Backend)
	assert.Equal(t, BlobDrive, app.Blob)
	assert.Equal(t, LockLocal, app.Lock)
	assert.Equal(t, session.DefaultCacheTTL, app.CacheTTL)
	assert.False(t, app.Compensate)
	assert.Equal(t, 3, app.Sheets.RetryAttempts)
	assert.True(t, app.NeedsGoogle())
}

func TestLoad_PrefixedWins(t *testing.T) {
	v := newViper(t)
	t.Setenv("SHEET_ID", "plain")
	t.Setenv("ESPARRAGO_MAESTROS_SHEET_ID", "prefixed")
	t.Setenv("INGRESAR_DATOS_SHEET_ID", "facturas-id")
	t.Setenv("ESPARRAGO_FACTURAS_COMPENSATE", "true")
	t.Setenv("ESPARRAGO_CACHE_TTL", "90s")

	app, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "prefixed", app.MaestrosSheetID)
	assert.True(t, app.Compensate)
	assert.Equal(t, 90*time.Second, app.CacheTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: sqlite
sqlite:
  path: `+filepath.Join(dir, "data.db")+`
blob:
  backend: memory
lock:
  backend: none
logging:
  format: json
`), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	app, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, app.Backend)
	assert.Equal(t, filepath.Join(dir, "data.db"), app.SQLitePath)
	assert.Equal(t, BlobMemory, app.Blob)
	assert.Equal(t, LockNone, app.Lock)
	assert.Equal(t, "json", app.LogFormat)
	assert.False(t, app.NeedsGoogle())
}

func TestApp_Validate(t *testing.T) {
	valid := func() App {
		return App{
			Backend:         BackendSheets,
			MaestrosSheetID: "m",
			FacturasSheetID: "f",
			Blob:            BlobDrive,
			Lock:            LockLocal,
			LogLevel:        "info",
			LogFormat:       "console",
		}
	}

	tests := []struct {
		wantErr error
		mutate  func(*App)
		name    string
	}{
		{name: "valid", mutate: func(*App) {}},
		{name: "missing sheet ids", mutate: func(a *App) { a.FacturasSheetID = "" }, wantErr: common.ErrMissingConfig},
		{name: "unknown backend", mutate: func(a *App) { a.Backend = "excel" }, wantErr: common.ErrInvalidConfig},
		{name: "sqlite without path", mutate: func(a *App) { a.Backend = BackendSQLite; a.SQLitePath = "" }, wantErr: common.ErrMissingConfig},
		{name: "gcs without bucket", mutate: func(a *App) { a.Blob = BlobGCS }, wantErr: common.ErrMissingConfig},
		{name: "gcs with bucket", mutate: func(a *App) { a.Blob = BlobGCS; a.GCSBucket = "facturas" }},
		{name: "unknown blob", mutate: func(a *App) { a.Blob = "s3" }, wantErr: common.ErrInvalidConfig},
		{name: "redis without addr", mutate: func(a *App) { a.Lock = LockRedis }, wantErr: common.ErrMissingConfig},
		{name: "redis with addr", mutate: func(a *App) { a.Lock = LockRedis; a.RedisAddr = "localhost:6379" }},
		{name: "unknown lock", mutate: func(a *App) { a.Lock = "etcd" }, wantErr: common.ErrInvalidConfig},
		{name: "bad level", mutate: func(a *App) { a.LogLevel = "loud" }, wantErr: common.ErrInvalidConfig},
		{name: "bad format", mutate: func(a *App) { a.LogFormat = "xml" }, wantErr: common.ErrInvalidConfig},
		{name: "negative ttl", mutate: func(a *App) { a.CacheTTL = -time.Second }, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := valid()
			tt.mutate(&app)
			err := app.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApp_GoogleCredentials(t *testing.T) {
	newViper(t)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/keys/adc.json")

	app := App{}
	app.Sheets.ClientID = "only-id"
	c, err := app.GoogleCredentials()
	require.NoError(t, err)
	assert.Equal(t, "/keys/adc.json", c.ServiceAccountPath)

	app = App{}
	app.Sheets.ServiceAccountPath = "/keys/sa.json"
	c, err = app.GoogleCredentials()
	require.NoError(t, err)
	assert.Equal(t, "/keys/sa.json", c.ServiceAccountPath)
}

func TestLoadDotEnv(t *testing.T) {
	const probe = "ESPARRAGO_DOTENV_PROBE"
	require.NoError(t, os.Unsetenv(probe))
	t.Cleanup(func() { _ = os.Unsetenv(probe) })

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(probe+"=desde-env\n"), 0o600))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "desde-env", os.Getenv(probe))
}

func TestLoadDotEnv_ExistingWins(t *testing.T) {
	t.Setenv("MAESTROS_PASSWORD", "del-entorno")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MAESTROS_PASSWORD=desde-archivo\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "del-entorno", os.Getenv("MAESTROS_PASSWORD"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("ESPARRAGO_TEST_DIR", "/srv/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "x.db"), ExpandPath("~/x.db"))
	assert.Equal(t, "/srv/data/x.db", ExpandPath("$ESPARRAGO_TEST_DIR/x.db"))
}
