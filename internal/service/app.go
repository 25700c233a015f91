package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/config"
	"github.com/Veraticus/esparrago/internal/facturas"
	"github.com/Veraticus/esparrago/internal/lock"
	"github.com/Veraticus/esparrago/internal/maestros"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/tabular"
	"google.golang.org/api/option"
)

// App is the assembled application.
type App struct {
	Backend  Backend
	Docs     blob.Store
	Locker   lock.Locker
	Maestros *maestros.Service
	Facturas *facturas.Service
	Gate     *session.Gate
	Sessions *session.Manager
	Config   *config.App
	logger   *slog.Logger
	closers  []func() error
}

// Parts are the pieces New would otherwise build from the configuration.
type Parts struct {
	Backend Backend
	Docs    blob.Store
	Locker  lock.Locker
}

// Option adjusts the assembled services.
type Option func(*options)

type options struct {
	progress facturas.ProgressFunc
}

// WithProgress reports invoice detail-row progress.
func WithProgress(fn facturas.ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// New builds every backend named by cfg and assembles the services.
func New(ctx context.Context, cfg *config.App, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		parts   Parts
		closers []func() error
		gopts   []option.ClientOption
	)
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendSheets:
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			return fail(err)
		}
		sb, err := NewSheetsBackend(ctx, creds, cfg.MaestrosSheetID, cfg.FacturasSheetID, logger)
		if err != nil {
			return fail(err)
		}
		parts.Backend = sb
		gopts = append(gopts, option.WithHTTPClient(sb.Service.HTTPClient()))
	case config.BackendSQLite:
		sb, err := NewSQLiteBackend(cfg.SQLitePath, logger)
		if err != nil {
			return fail(err)
		}
		parts.Backend = sb
	default:
		return fail(fmt.Errorf("%w: backend %q", common.ErrInvalidConfig, cfg.Backend))
	}
	closers = append(closers, parts.Backend.Close)

	if len(gopts) == 0 && (cfg.Blob == config.BlobDrive || cfg.Blob == config.BlobGCS) {
		if creds, err := cfg.GoogleCredentials(); err == nil && creds.ServiceAccountPath != "" {
			gopts = append(gopts, option.WithCredentialsFile(creds.ServiceAccountPath))
		}
	}

	switch cfg.Blob {
	case config.BlobDrive:
		d, err := blob.NewDrive(ctx, logger, gopts...)
		if err != nil {
			return fail(err)
		}
		parts.Docs = d
	case config.BlobGCS:
		g, err := blob.NewGCS(ctx, cfg.GCSBucket, logger, gopts...)
		if err != nil {
			return fail(err)
		}
		parts.Docs = g
		closers = append(closers, g.Close)
	case config.BlobMemory:
		parts.Docs = blob.NewMemory()
	}

	switch cfg.Lock {
	case config.LockLocal:
		parts.Locker = lock.NewLocal()
	case config.LockRedis:
		r, err := lock.NewRedis(ctx, lock.RedisConfig{Addr: cfg.RedisAddr, TTL: cfg.LockTTL}, logger)
		if err != nil {
			return fail(err)
		}
		parts.Locker = r
		closers = append(closers, r.Close)
	default:
		parts.Locker = lock.Nop{}
	}

	app := Assemble(cfg, parts, logger, opts...)
	app.closers = closers
	return app, nil
}

// Assemble wires the services over already built parts.
func Assemble(cfg *config.App, parts Parts, logger *slog.Logger, opts ...Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	storeOpts := []records.Option{records.WithLocker(parts.Locker), records.WithLogger(logger)}
	if sb, ok := parts.Backend.(*SheetsBackend); ok {
		storeOpts = append(storeOpts, records.WithRetry(sb.Service.RetryOptions()))
	}
	store := records.NewStore(storeOpts...)

	m := maestros.New(parts.Backend.Maestros(), store,
		maestros.WithLogos(parts.Docs, cfg.FolderLogos),
		maestros.WithLogger(logger),
	)
	f := facturas.New(parts.Backend.Facturas(), store,
		facturas.WithDocuments(parts.Docs, cfg.FolderFacturas),
		facturas.WithReferences(m.Clientes, m.Productos),
		facturas.WithCompensation(cfg.Compensate),
		facturas.WithProgress(o.progress),
		facturas.WithLogger(logger),
	)

	return &App{
		Backend:  parts.Backend,
		Docs:     parts.Docs,
		Locker:   parts.Locker,
		Maestros: m,
		Facturas: f,
		Gate:     session.NewGate(cfg.Password),
		Sessions: session.NewManager(0, 0, cfg.CacheTTL),
		Config:   cfg,
		logger:   logger,
	}
}

// Migrate prepares the backend and creates any missing worksheet.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	return Prepare(ctx, a.Backend, maestros.Headers(), facturas.Headers(), a.logger)
}

// Table opens a worksheet by name from either workbook, master data first.
func (a *App) Table(ctx context.Context, name string) (tabular.Table, error) {
	t, err := a.Backend.Maestros().Table(ctx, name)
	if errors.Is(err, common.ErrNotFound) {
		return a.Backend.Facturas().Table(ctx, name)
	}
	return t, err
}

// Close releases every backend connection, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
