package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/scottpeterman/velocitycollector/internal/config"
	"github.com/scottpeterman/velocitycollector/internal/job"
	vlogger "github.com/scottpeterman/velocitycollector/internal/logger"
	"github.com/scottpeterman/velocitycollector/internal/observability"
	"github.com/scottpeterman/velocitycollector/internal/persist"
	"github.com/scottpeterman/velocitycollector/internal/resolver"
	"github.com/scottpeterman/velocitycollector/internal/store"
	"github.com/scottpeterman/velocitycollector/internal/store/sqlite"
	"github.com/scottpeterman/velocitycollector/internal/validation"
	"github.com/scottpeterman/velocitycollector/internal/vault"
)

// runtime bundles the open databases and wired collaborators a command
// needs, torn down together via close.
type runtime struct {
	cfg    *config.Config
	log    *slog.Logger
	ctx    context.Context

	inventoryDB *sql.DB
	vaultDB     *sql.DB
	templateDB  *sql.DB
	historyDB   *sql.DB

	session *vault.Session
	runner  *job.Runner

	metricsShutdown func(context.Context) error
	tracingShutdown func(context.Context) error
}

func newRuntime(ctx context.Context, cfgFile string) (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, store.Wrap(store.KindConfigError, "newRuntime", fmt.Errorf("load config: %w", err))
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := vlogger.New(vlogger.Options{Level: level, Output: os.Stderr})

	inventoryDB, err := openMigrated(cfg.InventoryDBPath, sqlite.MigrateInventory)
	if err != nil {
		return nil, err
	}
	vaultDB, err := openMigrated(cfg.VaultDBPath, sqlite.MigrateVault)
	if err != nil {
		return nil, err
	}
	templateDB, err := openMigrated(cfg.TemplatesDBPath, sqlite.MigrateTemplates)
	if err != nil {
		return nil, err
	}
	historyDB, err := openMigrated(cfg.HistoryDBPath, sqlite.MigrateHistory)
	if err != nil {
		return nil, err
	}

	credStore := sqlite.NewCredentialStore()
	session := vault.NewSession(vaultDB, credStore)

	res := resolver.New(sqlite.NewInventoryStore())
	engine := validation.New(sqlite.NewTemplateStore())
	controller := persist.NewController(sqlite.NewHistoryStore(), cfg.OutputDir)
	runner := job.New(res, engine, controller)

	_, metrics, metricsShutdown, err := observability.InitMetrics()
	if err != nil {
		closeAll(inventoryDB, vaultDB, templateDB, historyDB)
		return nil, store.Wrap(store.KindConfigError, "newRuntime", fmt.Errorf("init metrics: %w", err))
	}
	runner.SetMetrics(metrics)

	tracingShutdown, err := observability.InitTracing(ctx, "velocitycollector", cfg.OTELEndpoint)
	if err != nil {
		closeAll(inventoryDB, vaultDB, templateDB, historyDB)
		return nil, store.Wrap(store.KindConfigError, "newRuntime", fmt.Errorf("init tracing: %w", err))
	}

	return &runtime{
		cfg:             cfg,
		log:             log,
		ctx:             ctx,
		inventoryDB:     inventoryDB,
		vaultDB:         vaultDB,
		templateDB:      templateDB,
		historyDB:       historyDB,
		session:         session,
		runner:          runner,
		metricsShutdown: metricsShutdown,
		tracingShutdown: tracingShutdown,
	}, nil
}

func closeAll(dbs ...*sql.DB) {
	for _, db := range dbs {
		db.Close()
	}
}

func openMigrated(path string, migrate func(*sql.DB) error) (*sql.DB, error) {
	db, err := sqlite.OpenConnection(path)
	if err != nil {
		return nil, store.Wrap(store.KindConfigError, "openMigrated", fmt.Errorf("open %s: %w", path, err))
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, store.Wrap(store.KindConfigError, "openMigrated", fmt.Errorf("migrate %s: %w", path, err))
	}
	return db, nil
}

func (rt *runtime) unlock(password string) error {
	if password == "" {
		password = os.Getenv("VCOLLECTOR_VAULT_PASSWORD")
	}
	if password == "" {
		return store.Wrap(store.KindConfigError, "runtime.unlock", fmt.Errorf("vault password required: pass --password or set VCOLLECTOR_VAULT_PASSWORD"))
	}
	return rt.session.Unlock(rt.ctx, password)
}

func (rt *runtime) close() {
	if rt.tracingShutdown != nil {
		_ = rt.tracingShutdown(context.Background())
	}
	if rt.metricsShutdown != nil {
		_ = rt.metricsShutdown(context.Background())
	}
	rt.inventoryDB.Close()
	rt.vaultDB.Close()
	rt.templateDB.Close()
	rt.historyDB.Close()
}
