package main

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/feed-timeline/internal/config"
	"github.com/lepinkainen/feed-timeline/pkg/aggregator"
	"github.com/lepinkainen/feed-timeline/pkg/cache"
	"github.com/lepinkainen/feed-timeline/pkg/database"
	"github.com/lepinkainen/feed-timeline/pkg/http"
	"github.com/lepinkainen/feed-timeline/pkg/plugin"
	"github.com/lepinkainen/feed-timeline/pkg/render"
	"github.com/lepinkainen/feed-timeline/pkg/settings"
)

const timelineTable = "timeline_cache"

// app holds the components every command shares
type app struct {
	cfg *config.Config

	db         *database.Database
	store      settings.Store
	fileStore  *settings.FileStore
	cacheStore *cache.DatabaseStore

	engine *aggregator.Engine
	cache  *cache.RefreshCache
	html   *render.HTMLRenderer
	plugin *plugin.Aggregator
}

// newApp wires the components described by cfg
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.NeedsDatabase() {
		opts := cfg.DatabaseOptions()
		created := opts.Driver == database.DriverSQLite && !database.DatabaseExists(opts.Path)

		db, err := database.NewDatabase(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		if created {
			slog.Info("Created database", "path", opts.Path)
		}
	}

	if err := a.openSettings(); err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := cache.Options{MaxEntries: cfg.Cache.MaxEntries}
	if cfg.Cache.Persist {
		store, err := cache.NewDatabaseStore(a.db, timelineTable)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.cacheStore = store
		opts.Store = store
	}

	html, err := render.NewHTMLRenderer()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	a.html = html

	a.engine = aggregator.NewEngine(http.NewClient(cfg.HTTPClient()), cfg.Engine())
	a.cache = cache.New(a.engine, opts)
	a.plugin = plugin.NewAggregator(plugin.Config{
		Store:    a.store,
		Cache:    a.cache,
		HTML:     a.html,
		TTL:      cfg.Cache.TTL,
		AssetURL: cfg.Server.AssetURL,
	})

	slog.Debug("Application initialized",
		"settings", cfg.Settings.Backend,
		"persist", cfg.Cache.Persist,
		"ttl", cfg.Cache.TTL,
	)
	return a, nil
}

// openSettings selects the feed list backend
func (a *app) openSettings() error {
	switch a.cfg.Settings.Backend {
	case config.BackendMemory:
		a.store = settings.NewMemoryStore()

	case config.BackendFile:
		fs, err := settings.OpenFileStore(a.cfg.Settings.Path)
		if err != nil {
			return fmt.Errorf("failed to open settings file: %w", err)
		}
		a.fileStore = fs
		a.store = fs

	case config.BackendSQL:
		store, err := settings.NewSQLStore(a.db)
		if err != nil {
			return fmt.Errorf("failed to open settings table: %w", err)
		}
		a.store = store

	default:
		return fmt.Errorf("unsupported settings backend %q", a.cfg.Settings.Backend)
	}

	if a.cfg.Settings.ReadOnly {
		a.store = settings.ReadOnly(a.store)
	}
	return nil
}

// Close releases the database connection
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
