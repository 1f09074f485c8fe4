package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/database"
	"github.com/varoOP/shinkrorec/internal/discover"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/jikan"
	"github.com/varoOP/shinkrorec/internal/kvstore"
	"github.com/varoOP/shinkrorec/internal/logger"
	"github.com/varoOP/shinkrorec/internal/repository"
	"github.com/varoOP/shinkrorec/internal/review"
	"github.com/varoOP/shinkrorec/internal/watchlist"
)

// App represents the main application with all dependencies initialized
type App struct {
	log    zerolog.Logger
	config *domain.Config
	store  *kvstore.Store

	Catalog   domain.CatalogClient
	Watchlist *watchlist.Service
	Reviews   *review.Service
	Discover  *discover.Service
	Archive   domain.WatchlistArchive
}

// NewApp opens the configured store and wires the services on top of it.
// The discover service follows the watchlist from the start.
func NewApp(ctx context.Context, cfg *domain.Config) (*App, error) {
	log := logger.NewLoggerFromString(cfg.LogLevel)

	kv, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	return newApp(ctx, cfg, log, kv, jikan.NewClient(log, cfg)), nil
}

func newApp(ctx context.Context, cfg *domain.Config, log zerolog.Logger, kv domain.KeyValueStore, catalog domain.CatalogClient) *App {
	store := kvstore.New(log, kv)

	a := &App{
		log:       log,
		config:    cfg,
		store:     store,
		Catalog:   catalog,
		Watchlist: watchlist.NewService(log, store),
		Reviews:   review.NewService(log, store),
		Discover:  discover.NewService(log, catalog),
		Archive:   repository.NewFileRepository(log),
	}

	a.Discover.Bind(ctx, a.Watchlist)

	return a
}

func openBackend(cfg *domain.Config, log zerolog.Logger) (domain.KeyValueStore, error) {
	if cfg.StoreBackend != domain.StoreBackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir %s: %w", cfg.DataDir, err)
		}
	}

	switch cfg.StoreBackend {
	case domain.StoreBackendSQLite:
		db, err := database.NewDB(cfg.DataDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database.NewKVRepo(log, db), nil

	case domain.StoreBackendBadger:
		b, err := kvstore.NewBadger(filepath.Join(cfg.DataDir, "badger"), log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger: %w", err)
		}
		return b, nil

	case domain.StoreBackendMemory:
		log.Warn().Msg("using in-memory store, nothing will be persisted")
		return kvstore.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// Toggle saves or removes the anime with id, fetching its full record first
func (a *App) Toggle(ctx context.Context, id int) (*domain.Anime, bool, error) {
	anime, err := a.Catalog.Details(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch anime %d: %w", id, err)
	}

	added, err := a.Watchlist.Toggle(ctx, *anime)
	if err != nil {
		return anime, added, err
	}

	a.log.Info().Int("mal_id", id).Bool("added", added).Str("title", anime.DisplayTitle()).Msg("watchlist updated")

	return anime, added, nil
}

// Import adds every entry of the file at path that is not saved yet.
// The file order is kept, its first entry ends up newest. The picks are
// refreshed once for the whole file.
func (a *App) Import(ctx context.Context, path string) (int, error) {
	entries, err := a.Archive.Get(ctx, path)
	if err != nil {
		return 0, err
	}

	added, err := a.Watchlist.Merge(ctx, entries)
	if err != nil {
		return added, err
	}

	a.log.Info().Str("path", path).Int("added", added).Int("total", len(entries)).Msg("imported watchlist")

	return added, nil
}

// Close waits for pending requests and closes the store
func (a *App) Close() error {
	a.Discover.Wait()
	return a.store.Close()
}
