package app

import (
	"context"
	"fmt"

	"github.com/flicklist/backend/internal/catalog"
	"github.com/flicklist/backend/internal/config"
	"github.com/flicklist/backend/internal/db"
	"github.com/flicklist/backend/internal/handlers"
	"github.com/flicklist/backend/internal/medialists"
	"github.com/flicklist/backend/internal/repositories"
	"github.com/flicklist/backend/internal/repositories/memory"
	"github.com/flicklist/backend/internal/repositories/mongostore"
	"github.com/flicklist/backend/internal/snapshot"
	"github.com/flicklist/backend/internal/storage"
)

type cleanupFunc func(context.Context) error

func noCleanup(context.Context) error { return nil }

// openStore connects the configured user store backend.
func openStore(ctx context.Context, cfg config.Config) (repositories.UserRepository, cleanupFunc, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), noCleanup, nil
	case config.StoreMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := mongostore.NewUserRepository(client.Database(cfg.MongoDatabase))
		return repo, client.Disconnect, nil
	case config.StorePostgres, "":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewPostgresUserRepository(pool), func(context.Context) error {
			pool.Close()
			return nil
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// buildCatalog returns nil when no TMDB key is configured.
func buildCatalog(cfg config.TMDBConfig) (*catalog.Enricher, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	client, err := catalog.NewTMDBClient(catalog.TMDBOptions{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	cached := catalog.NewCachingProvider(client, cfg.CacheTTL)
	return catalog.NewEnricher(cached, cfg.Concurrency), nil
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(users repositories.UserRepository, cfg config.Config) (handlers.Dependencies, error) {
	deps := handlers.Dependencies{Lists: medialists.NewService(users)}

	enricher, err := buildCatalog(cfg.TMDB)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure catalog: %w", err)
	}
	if enricher != nil {
		deps.Catalog = enricher
	}

	return deps, nil
}

// buildExporter wires the snapshot exporter to the configured bucket.
func buildExporter(ctx context.Context, users repositories.UserRepository, cfg config.ObjectStoreConfig) (*snapshot.Exporter, error) {
	store, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &snapshot.Exporter{Users: users, Store: store, Prefix: cfg.Prefix}, nil
}
