package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flicklist/backend/internal/config"
	"github.com/flicklist/backend/internal/db"
	"github.com/flicklist/backend/internal/handlers"
	"github.com/flicklist/backend/internal/httpserver"
	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/middleware"
	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
	"github.com/flicklist/backend/internal/repositories/mongostore"
)

// Run bootstraps the flicklist backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, seed, or export")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, MaxSizeMB: 100, MaxBackups: 5})
	defer closer.Close()
	slog.SetDefault(logger)

	switch args[0] {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		return runMigrations(ctx, cfg, args[1:])
	case "seed":
		return runSeed(ctx, cfg, args[1:])
	case "export":
		return runExport(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			logger.Warn("close user store", "error", err)
		}
	}()

	deps, err := buildDependencies(users, cfg)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	handlers.RegisterRoutes(router, deps)

	handler := middleware.RequestLogger(logger)(middleware.CORS(cfg.CORSOrigin)(router))

	if cfg.ShutdownTimeout > 0 {
		httpserver.ShutdownTimeout = cfg.ShutdownTimeout
	}
	srv := httpserver.New(httpserver.Options{Port: cfg.AppPort}, handler)

	logger.Info("starting http server", "port", cfg.AppPort, "store", cfg.Store, "catalog", deps.Catalog != nil)

	return httpserver.Run(ctx, srv, srv.Start, logger)
}

const (
	migrationMaxRetries  = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

func runMigrations(ctx context.Context, cfg config.Config, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	switch cfg.Store {
	case config.StoreMemory:
		fmt.Println("memory store has no schema to migrate")
		return nil
	case config.StoreMongo:
		if command != "up" {
			return fmt.Errorf("mongo store only supports migrate up")
		}
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		if err := mongostore.NewUserRepository(client.Database(cfg.MongoDatabase)).EnsureIndexes(ctx); err != nil {
			return err
		}
		fmt.Println("ensured mongo indexes")
		return nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqlDB := db.SQLDB(pool)
	defer sqlDB.Close()

	return retry.Do(
		func() error { return db.Migrate(ctx, sqlDB, command) },
		retry.Context(ctx),
		retry.Attempts(migrationMaxRetries),
		retry.Delay(migrationBaseBackoff),
		retry.MaxDelay(migrationMaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(shouldRetryMigration),
		retry.OnRetry(func(n uint, err error) {
			fmt.Printf("transient error running migrations (attempt %d/%d): %v\n", n+1, migrationMaxRetries, err)
		}),
	)
}

func shouldRetryMigration(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := retryablePgErrorCodes[pgErr.Code]; ok {
			return true
		}
	}

	return errors.Is(err, pgx.ErrTxClosed)
}

// runSeed loads users from seeds/<name>_seed.json through the configured
// store. Users that already exist are skipped.
func runSeed(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	seedDir := cfg.SeedDir
	if !filepath.IsAbs(seedDir) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		seedDir = filepath.Join(wd, seedDir)
	}

	seedName := args[0]
	if !strings.HasSuffix(seedName, ".json") {
		seedName = fmt.Sprintf("%s_seed.json", seedName)
	}

	users, err := readSeed(filepath.Join(seedDir, seedName))
	if err != nil {
		return err
	}

	repo, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup(context.Background())

	created, err := applySeed(ctx, repo, users)
	if err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	fmt.Printf("applied seed %s (%d of %d users created)\n", seedName, created, len(users))
	return nil
}

func readSeed(path string) ([]models.User, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", filepath.Base(path), err)
	}
	var users []models.User
	if err := json.Unmarshal(contents, &users); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", filepath.Base(path), err)
	}
	return users, nil
}

func applySeed(ctx context.Context, repo repositories.UserRepository, users []models.User) (int, error) {
	created := 0
	for _, user := range users {
		seeded := models.NewUser(user.ID, user.Email, user.Username, user.CreatedAt)
		seeded.LikedMedia = append(seeded.LikedMedia, user.LikedMedia...)
		seeded.WantToWatch = append(seeded.WantToWatch, user.WantToWatch...)

		if err := repo.Create(ctx, seeded); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("create %s: %w", seeded.Email, err)
		}
		created++
	}
	return created, nil
}

func runExport(ctx context.Context, cfg config.Config) error {
	users, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup(context.Background())

	exporter, err := buildExporter(ctx, users, cfg.ObjectStore)
	if err != nil {
		return err
	}

	location, err := exporter.Export(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("exported snapshot to %s\n", location)
	return nil
}
