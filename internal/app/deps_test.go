package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flicklist/backend/internal/config"
	"github.com/flicklist/backend/internal/repositories/memory"
)

func TestBuildDependencies(t *testing.T) {
	cfg := config.Default()
	cfg.Store = config.StoreMemory

	users, cleanup, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer cleanup(context.Background())

	deps, err := buildDependencies(users, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps.Lists == nil {
		t.Fatal("expected media list service to be configured")
	}
	if deps.Catalog != nil {
		t.Fatal("expected catalog to be disabled without an api key")
	}

	cfg.TMDB.APIKey = "test-key"
	deps, err = buildDependencies(users, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps.Catalog == nil {
		t.Fatal("expected catalog to be configured")
	}
}

func TestBuildExporter(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg := config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1", Prefix: "snapshots"}
	exporter, err := buildExporter(context.Background(), memory.New(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exporter.Prefix != "snapshots" || exporter.Store == nil {
		t.Fatalf("unexpected exporter: %+v", exporter)
	}

	if _, err := buildExporter(context.Background(), memory.New(), config.ObjectStoreConfig{}); err == nil {
		t.Fatal("expected error without a bucket")
	}
}

func TestSeedFile(t *testing.T) {
	users, err := readSeed(filepath.Join("..", "..", "seeds", "dev_seed.json"))
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}

	repo := memory.New()
	created, err := applySeed(context.Background(), repo, users)
	if err != nil {
		t.Fatalf("apply seed: %v", err)
	}
	if created != len(users) {
		t.Fatalf("expected %d users created, got %d", len(users), created)
	}

	again, err := applySeed(context.Background(), repo, users)
	if err != nil {
		t.Fatalf("apply seed again: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected re-seeding to skip existing users, got %d", again)
	}

	alice, err := repo.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("find seeded user: %v", err)
	}
	if len(alice.LikedMedia) != 2 || alice.WantToWatch[0].MarkedBy != "alice" {
		t.Fatalf("unexpected seeded user: %+v", alice)
	}
}

func TestReadSeedErrors(t *testing.T) {
	if _, err := readSeed(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing seed")
	}

	path := filepath.Join(t.TempDir(), "bad_seed.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := readSeed(path); err == nil {
		t.Fatal("expected error for malformed seed")
	}
}

func TestShouldRetryMigration(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&pgconn.PgError{Code: "40001"}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{context.DeadlineExceeded, true},
		{errors.New("syntax error"), false},
	}
	for _, tc := range cases {
		if got := shouldRetryMigration(tc.err); got != tc.want {
			t.Fatalf("shouldRetryMigration(%v) = %v want %v", tc.err, got, tc.want)
		}
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	t.Setenv("FLICKLIST_CONFIG", "")
	t.Setenv("FLICKLIST_STORE", "memory")

	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := Run(context.Background(), []string{"migrate"}); err != nil {
		t.Fatalf("expected memory migrate to succeed, got %v", err)
	}
}
