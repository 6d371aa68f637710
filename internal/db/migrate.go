package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationDir = "migrations"

// Migrate runs a goose command ("up", "status" or "down") against the
// embedded schema migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB, command string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	switch command {
	case "up", "":
		if err := goose.UpContext(ctx, sqlDB, migrationDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	case "status":
		if err := goose.StatusContext(ctx, sqlDB, migrationDir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
	case "down":
		if err := goose.DownContext(ctx, sqlDB, migrationDir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	return nil
}
