package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Alijeyrad/hairai_backend/config"
)

// EnsureDatabases creates the application and Casbin databases when missing,
// connecting through the server's maintenance database.
func EnsureDatabases(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	conn, err := open(ctx, dsnFor(cfg.Database, "postgres"), config.DatabasePoolConfig{})
	if err != nil {
		return fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer conn.Close()

	seen := map[string]bool{}
	for _, name := range []string{cfg.Database.DBName, cfg.CasbinDatabase.DBName} {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		created, err := createIfMissing(ctx, conn, name)
		if err != nil {
			return fmt.Errorf("create database %q: %w", name, err)
		}
		if created {
			logger.InfoContext(ctx, "database created", "name", name)
		} else {
			logger.DebugContext(ctx, "database exists", "name", name)
		}
	}
	return nil
}

func createIfMissing(ctx context.Context, conn *sqlx.DB, name string) (bool, error) {
	var exists bool
	if err := conn.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name); err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE takes no bind parameters
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, err
	}
	return true, nil
}
