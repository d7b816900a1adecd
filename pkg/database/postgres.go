package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/internal/store/migrations"
)

const pingTimeout = 5 * time.Second

func open(ctx context.Context, dsn string, pool config.DatabasePoolConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(pool.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(connMaxLifetime(pool))

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// NewSQLX opens the application database described by the central config.
func NewSQLX(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return open(context.Background(), NewDSN(cfg), cfg.Pool)
}

// Migrate applies the embedded analysis schema scripts.
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	return migrations.Up(ctx, db, logger)
}
