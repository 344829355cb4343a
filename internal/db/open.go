package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Config struct {
	Path string // e.g. "./data/frontdesk.db"
	Env  string // "dev" | "prod"
}

// Open connects to the SQLite database at cfg.Path, verifies the connection
// and brings the schema up to date. Any error here is a startup failure.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = "./data/frontdesk.db"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	// Per-connection pragmas: enforce foreign keys, WAL journaling,
	// NORMAL sync and a busy timeout so a long purge does not surface
	// SQLITE_BUSY to request handlers.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		cfg.Path,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	applied, err := Migrate(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	for _, name := range applied {
		logger.Info("migration applied", zap.String("migration", name))
	}

	logger.Info("database ready", zap.String("path", cfg.Path), zap.String("env", cfg.Env))
	return conn, nil
}
