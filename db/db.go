package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// Connect opens the PostgreSQL database, verifies it with a ping and creates
// the history schema if it does not exist.
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	schema, err := LoadSQL("schema.sql")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := ExecuteSQL(ctx, db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("db: create schema: %w", err)
	}

	logger.Info("database connected successfully")

	return db, nil
}
