package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labrasa/salesdash/internal/config"
)

type DB struct {
	*sql.DB
}

// NewConnection creates a new database connection using the provided config
func NewConnection(cfg *config.StoreConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required for the mysql backend")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// HealthCheck performs a simple health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}
