package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/labrasa/salesdash/internal/config"
	"github.com/labrasa/salesdash/internal/database"
	"github.com/labrasa/salesdash/internal/store/memory"
	"github.com/labrasa/salesdash/internal/store/sheets"
)

// Open builds the configured backend and wraps it in a Store.
// The returned closer releases backend resources.
func Open(ctx context.Context, cfg config.StoreConfig, loc *time.Location) (*Store, io.Closer, error) {
	opts := Options{
		ValidTab:     cfg.ValidTab,
		CancelledTab: cfg.CancelledTab,
		Mode:         Mode(cfg.Mode),
		Location:     loc,
	}

	switch cfg.Backend {
	case "sheets":
		b, err := sheets.New(ctx, cfg.SpreadsheetID, sheets.CredentialOptions(cfg.CredentialsFile, cfg.CredentialsJSON)...)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return New(b, opts), nopCloser{}, nil
	case "mysql":
		db, err := database.NewConnection(&cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := db.CreateSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}
		return New(database.NewSheetStore(db), opts), db, nil
	case "memory":
		return New(memory.New(), opts), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
