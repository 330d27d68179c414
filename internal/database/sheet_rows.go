package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// insertChunk bounds the number of rows per INSERT statement.
const insertChunk = 500

// SheetStore keeps store tabs in the sheet_rows table.
type SheetStore struct {
	db *DB
}

func NewSheetStore(db *DB) *SheetStore {
	return &SheetStore{db: db}
}

func (s *SheetStore) Name() string { return "mysql" }

func (s *SheetStore) Read(ctx context.Context, tab string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT row_no, cells FROM sheet_rows WHERE tab = ? ORDER BY row_no", tab)
	if err != nil {
		return nil, fmt.Errorf("failed to query tab %q: %w", tab, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var rowNo int
		var raw []byte
		if err := rows.Scan(&rowNo, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, fmt.Errorf("failed to decode row %d of %q: %w", rowNo, tab, err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (s *SheetStore) Write(ctx context.Context, tab string, rows [][]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE tab = ?", tab); err != nil {
			return fmt.Errorf("failed to clear tab %q: %w", tab, err)
		}
		return insertRows(ctx, tx, tab, 0, rows)
	})
}

func (s *SheetStore) Append(ctx context.Context, tab string, rows [][]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var last int
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(row_no), -1) FROM sheet_rows WHERE tab = ? FOR UPDATE", tab).Scan(&last)
		if err != nil {
			return fmt.Errorf("failed to find end of tab %q: %w", tab, err)
		}
		return insertRows(ctx, tx, tab, last+1, rows)
	})
}

func (s *SheetStore) Update(ctx context.Context, tab string, index int, row []string) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE sheet_rows SET cells = ? WHERE tab = ? AND row_no = ?", string(cells), tab, index)
	if err != nil {
		return fmt.Errorf("failed to update row %d of %q: %w", index, tab, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("row %d of %q does not exist", index, tab)
	}
	return nil
}

func (s *SheetStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, tab string, first int, rows [][]string) error {
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))

		placeholders := make([]string, 0, end-start)
		args := make([]any, 0, 3*(end-start))
		for i := start; i < end; i++ {
			cells, err := json.Marshal(rows[i])
			if err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
			placeholders = append(placeholders, "(?, ?, ?)")
			args = append(args, tab, first+i, string(cells))
		}

		query := "INSERT INTO sheet_rows (tab, row_no, cells) VALUES " + strings.Join(placeholders, ", ")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert rows into %q: %w", tab, err)
		}
	}
	return nil
}
