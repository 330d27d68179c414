package database

import "context"

// SheetRowsSQL emulates spreadsheet tabs: one JSON array of cells per row,
// row 0 holding the header.
const SheetRowsSQL = `CREATE TABLE IF NOT EXISTS sheet_rows (
    tab VARCHAR(100) NOT NULL,
    row_no INT NOT NULL,
    cells JSON NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (tab, row_no)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// CreateSchema creates the tables used by the mysql store backend.
func (db *DB) CreateSchema(ctx context.Context) error {
	statements := []string{
		SheetRowsSQL,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// DropSchema removes the store tables
func (db *DB) DropSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS sheet_rows")
	return err
}
