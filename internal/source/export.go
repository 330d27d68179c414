package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/xuri/excelize/v2"
)

// ReadExport loads a sales export. .xlsx files are read from their first
// sheet; .csv files may use comma or semicolon separators.
func ReadExport(path string) (*models.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", filepath.Base(path))
	}
}

func readXLSX(path string) (*models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return models.FromRows(dropBlankRows(rows)), nil
}

func readCSV(path string) (*models.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return parseCSV(file)
}

func parseCSV(r io.Reader) (*models.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if firstLine, _, _ := strings.Cut(text, "\n"); strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		reader.Comma = ';'
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return models.FromRows(dropBlankRows(rows)), nil
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
