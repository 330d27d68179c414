// Package sheets stores tabs in a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Values are written RAW so postal codes keep their leading zeros and
// numbers are not reinterpreted by the spreadsheet locale.
const valueInputOption = "RAW"

type Backend struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New opens a spreadsheet by id.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Backend, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Backend{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// CredentialOptions authenticates with a service account, preferring inline JSON over a file.
func CredentialOptions(credentialsFile, credentialsJSON string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsJSON != "" {
		return append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	return append(opts, option.WithCredentialsFile(credentialsFile))
}

func (b *Backend) Name() string { return "sheets:" + b.spreadsheetID }

func (b *Backend) Read(ctx context.Context, tab string) ([][]string, error) {
	resp, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, quote(tab)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		if isBadRange(err) {
			exists, lerr := b.hasTab(ctx, tab)
			if lerr == nil && !exists {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to read %q: %w", tab, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (b *Backend) Write(ctx context.Context, tab string, rows [][]string) error {
	if err := b.ensureTab(ctx, tab); err != nil {
		return err
	}
	if _, err := b.svc.Spreadsheets.Values.Clear(b.spreadsheetID, quote(tab), &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", tab, err)
	}
	if _, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, quote(tab)+"!A1", valueRange(rows)).
		ValueInputOption(valueInputOption).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write %q: %w", tab, err)
	}
	return nil
}

func (b *Backend) Append(ctx context.Context, tab string, rows [][]string) error {
	if _, err := b.svc.Spreadsheets.Values.Append(b.spreadsheetID, quote(tab), valueRange(rows)).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to append to %q: %w", tab, err)
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, tab string, index int, row []string) error {
	rng := fmt.Sprintf("%s!A%d", quote(tab), index+1)
	if _, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, rng, valueRange([][]string{row})).
		ValueInputOption(valueInputOption).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

// Tabs lists the tab titles of the spreadsheet.
func (b *Backend) Tabs(ctx context.Context) ([]string, error) {
	ss, err := b.svc.Spreadsheets.Get(b.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (b *Backend) hasTab(ctx context.Context, tab string) (bool, error) {
	titles, err := b.Tabs(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == tab {
			return true, nil
		}
	}
	return false, nil
}

func (b *Backend) ensureTab(ctx context.Context, tab string) error {
	exists, err := b.hasTab(ctx, tab)
	if err != nil || exists {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		}},
	}
	if _, err := b.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create tab %q: %w", tab, err)
	}
	return nil
}

func quote(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func valueRange(rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = make([]interface{}, len(r))
		for j, c := range r {
			values[i][j] = c
		}
	}
	return &sheets.ValueRange{MajorDimension: "ROWS", Values: values}
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strings.ToUpper(strconv.FormatBool(t))
	default:
		return fmt.Sprint(t)
	}
}

func isBadRange(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")
}
