package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SheetStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSheetStore(&DB{db}), mock
}

func TestSheetStoreRead(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT row_no, cells FROM sheet_rows WHERE tab = ? ORDER BY row_no")).
		WithArgs("Página1").
		WillReturnRows(sqlmock.NewRows([]string{"row_no", "cells"}).
			AddRow(0, []byte(`["Pedido","Total"]`)).
			AddRow(1, []byte(`["1","15.5"]`)))

	rows, err := s.Read(context.Background(), "Página1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Pedido", "Total"}, {"1", "15.5"}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetStoreReadEmptyTab(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT row_no, cells FROM sheet_rows").
		WithArgs("Cancelados").
		WillReturnRows(sqlmock.NewRows([]string{"row_no", "cells"}))

	rows, err := s.Read(context.Background(), "Cancelados")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSheetStoreWriteReplacesTab(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sheet_rows WHERE tab = ?")).
		WithArgs("Página1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sheet_rows (tab, row_no, cells) VALUES (?, ?, ?), (?, ?, ?)")).
		WithArgs("Página1", 0, `["Pedido"]`, "Página1", 1, `["1"]`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.Write(context.Background(), "Página1", [][]string{{"Pedido"}, {"1"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetStoreAppendContinuesNumbering(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(row_no), -1) FROM sheet_rows WHERE tab = ? FOR UPDATE")).
		WithArgs("Página1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))
	mock.ExpectExec("INSERT INTO sheet_rows").
		WithArgs("Página1", 5, `["9"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Append(context.Background(), "Página1", [][]string{{"9"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetStoreAppendRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(-1))
	mock.ExpectExec("INSERT INTO sheet_rows").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Append(context.Background(), "Página1", [][]string{{"9"}})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetStoreUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sheet_rows SET cells = ? WHERE tab = ? AND row_no = ?")).
		WithArgs(`["2","25"]`, "Página1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sheet_rows").
		WithArgs(`["x"]`, "Página1", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Update(context.Background(), "Página1", 2, []string{"2", "25"}))
	assert.Error(t, s.Update(context.Background(), "Página1", 99, []string{"x"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sheet_rows").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, (&DB{db}).CreateSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
