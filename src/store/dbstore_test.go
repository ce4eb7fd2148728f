package store_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"positionkeeper/src/repository"
	"positionkeeper/src/store"
)

func setupDBMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func TestDBStore_LoadReadsBucket(t *testing.T) {
	db, mock := setupDBMock(t)
	repo := (&repository.StateRepository{}).WithDB(db)
	s := store.NewDBStore(repo, "profit_targets")

	rows := sqlmock.NewRows([]string{"bucket", "key", "value", "updated_at"}).
		AddRow("profit_targets", "BTC/USDT", `{"tier":2}`, time.Now())
	mock.ExpectQuery(`SELECT \* FROM "state_records" WHERE bucket = \$1`).
		WithArgs("profit_targets").
		WillReturnRows(rows)

	require.NoError(t, s.Load())

	rec, ok := s.Get("BTC/USDT")
	require.True(t, ok)
	require.JSONEq(t, `{"tier":2}`, string(rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_LoadFailureFailsOpen(t *testing.T) {
	db, mock := setupDBMock(t)
	repo := (&repository.StateRepository{}).WithDB(db)
	s := store.NewDBStore(repo, "profit_targets")

	mock.ExpectQuery(`SELECT \* FROM "state_records"`).
		WillReturnError(gorm.ErrInvalidDB)

	require.NoError(t, s.Load(), "read failure must fail open to an empty store")
	require.Empty(t, s.Keys())
}

func TestDBStore_SaveIfDirtyWritesChangedRowsOnce(t *testing.T) {
	db, mock := setupDBMock(t)
	repo := (&repository.StateRepository{}).WithDB(db)
	s := store.NewDBStore(repo, "holds")

	s.Set("trade-1", json.RawMessage(`{"min_ratio":0.05}`))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "state_records"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveIfDirty())

	// second save with no intervening change performs no I/O
	require.NoError(t, s.SaveIfDirty())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_RemoveDeletesRow(t *testing.T) {
	db, mock := setupDBMock(t)
	repo := (&repository.StateRepository{}).WithDB(db)
	s := store.NewDBStore(repo, "holds")

	s.Set("trade-1", json.RawMessage(`{}`))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "state_records"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, s.SaveIfDirty())

	s.Remove("trade-1")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "state_records"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, s.SaveIfDirty())

	_, ok := s.Get("trade-1")
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
