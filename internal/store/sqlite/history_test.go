package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

func TestHistoryStore_CreateRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO job_history").
		WithArgs("cisco-ios-arp", "jobs/cisco-ios-arp.json", sqlmock.AnyArg(), 3, string(model.RunStatusRunning)).
		WillReturnResult(sqlmock.NewResult(42, 1))

	s := NewHistoryStore()
	id, err := s.CreateRun(context.Background(), db, "cisco-ios-arp", "jobs/cisco-ios-arp.json", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_CompleteRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE job_history SET completed_at").
		WithArgs(sqlmock.AnyArg(), 3, 0, 0, string(model.RunStatusSuccess), "", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewHistoryStore()
	err = s.CompleteRun(context.Background(), db, 42, 3, 0, 0, model.RunStatusSuccess, "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_RecordCapture(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	score := 87.5
	mock.ExpectExec("INSERT INTO captures").
		WithArgs(int64(42), "router1", "arp", "/data/arp/router1.txt", int64(128), sqlmock.AnyArg(), &score).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewHistoryStore()
	id, err := s.RecordCapture(context.Background(), db, model.Capture{
		RunID:           42,
		DeviceName:      "router1",
		CaptureKind:     "arp",
		FilePath:        "/data/arp/router1.txt",
		FileSize:        128,
		CapturedAt:      time.Now().UTC(),
		ValidationScore: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_GetRun_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, job_slug").WillReturnRows(sqlmock.NewRows(nil))

	s := NewHistoryStore()
	_, err = s.GetRun(context.Background(), db, 99)
	require.Error(t, err)
}
