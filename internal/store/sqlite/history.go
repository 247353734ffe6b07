package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// HistoryStore is the single writer during a run: device workers never call
// it directly, only through persist.Controller, which serializes run and
// capture writes behind a mutex.
type HistoryStore struct{}

// NewHistoryStore constructs the sqlite-backed HistoryStore.
func NewHistoryStore() *HistoryStore { return &HistoryStore{} }

var _ store.HistoryStore = (*HistoryStore)(nil)

func (s *HistoryStore) CreateRun(ctx context.Context, tx store.DBTransaction, jobSlug, jobSource string, totalDevices int) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO job_history(job_slug, job_source, started_at, total_devices, status)
		 VALUES(?, ?, ?, ?, ?)`,
		jobSlug, jobSource, time.Now().UTC(), totalDevices, string(model.RunStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return res.LastInsertId()
}

func (s *HistoryStore) CompleteRun(ctx context.Context, tx store.DBTransaction, runID int64, success, failed, skipped int, status model.RunStatus, errMsg string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE job_history SET completed_at = ?, success_count = ?, failed_count = ?,
			skipped_count = ?, status = ?, error_message = ? WHERE id = ?`,
		time.Now().UTC(), success, failed, skipped, string(status), errMsg, runID)
	if err != nil {
		return fmt.Errorf("complete run %d: %w", runID, err)
	}
	return nil
}

// RecordCapture inserts one capture row per (run, device, kind), relying on
// the unique index to enforce "one capture per (device, run)".
func (s *HistoryStore) RecordCapture(ctx context.Context, tx store.DBTransaction, c model.Capture) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO captures(job_history_id, device_name, capture_kind, filepath, file_size, captured_at, validation_score)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.DeviceName, c.CaptureKind, c.FilePath, c.FileSize, c.CapturedAt, c.ValidationScore)
	if err != nil {
		return 0, fmt.Errorf("record capture: %w", err)
	}
	return res.LastInsertId()
}

func (s *HistoryStore) GetRun(ctx context.Context, tx store.DBTransaction, runID int64) (model.Run, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, job_slug, job_source, started_at, completed_at, total_devices,
			success_count, failed_count, skipped_count, status, error_message
		 FROM job_history WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, store.ErrNotFound
	}
	return r, err
}

func (s *HistoryStore) ListRunsByJob(ctx context.Context, tx store.DBTransaction, jobSlug string, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, job_slug, job_source, started_at, completed_at, total_devices,
			success_count, failed_count, skipped_count, status, error_message
		 FROM job_history WHERE job_slug = ? ORDER BY started_at DESC LIMIT ?`, jobSlug, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", jobSlug, err)
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(r rowScanner) (model.Run, error) {
	var run model.Run
	var completedAt sql.NullTime
	var status string
	err := r.Scan(&run.ID, &run.JobSlug, &run.JobSource, &run.StartedAt, &completedAt,
		&run.TotalDevices, &run.SuccessCount, &run.FailedCount, &run.SkippedCount,
		&status, &run.ErrorMessage)
	if err != nil {
		return model.Run{}, err
	}
	run.Status = model.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}
