package persist

import (
	"context"
	"sync"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Controller is the single writer for a run's history row and its capture
// rows. Device workers call SaveCapture concurrently; the controller
// serializes every history-database write behind a mutex so the history
// store — opened once per run, not per worker — never sees concurrent
// access from multiple goroutines on the same connection.
type Controller struct {
	history     store.HistoryStore
	captureRoot string

	mu sync.Mutex
}

// NewController constructs a Controller. captureRoot is the collection
// root directory captures are written beneath.
func NewController(history store.HistoryStore, captureRoot string) *Controller {
	return &Controller{history: history, captureRoot: captureRoot}
}

// StartRun opens a history row for a job invocation and returns its id.
func (c *Controller) StartRun(ctx context.Context, tx store.DBTransaction, jobSlug, jobSource string, totalDevices int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.CreateRun(ctx, tx, jobSlug, jobSource, totalDevices)
}

// FinishRun closes out a run's history row with final counts and status.
func (c *Controller) FinishRun(ctx context.Context, tx store.DBTransaction, runID int64, success, failed, skipped int, status model.RunStatus, errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.CompleteRun(ctx, tx, runID, success, failed, skipped, status, errMsg)
}

// SaveCapture writes content to the job's configured output location and
// records the resulting capture row, serialized against every other
// concurrent SaveCapture/StartRun/FinishRun call on this controller.
func (c *Controller) SaveCapture(ctx context.Context, tx store.DBTransaction, runID int64, device model.Device, job model.Job, content []byte, score *float64, at time.Time) (model.Capture, error) {
	filename := ExpandFilename(job.Storage.FilenamePattern, device, at)
	path, size, err := WriteCapture(c.captureRoot, job.Storage.OutputSubdir, filename, content)
	if err != nil {
		return model.Capture{}, store.Wrap(store.KindPersistenceError, "persist.SaveCapture", err)
	}

	capture := model.Capture{
		RunID:           runID,
		DeviceName:      device.Name,
		CaptureKind:     job.CaptureKind,
		FilePath:        path,
		FileSize:        size,
		CapturedAt:      at,
		ValidationScore: score,
	}

	c.mu.Lock()
	id, err := c.history.RecordCapture(ctx, tx, capture)
	c.mu.Unlock()
	if err != nil {
		return model.Capture{}, store.Wrap(store.KindPersistenceError, "persist.SaveCapture", err)
	}

	capture.ID = id
	return capture, nil
}
