// Package job orchestrates one job execution end to end: resolving its
// device set, resolving credentials per device, running the execution
// pool, validating and persisting captures, and reporting a summary.
package job

import (
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// DeviceError is one device's terminal failure or skip reason within a run.
type DeviceError struct {
	DeviceName string
	Kind       store.Kind
	Message    string
}

// Result is a completed job run's summary, mirroring the history row it
// produced plus the in-memory detail a caller needs to report on it.
type Result struct {
	RunID        int64
	JobSlug      string
	TotalDevices int
	SuccessCount int
	FailedCount  int
	SkippedCount int
	Status       model.RunStatus
	StartedAt    time.Time
	CompletedAt  time.Time
	Errors       []DeviceError
}

// Duration reports the wall-clock time the run took.
func (r Result) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
