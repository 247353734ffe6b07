package persist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

type fakeHistoryStore struct {
	mu       sync.Mutex
	runs     map[int64]model.Run
	captures []model.Capture
	nextRun  int64
	nextCap  int64
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{runs: map[int64]model.Run{}}
}

func (f *fakeHistoryStore) CreateRun(ctx context.Context, tx store.DBTransaction, jobSlug, jobSource string, totalDevices int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRun++
	f.runs[f.nextRun] = model.Run{ID: f.nextRun, JobSlug: jobSlug, JobSource: jobSource, TotalDevices: totalDevices, Status: model.RunStatusRunning}
	return f.nextRun, nil
}

func (f *fakeHistoryStore) CompleteRun(ctx context.Context, tx store.DBTransaction, runID int64, success, failed, skipped int, status model.RunStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[runID]
	run.SuccessCount, run.FailedCount, run.SkippedCount, run.Status, run.ErrorMessage = success, failed, skipped, status, errMsg
	f.runs[runID] = run
	return nil
}

func (f *fakeHistoryStore) RecordCapture(ctx context.Context, tx store.DBTransaction, c model.Capture) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCap++
	c.ID = f.nextCap
	f.captures = append(f.captures, c)
	return f.nextCap, nil
}

func (f *fakeHistoryStore) GetRun(ctx context.Context, tx store.DBTransaction, runID int64) (model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return model.Run{}, store.ErrNotFound
	}
	return run, nil
}

func (f *fakeHistoryStore) ListRunsByJob(ctx context.Context, tx store.DBTransaction, jobSlug string, limit int) ([]model.Run, error) {
	return nil, nil
}

func TestController_StartFinishRun(t *testing.T) {
	hist := newFakeHistoryStore()
	c := NewController(hist, t.TempDir())

	runID, err := c.StartRun(context.Background(), nil, "show-arp", "cli", 3)
	require.NoError(t, err)
	require.NoError(t, c.FinishRun(context.Background(), nil, runID, 3, 0, 0, model.RunStatusSuccess, ""))

	run, err := hist.GetRun(context.Background(), nil, runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, run.Status)
	assert.Equal(t, 3, run.SuccessCount)
}

func TestController_SaveCapture_WritesFileAndRecordsRow(t *testing.T) {
	hist := newFakeHistoryStore()
	root := t.TempDir()
	c := NewController(hist, root)

	runID, err := c.StartRun(context.Background(), nil, "show-arp", "cli", 1)
	require.NoError(t, err)

	device := model.Device{ID: 1, Name: "r1"}
	job := model.Job{CaptureKind: "arp", Storage: model.StoragePolicy{OutputSubdir: "arp", FilenamePattern: "{device_name}.txt"}}
	score := 85.0

	capture, err := c.SaveCapture(context.Background(), nil, runID, device, job, []byte("arp table"), &score, time.Now())
	require.NoError(t, err)
	assert.NotZero(t, capture.ID)
	assert.Equal(t, "r1", capture.DeviceName)

	assert.Len(t, hist.captures, 1)
}

func TestController_SaveCapture_ConcurrentWritesDoNotRace(t *testing.T) {
	hist := newFakeHistoryStore()
	c := NewController(hist, t.TempDir())
	runID, err := c.StartRun(context.Background(), nil, "show-arp", "cli", 5)
	require.NoError(t, err)

	job := model.Job{CaptureKind: "arp", Storage: model.StoragePolicy{OutputSubdir: "arp", FilenamePattern: "{device_name}.txt"}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			device := model.Device{ID: int64(n), Name: "device"}
			_, err := c.SaveCapture(context.Background(), nil, runID, device, job, []byte("data"), nil, time.Now())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, hist.captures, 5)
}
