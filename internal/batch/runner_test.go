package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/job"
	"github.com/scottpeterman/velocitycollector/internal/model"
)

func TestRunner_Sequential_AllSucceed(t *testing.T) {
	b := model.Batch{Name: "nightly", JobSlugs: []string{"a", "b", "c"}}
	r := New()

	var order []string
	var mu sync.Mutex
	result := r.Run(context.Background(), b, func(ctx context.Context, slug string) (job.Result, error) {
		mu.Lock()
		order = append(order, slug)
		mu.Unlock()
		return job.Result{Status: model.RunStatusSuccess, TotalDevices: 1, SuccessCount: 1}, nil
	})

	require.Equal(t, 3, result.JobsAttempted)
	assert.Equal(t, 3, result.JobsSucceeded)
	assert.Equal(t, 0, result.JobsCancelled)
	assert.Equal(t, []string{"a", "b", "c"}, order, "sequential mode must run jobs in strict order")
}

func TestRunner_Sequential_StopOnFailureCancelsRest(t *testing.T) {
	b := model.Batch{Name: "nightly", JobSlugs: []string{"a", "b", "c"}, StopOnFailure: true}
	r := New()

	result := r.Run(context.Background(), b, func(ctx context.Context, slug string) (job.Result, error) {
		if slug == "a" {
			return job.Result{}, errors.New("job a matched no devices")
		}
		return job.Result{Status: model.RunStatusSuccess}, nil
	})

	require.Len(t, result.Jobs, 3)
	assert.Equal(t, StatusFailed, result.Jobs[0].Status)
	assert.Equal(t, StatusCancelled, result.Jobs[1].Status)
	assert.Equal(t, StatusCancelled, result.Jobs[2].Status)
	assert.Equal(t, 1, result.JobsAttempted)
	assert.Equal(t, 1, result.JobsFailed)
	assert.Equal(t, 2, result.JobsCancelled)
}

func TestRunner_Sequential_PartialDoesNotTriggerStop(t *testing.T) {
	b := model.Batch{Name: "nightly", JobSlugs: []string{"a", "b"}, StopOnFailure: true}
	r := New()

	result := r.Run(context.Background(), b, func(ctx context.Context, slug string) (job.Result, error) {
		if slug == "a" {
			return job.Result{Status: model.RunStatusPartial, SuccessCount: 1, FailedCount: 1}, nil
		}
		return job.Result{Status: model.RunStatusSuccess}, nil
	})

	assert.Equal(t, 2, result.JobsAttempted)
	assert.Equal(t, 0, result.JobsCancelled)
	assert.Equal(t, 1, result.JobsPartial)
	assert.Equal(t, 1, result.JobsSucceeded)
}

func TestRunner_Bounded_RunsAllJobs(t *testing.T) {
	b := model.Batch{Name: "nightly", JobSlugs: []string{"a", "b", "c", "d"}, MaxConcurrent: 2}
	r := New()

	result := r.Run(context.Background(), b, func(ctx context.Context, slug string) (job.Result, error) {
		time.Sleep(5 * time.Millisecond)
		return job.Result{Status: model.RunStatusSuccess, TotalDevices: 2, SuccessCount: 2}, nil
	})

	assert.Equal(t, 4, result.JobsAttempted)
	assert.Equal(t, 4, result.JobsSucceeded)
	assert.Equal(t, 8, result.TotalDevices)
}

func TestRunner_AggregatesDeviceTotals(t *testing.T) {
	b := model.Batch{Name: "nightly", JobSlugs: []string{"a", "b"}}
	r := New()

	result := r.Run(context.Background(), b, func(ctx context.Context, slug string) (job.Result, error) {
		return job.Result{Status: model.RunStatusPartial, TotalDevices: 3, SuccessCount: 2, FailedCount: 1}, nil
	})

	assert.Equal(t, 6, result.TotalDevices)
	assert.Equal(t, 4, result.TotalSuccess)
	assert.Equal(t, 2, result.TotalFailed)
}
