package sshexec

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/observability"
)

func TestPool_RunAllSucceed(t *testing.T) {
	devices := []model.Device{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}

	var seen int32
	p := New(2, time.Second)
	outcomes := p.Run(context.Background(), devices, func(ctx context.Context, d model.Device) Outcome {
		atomic.AddInt32(&seen, 1)
		return Outcome{Success: true, Output: d.Name + " ok"}
	}, nil)

	require.Len(t, outcomes, 3)
	assert.EqualValues(t, 3, seen)
	for _, o := range outcomes {
		assert.True(t, o.Success)
		assert.Equal(t, 3, o.Total)
	}
}

func TestPool_MaxWorkersOne_StillEmitsAll(t *testing.T) {
	devices := []model.Device{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	p := New(1, time.Second)

	var progressCount int32
	outcomes := p.Run(context.Background(), devices, func(ctx context.Context, d model.Device) Outcome {
		return Outcome{Success: true}
	}, func(o Outcome) { atomic.AddInt32(&progressCount, 1) })

	assert.Len(t, outcomes, 2)
	assert.EqualValues(t, 2, progressCount)
}

func TestPool_CancelSkipsUnstarted(t *testing.T) {
	devices := []model.Device{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}
	ctx, cancel := context.WithCancel(context.Background())

	p := New(1, time.Second)
	started := make(chan struct{}, 1)

	outcomes := p.Run(ctx, devices, func(ctx context.Context, d model.Device) Outcome {
		select {
		case started <- struct{}{}:
		default:
		}
		cancel()
		return Outcome{Success: true}
	}, nil)

	require.Len(t, outcomes, 3)
	var skipped int
	for _, o := range outcomes {
		if o.Skipped {
			skipped++
		}
	}
	assert.Greater(t, skipped, 0)
}

func TestPool_PerDeviceTimeout(t *testing.T) {
	devices := []model.Device{{ID: 1, Name: "slow"}}
	p := New(1, 10*time.Millisecond)

	outcomes := p.Run(context.Background(), devices, func(ctx context.Context, d model.Device) Outcome {
		<-ctx.Done()
		return Outcome{Success: false, ErrorMessage: "timed out"}
	}, nil)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Success)
}

func TestPool_RecordsMetricsWhenWired(t *testing.T) {
	_, metrics, shutdown, err := observability.InitMetrics()
	require.NoError(t, err)
	defer shutdown(context.Background())

	devices := []model.Device{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	p := New(2, time.Second)
	p.SetMetrics(metrics)

	outcomes := p.Run(context.Background(), devices, func(ctx context.Context, d model.Device) Outcome {
		return Outcome{Success: true}
	}, nil)

	require.Len(t, outcomes, 2)
}

func TestOutcomeResult(t *testing.T) {
	assert.Equal(t, "success", outcomeResult(Outcome{Success: true}))
	assert.Equal(t, "skipped", outcomeResult(Outcome{Skipped: true}))
	assert.Equal(t, "failed", outcomeResult(Outcome{}))
}
