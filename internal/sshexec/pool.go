package sshexec

import (
	"context"
	"sync"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/observability"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Outcome is the per-device result the execution pool emits, matching
// §4.3's "host, device-identifier, success flag, duration in milliseconds,
// raw output, error kind and message if failed, credential used" contract.
type Outcome struct {
	Index          int
	Total          int
	Device         model.Device
	Success        bool
	Skipped        bool
	DurationMS     float64
	Output         string
	ErrorKind      store.Kind
	ErrorMessage   string
	CredentialUsed string
	PromptDetected string
}

// WorkFunc runs the full per-device protocol (§4.3 steps 1-5) for one
// device and returns its outcome, with Index/Total left unset — the pool
// fills those in from completion order.
type WorkFunc func(ctx context.Context, device model.Device) Outcome

// Pool runs WorkFunc over a device set with bounded concurrency, matching
// jobplane's semaphore-based worker pool: a fixed channel of size
// maxWorkers gates active goroutines, and every dispatched device is
// tracked by a WaitGroup so Run returns only once all finish.
type Pool struct {
	maxWorkers int
	timeout    time.Duration
	metrics    *observability.Metrics
}

// New constructs a Pool. maxWorkers is clamped to [1, 64] per §4.3's "sane
// ceiling".
func New(maxWorkers int, timeout time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > 64 {
		maxWorkers = 64
	}
	return &Pool{maxWorkers: maxWorkers, timeout: timeout}
}

// SetMetrics wires m into the pool so every device outcome is recorded
// (result and duration) as it completes. Nil disables recording; m's own
// methods are nil-receiver safe so callers never need to check.
func (p *Pool) SetMetrics(m *observability.Metrics) { p.metrics = m }

func outcomeResult(o Outcome) string {
	switch {
	case o.Success:
		return "success"
	case o.Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Run executes work over devices and returns outcomes in completion order.
// A non-nil sink is called with each outcome as it completes, directly on
// the goroutine that produced it and so possibly from several goroutines at
// once; there is no buffered channel between the workers and sink, and a
// slow sink holds its worker's slot. This call blocks until every
// dispatched device has produced an outcome. Devices not yet started when
// ctx is done are emitted as
// skipped outcomes rather than omitted, so total == success+failed+skipped
// always holds per the run-closure invariant.
func (p *Pool) Run(ctx context.Context, devices []model.Device, work WorkFunc, sink func(Outcome)) []Outcome {
	total := len(devices)
	outcomes := make([]Outcome, 0, total)
	var mu sync.Mutex

	sem := make(chan struct{}, p.maxWorkers)
	var wg sync.WaitGroup

	completed := 0
	emit := func(o Outcome) {
		mu.Lock()
		completed++
		o.Index = completed
		o.Total = total
		outcomes = append(outcomes, o)
		mu.Unlock()
		if sink != nil {
			sink(o)
		}
	}

	for _, d := range devices {
		select {
		case <-ctx.Done():
			o := Outcome{Device: d, Skipped: true, ErrorKind: store.KindTimeout, ErrorMessage: "cancelled before start"}
			p.metrics.RecordDevice(ctx, outcomeResult(o), 0)
			emit(o)
			continue
		case sem <- struct{}{}:
			if ctx.Err() != nil {
				<-sem
				o := Outcome{Device: d, Skipped: true, ErrorKind: store.KindTimeout, ErrorMessage: "cancelled before start"}
				p.metrics.RecordDevice(ctx, outcomeResult(o), 0)
				emit(o)
				continue
			}
		}

		wg.Add(1)
		go func(device model.Device) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()

			deviceCtx := ctx
			var cancel context.CancelFunc
			if p.timeout > 0 {
				deviceCtx, cancel = context.WithTimeout(ctx, p.timeout)
				defer cancel()
			}

			outcome := work(deviceCtx, device)
			elapsed := time.Since(start)
			outcome.DurationMS = float64(elapsed.Milliseconds())
			outcome.Device = device
			p.metrics.RecordDevice(ctx, outcomeResult(outcome), elapsed.Seconds())
			emit(outcome)
		}(d)
	}

	wg.Wait()
	return outcomes
}
