package batch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scottpeterman/velocitycollector/internal/job"
	"github.com/scottpeterman/velocitycollector/internal/model"
)

var tracer = otel.Tracer("batch-runner")

// Status is a batch member job's terminal state.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// JobOutcome is one batch member's result.
type JobOutcome struct {
	Slug   string
	Status Status
	Result job.Result
	Err    error
}

// Result is a completed batch's aggregate summary (§4.6).
type Result struct {
	Name            string
	JobsAttempted   int
	JobsSucceeded   int
	JobsPartial     int
	JobsFailed      int
	JobsCancelled   int
	TotalDevices    int
	TotalSuccess    int
	TotalFailed     int
	TotalSkipped    int
	Duration        time.Duration
	Jobs            []JobOutcome
}

// RunFunc executes one job by slug and returns its result. Any error it
// returns, job-level (ConfigError/InventoryEmpty/SecretStoreLocked, per §7)
// or not, is recorded as a failed job.
type RunFunc func(ctx context.Context, slug string) (job.Result, error)

// Runner executes a batch's jobs, sequentially by default or with a bounded
// job-level worker cap, honoring stop-on-failure.
type Runner struct{}

// New constructs a Runner.
func New() *Runner { return &Runner{} }

// Run executes b's jobs via run, one job at a time when b.MaxConcurrent is
// 0 or 1, or with up to b.MaxConcurrent running concurrently otherwise.
func (r *Runner) Run(ctx context.Context, b model.Batch, run RunFunc) Result {
	started := time.Now()

	if b.MaxConcurrent <= 1 {
		return r.runSequential(ctx, b, run, started)
	}
	return r.runBounded(ctx, b, run, started)
}

func (r *Runner) runSequential(ctx context.Context, b model.Batch, run RunFunc, started time.Time) Result {
	res := Result{Name: b.Name}
	stopped := false

	for i, slug := range b.JobSlugs {
		if stopped {
			res.Jobs = append(res.Jobs, JobOutcome{Slug: slug, Status: StatusCancelled})
			res.JobsCancelled++
			continue
		}

		if i > 0 && b.InterJobPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.InterJobPause):
			}
		}

		outcome := runOne(ctx, slug, run)
		res.Jobs = append(res.Jobs, outcome)
		res.JobsAttempted++
		tally(&res, outcome)

		if b.StopOnFailure && outcome.Status == StatusFailed {
			stopped = true
		}
	}

	res.Duration = time.Since(started)
	return res
}

func (r *Runner) runBounded(ctx context.Context, b model.Batch, run RunFunc, started time.Time) Result {
	res := Result{Name: b.Name}
	outcomes := make([]JobOutcome, len(b.JobSlugs))

	sem := make(chan struct{}, b.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	stopped := false

	for i, slug := range b.JobSlugs {
		mu.Lock()
		alreadyStopped := stopped
		mu.Unlock()
		if alreadyStopped {
			outcomes[i] = JobOutcome{Slug: slug, Status: StatusCancelled}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, s string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := runOne(ctx, s, run)
			outcomes[idx] = outcome

			if b.StopOnFailure && outcome.Status == StatusFailed {
				mu.Lock()
				stopped = true
				mu.Unlock()
			}
		}(i, slug)
	}

	wg.Wait()

	for _, outcome := range outcomes {
		res.Jobs = append(res.Jobs, outcome)
		if outcome.Status == StatusCancelled {
			res.JobsCancelled++
			continue
		}
		res.JobsAttempted++
		tally(&res, outcome)
	}

	res.Duration = time.Since(started)
	return res
}

func runOne(ctx context.Context, slug string, run RunFunc) JobOutcome {
	ctx, span := tracer.Start(ctx, "run_batch_job", trace.WithAttributes(attribute.String("job.slug", slug)))
	defer span.End()

	result, err := run(ctx, slug)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return JobOutcome{Slug: slug, Status: StatusFailed, Err: err}
	}

	switch result.Status {
	case model.RunStatusSuccess:
		return JobOutcome{Slug: slug, Status: StatusSucceeded, Result: result}
	case model.RunStatusPartial:
		return JobOutcome{Slug: slug, Status: StatusPartial, Result: result}
	default:
		return JobOutcome{Slug: slug, Status: StatusFailed, Result: result}
	}
}

func tally(res *Result, outcome JobOutcome) {
	switch outcome.Status {
	case StatusSucceeded:
		res.JobsSucceeded++
	case StatusPartial:
		res.JobsPartial++
	case StatusFailed:
		res.JobsFailed++
	}
	res.TotalDevices += outcome.Result.TotalDevices
	res.TotalSuccess += outcome.Result.SuccessCount
	res.TotalFailed += outcome.Result.FailedCount
	res.TotalSkipped += outcome.Result.SkippedCount
}
