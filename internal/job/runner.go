package job

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/observability"
	"github.com/scottpeterman/velocitycollector/internal/persist"
	"github.com/scottpeterman/velocitycollector/internal/resolver"
	"github.com/scottpeterman/velocitycollector/internal/sshexec"
	"github.com/scottpeterman/velocitycollector/internal/store"
	"github.com/scottpeterman/velocitycollector/internal/validation"
	"github.com/scottpeterman/velocitycollector/internal/vault"
)

var tracer = otel.Tracer("job-runner")

// CredentialResolver is the subset of *vault.Session the runner depends on,
// narrowed so tests can substitute a fake without an unlocked vault.
type CredentialResolver interface {
	ResolveForDevice(ctx context.Context, device model.Device, override *model.SSHCredentials) (model.SSHCredentials, error)
}

// Runner executes one job end to end: resolve -> connect -> run commands ->
// validate -> persist, fanned out over the device-level execution pool.
type Runner struct {
	resolver   *resolver.Resolver
	validator  *validation.Engine
	controller *persist.Controller
	metrics    *observability.Metrics
}

// New constructs a Runner.
func New(resolver *resolver.Resolver, validator *validation.Engine, controller *persist.Controller) *Runner {
	return &Runner{resolver: resolver, validator: validator, controller: controller}
}

// SetMetrics wires m into the Runner and the device pool it creates per run,
// so run status, device outcomes and validation scores are recorded. Nil
// disables recording; m's own methods are nil-receiver safe.
func (r *Runner) SetMetrics(m *observability.Metrics) { r.metrics = m }

// Stores bundles the three database handles a run touches. Each is
// independent: inventory, the template catalog and the run/capture history
// are separate physical sqlite files, so a single shared tx would mean
// executing a store's SQL against the wrong database.
type Stores struct {
	Inventory store.DBTransaction
	Templates store.DBTransaction
	History   store.DBTransaction
}

// Run resolves job's device set and executes it, producing a Result. Before
// any device work starts it returns the §7 job-level Kinds (ConfigError,
// InventoryEmpty, and SecretStoreLocked when creds reports a locked vault);
// a failure to start or finish the history run row is a PersistenceError.
func (r *Runner) Run(ctx context.Context, dbs Stores, job model.Job, creds CredentialResolver, source string) (Result, error) {
	started := time.Now()

	devices, err := r.resolver.Resolve(ctx, dbs.Inventory, job.Filter)
	if err != nil {
		return Result{}, err
	}
	if len(devices) == 0 {
		return Result{}, store.Wrap(store.KindInventoryEmpty, "job.Run", fmt.Errorf("job %s matched no devices", job.Slug))
	}
	if l, ok := creds.(interface{ IsUnlocked() bool }); ok && !l.IsUnlocked() {
		return Result{}, store.Wrap(store.KindSecretStoreLocked, "job.Run", fmt.Errorf("job %s: secret store is locked", job.Slug))
	}

	runID, err := r.controller.StartRun(ctx, dbs.History, job.Slug, source, len(devices))
	if err != nil {
		return Result{}, store.Wrap(store.KindPersistenceError, "job.Run", err)
	}

	pool := sshexec.New(job.Execution.MaxWorkers, job.Execution.PerDeviceTimeout)
	pool.SetMetrics(r.metrics)

	outcomes := pool.Run(ctx, devices, func(workCtx context.Context, device model.Device) sshexec.Outcome {
		return r.runDevice(workCtx, dbs, job, creds, device, runID)
	}, nil)

	result := summarize(runID, job.Slug, started, outcomes)
	r.metrics.RecordRun(ctx, string(result.Status))

	if err := r.controller.FinishRun(ctx, dbs.History, runID, result.SuccessCount, result.FailedCount, result.SkippedCount, result.Status, firstErrorMessage(result.Errors)); err != nil {
		return result, store.Wrap(store.KindPersistenceError, "job.Run", err)
	}

	return result, nil
}

// runDevice performs the full per-device protocol for one device: resolve
// credentials, connect, run commands, validate, persist.
func (r *Runner) runDevice(ctx context.Context, dbs Stores, job model.Job, creds CredentialResolver, device model.Device, runID int64) sshexec.Outcome {
	ctx, span := tracer.Start(ctx, "run_device",
		trace.WithAttributes(
			attribute.String("job.slug", job.Slug),
			attribute.String("device.name", device.Name),
			attribute.Int64("run.id", runID),
		),
	)
	defer span.End()

	outcome := r.runDeviceTraced(ctx, dbs, job, creds, device, runID)
	if !outcome.Success {
		span.SetStatus(codes.Error, outcome.ErrorMessage)
	}
	return outcome
}

func (r *Runner) runDeviceTraced(ctx context.Context, dbs Stores, job model.Job, creds CredentialResolver, device model.Device, runID int64) sshexec.Outcome {
	resolved, err := creds.ResolveForDevice(ctx, device, nil)
	if err != nil {
		kind, ok := store.KindOf(err)
		if !ok {
			kind = store.KindNoCredential
		}
		return sshexec.Outcome{ErrorKind: kind, ErrorMessage: err.Error()}
	}

	client := sshexec.NewClient(sshexec.Options{
		Host:    device.Address(),
		Port:    device.SSHPort,
		Timeout: job.Execution.PerDeviceTimeout,
		Driver:  sshexec.DriverHint{Name: device.DriverHint, PagingDisableCmd: device.PagingDisableCmd, Legacy: device.Legacy},
	})

	if err := client.Connect(ctx, resolved); err != nil {
		category := sshexec.Categorize(err)
		return sshexec.Outcome{ErrorKind: category.ToKind(), ErrorMessage: err.Error(), CredentialUsed: resolved.CredentialName}
	}
	defer client.Close()

	if job.Commands.PagingDisableCommand != "" {
		_ = client.RunPagingDisable(ctx, job.Commands.PagingDisableCommand)
	}

	output, err := client.RunCommands(ctx, job.Commands.Commands, job.Execution.InterCommandPause)
	if err != nil {
		category := sshexec.Categorize(err)
		return sshexec.Outcome{ErrorKind: category.ToKind(), ErrorMessage: err.Error(), CredentialUsed: resolved.CredentialName}
	}

	return r.validateAndPersist(ctx, dbs, job, device, runID, resolved, output)
}

func (r *Runner) validateAndPersist(ctx context.Context, dbs Stores, job model.Job, device model.Device, runID int64, creds model.SSHCredentials, output string) sshexec.Outcome {
	mainCommand := ""
	if len(job.Commands.Commands) > 0 {
		mainCommand = job.Commands.Commands[0]
	}
	cleaned := validation.CleanOutput(output, mainCommand)

	var scorePtr *float64
	passed := true
	errorKind := store.Kind("")
	errorMessage := ""

	if job.Validation.Enabled && r.validator != nil {
		result, err := r.validator.Evaluate(ctx, dbs.Templates, job.Validation.TemplateFilter, cleaned, job.Validation.MinScore)
		if err != nil {
			return sshexec.Outcome{ErrorKind: store.KindValidationFailed, ErrorMessage: err.Error(), CredentialUsed: creds.CredentialName}
		}
		score := result.Score
		scorePtr = &score
		r.metrics.RecordValidationScore(ctx, score)
		if result.Status != validation.StatusPassed {
			passed = false
			errorKind = store.KindValidationFailed
			errorMessage = fmt.Sprintf("validation %s: score %.1f below minimum %.1f", result.Status, result.Score, job.Validation.MinScore)
		}
	}

	shouldSave := passed || job.Validation.SaveOnFail
	if shouldSave && job.CaptureKind != "" {
		_, err := r.controller.SaveCapture(ctx, dbs.History, runID, device, job, []byte(cleaned), scorePtr, time.Now())
		if err != nil {
			return sshexec.Outcome{ErrorKind: store.KindPersistenceError, ErrorMessage: err.Error(), CredentialUsed: creds.CredentialName}
		}
	}

	if !passed {
		return sshexec.Outcome{Skipped: true, ErrorKind: errorKind, ErrorMessage: errorMessage, Output: cleaned, CredentialUsed: creds.CredentialName}
	}

	return sshexec.Outcome{Success: true, Output: cleaned, CredentialUsed: creds.CredentialName}
}

// summarize folds pool outcomes into a Result, applying §4.5/§8's status
// rule: success only if every device succeeded, failed if none did
// (including an all-skipped run), partial otherwise.
func summarize(runID int64, jobSlug string, started time.Time, outcomes []sshexec.Outcome) Result {
	res := Result{RunID: runID, JobSlug: jobSlug, TotalDevices: len(outcomes), StartedAt: started, CompletedAt: time.Now()}

	for _, o := range outcomes {
		switch {
		case o.Success:
			res.SuccessCount++
		case o.Skipped:
			res.SkippedCount++
			if o.ErrorMessage != "" {
				res.Errors = append(res.Errors, DeviceError{DeviceName: o.Device.Name, Kind: o.ErrorKind, Message: o.ErrorMessage})
			}
		default:
			res.FailedCount++
			res.Errors = append(res.Errors, DeviceError{DeviceName: o.Device.Name, Kind: o.ErrorKind, Message: o.ErrorMessage})
		}
	}

	switch {
	case res.SuccessCount == res.TotalDevices:
		res.Status = model.RunStatusSuccess
	case res.SuccessCount == 0:
		res.Status = model.RunStatusFailed
	default:
		res.Status = model.RunStatusPartial
	}

	return res
}

func firstErrorMessage(errs []DeviceError) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Message
}

var _ CredentialResolver = (*vault.Session)(nil)
