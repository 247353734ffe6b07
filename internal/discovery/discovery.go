// Package discovery implements the bulk, connect-only credential discovery
// mode described in spec §4.2: given a device set and a candidate
// credential set, it determines which credential authenticates against
// each device without running any data commands.
//
// Grounded in the Python original's core/cred_discovery.py CredentialDiscovery:
// candidates are ordered so a device's prior successful credential is
// tried first, probing is connect-plus-find-prompt only, and a non-auth
// failure (timeout, DNS, refused, key exchange) aborts the remaining
// candidates for that device since retrying other secrets against an
// unreachable device is pointless and risks account lockouts; only an auth
// failure is followed by trying the next candidate.
package discovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/sshexec"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Options controls a discovery run.
type Options struct {
	MaxWorkers         int
	RatePerSecond      float64       // 0 disables rate capping
	PerDeviceTimeout   time.Duration
	SkipTestedWithin   time.Duration // 0 disables the "recently tested" skip
	SkipIfConfigured   bool          // skip devices that already have a pinned, successfully-tested credential
}

// Candidate pairs a vault credential id with its decrypted material.
type Candidate struct {
	ID   int64
	Name string
	Creds model.SSHCredentials
}

// DeviceResult is the outcome of probing one device against its candidate
// list.
type DeviceResult struct {
	Device         model.Device
	Success        bool
	CredentialID   int64
	CredentialName string
	Category       sshexec.Category
	Error          string
	CandidatesTried int
}

// Result aggregates a discovery run.
type Result struct {
	Devices []DeviceResult
}

// Connector abstracts the SSH connect-and-probe step so tests can substitute
// a fake without opening real sockets.
type Connector interface {
	Probe(ctx context.Context, device model.Device, creds model.SSHCredentials, timeout time.Duration) error
}

// sshConnector is the production Connector, opening a real SSH session and
// calling FindPrompt with no further command execution.
type sshConnector struct{}

func (sshConnector) Probe(ctx context.Context, device model.Device, creds model.SSHCredentials, timeout time.Duration) error {
	client := sshexec.NewClient(sshexec.Options{
		Host:    device.Address(),
		Port:    device.SSHPort,
		Timeout: timeout,
		Driver:  sshexec.DriverHint{Name: device.DriverHint, Legacy: device.Legacy},
	})
	if err := client.Connect(ctx, creds); err != nil {
		return err
	}
	defer client.Close()

	_, err := client.FindPrompt(ctx)
	return err
}

// DefaultConnector returns the production SSH-backed Connector.
func DefaultConnector() Connector { return sshConnector{} }

// Engine runs discovery over a device set.
type Engine struct {
	connector Connector
	inventory store.InventoryStore
}

// New constructs an Engine. Pass discovery.DefaultConnector() in production;
// tests may substitute a fake Connector.
func New(connector Connector, inventory store.InventoryStore) *Engine {
	return &Engine{connector: connector, inventory: inventory}
}

// Discover probes devices against candidates, recording the first working
// credential per device back into the inventory store.
func (e *Engine) Discover(ctx context.Context, tx store.DBTransaction, devices []model.Device, candidates []Candidate, opts Options) Result {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 4
	}
	if opts.PerDeviceTimeout == 0 {
		opts.PerDeviceTimeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	filtered := make([]model.Device, 0, len(devices))
	for _, d := range devices {
		if d.PrimaryIP4 == "" && d.PrimaryIP6 == "" {
			continue
		}
		if opts.SkipIfConfigured && d.PinnedCredentialID != nil && d.CredentialTestResult == model.CredentialTestSuccess {
			continue
		}
		if opts.SkipTestedWithin > 0 && d.CredentialTestedAt != nil && time.Since(*d.CredentialTestedAt) < opts.SkipTestedWithin {
			continue
		}
		filtered = append(filtered, d)
	}

	results := make([]DeviceResult, len(filtered))
	sem := make(chan struct{}, opts.MaxWorkers)
	var wg sync.WaitGroup

	for i, device := range filtered {
		select {
		case <-ctx.Done():
			results[i] = DeviceResult{Device: device, Error: "cancelled before start"}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, d model.Device) {
			defer wg.Done()
			defer func() { <-sem }()

			deviceCtx, cancel := context.WithTimeout(ctx, opts.PerDeviceTimeout)
			defer cancel()

			result := e.testDevice(deviceCtx, d, orderCandidates(d, candidates), limiter, opts.PerDeviceTimeout)
			results[idx] = result

			if e.inventory == nil || tx == nil {
				return
			}
			if result.Success {
				_ = e.inventory.UpdateDeviceCredentialTest(ctx, tx, d.ID, result.CredentialID, model.CredentialTestSuccess)
			} else if result.CandidatesTried > 0 {
				_ = e.inventory.UpdateDeviceCredentialTest(ctx, tx, d.ID, 0, model.CredentialTestFailed)
			}
		}(i, device)
	}

	wg.Wait()
	return Result{Devices: results}
}

// orderCandidates puts the device's prior successful credential first, then
// the rest of the candidates in their original order.
func orderCandidates(device model.Device, candidates []Candidate) []Candidate {
	if device.PinnedCredentialID == nil {
		return candidates
	}

	ordered := make([]Candidate, 0, len(candidates))
	var prior *Candidate
	for i := range candidates {
		if candidates[i].ID == *device.PinnedCredentialID {
			c := candidates[i]
			prior = &c
			continue
		}
		ordered = append(ordered, candidates[i])
	}
	if prior != nil {
		ordered = append([]Candidate{*prior}, ordered...)
	}
	return ordered
}

func (e *Engine) testDevice(ctx context.Context, device model.Device, candidates []Candidate, limiter *rate.Limiter, timeout time.Duration) DeviceResult {
	var lastErr error
	var lastCategory sshexec.Category
	tried := 0

	for _, cand := range candidates {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return DeviceResult{Device: device, Error: err.Error(), CandidatesTried: tried}
			}
		}

		tried++
		err := e.connector.Probe(ctx, device, cand.Creds, timeout)
		if err == nil {
			return DeviceResult{
				Device:          device,
				Success:         true,
				CredentialID:    cand.ID,
				CredentialName:  cand.Name,
				CandidatesTried: tried,
			}
		}

		category := sshexec.Categorize(err)
		lastErr = err
		lastCategory = category

		if category != sshexec.CategoryAuthFailure {
			break
		}
	}

	errMsg := ""
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	return DeviceResult{
		Device:          device,
		Success:         false,
		Category:        lastCategory,
		Error:           errMsg,
		CandidatesTried: tried,
	}
}
