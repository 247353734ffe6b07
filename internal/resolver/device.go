// Package resolver implements the Device Resolver (spec §4.1): translating
// a job's device filter into a concrete, ordered, deduplicated device set.
//
// Grounded on the Python original's dcim/dcim_repo.py get_devices(), with
// the name-pattern matching moved out of SQL and into Go regexp, since
// sqlite has no POSIX regex operator; the rest of the filter (site,
// platform, role, vendor substring, status, primary-address presence) is
// pushed down to the inventory store's SQL query.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Resolver materializes device sets for a job's DeviceFilter.
type Resolver struct {
	inventory store.InventoryStore
}

// New constructs a Resolver over the given inventory store.
func New(inventory store.InventoryStore) *Resolver {
	return &Resolver{inventory: inventory}
}

// Resolve returns the filter's matching devices, ordered by (site, name).
// An empty result is not itself an error here — callers (the job runner)
// treat it as the job-level fatal InventoryEmpty condition per §4.1.
func (r *Resolver) Resolve(ctx context.Context, tx store.DBTransaction, filter model.DeviceFilter) ([]model.Device, error) {
	var namePattern *regexp.Regexp
	if filter.NamePattern != "" {
		compiled, err := regexp.Compile(filter.NamePattern)
		if err != nil {
			return nil, store.Wrap(store.KindConfigError, "resolver.Resolve", fmt.Errorf("compile name pattern %q: %w", filter.NamePattern, err))
		}
		namePattern = compiled
	}

	devices, err := r.inventory.GetDevices(ctx, tx, filter)
	if err != nil {
		return nil, store.Wrap(store.KindConfigError, "resolver.Resolve", err)
	}

	out := devices[:0]
	for _, d := range devices {
		if namePattern != nil && !namePattern.MatchString(d.Name) {
			continue
		}
		if d.PrimaryIP4 == "" && d.PrimaryIP6 == "" {
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SiteName != out[j].SiteName {
			return out[i].SiteName < out[j].SiteName
		}
		return out[i].Name < out[j].Name
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}
