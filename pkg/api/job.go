// Package api defines the versioned, external wire shapes for job and
// batch descriptors (§6): what an operator writes on disk or stores as a
// row, independent of the internal model types the execution core runs
// against.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

// JobVersion is the only descriptor schema version this core understands.
const JobVersion = "v1"

// JobDescriptor is the on-disk/JSON shape of a job definition. It only
// carries what the core consumes: unknown fields are ignored on decode, and
// nothing in this module re-encodes a descriptor.
type JobDescriptor struct {
	Version string `json:"version"`
	Slug    string `json:"slug"`
	Enabled bool   `json:"enabled"`

	CaptureKind string `json:"capture_kind"`
	VendorHint  string `json:"vendor_hint,omitempty"`

	Commands struct {
		PagingDisable string   `json:"paging_disable,omitempty"`
		Commands      []string `json:"commands"`
	} `json:"commands"`

	Filter struct {
		VendorSubstring string `json:"vendor_substring,omitempty"`
		SiteID          *int64 `json:"site_id,omitempty"`
		RoleID          *int64 `json:"role_id,omitempty"`
		PlatformID      *int64 `json:"platform_id,omitempty"`
		NamePattern     string `json:"name_pattern,omitempty"`
		Status          string `json:"status,omitempty"`
		Limit           int    `json:"limit,omitempty"`
	} `json:"filter"`

	Validation struct {
		Enabled        bool    `json:"enabled"`
		TemplateFilter string  `json:"template_filter,omitempty"`
		MinScore       float64 `json:"min_score"`
		SaveOnFail     bool    `json:"save_on_fail"`
	} `json:"validation"`

	Execution struct {
		MaxWorkers        int    `json:"max_workers"`
		PerDeviceTimeout  string `json:"per_device_timeout"`
		InterCommandPause string `json:"inter_command_pause,omitempty"`
	} `json:"execution"`

	Storage struct {
		OutputSubdir    string `json:"output_subdir"`
		FilenamePattern string `json:"filename_pattern"`
	} `json:"storage"`
}

// ParseJob decodes a job descriptor from JSON bytes and checks a supported
// version, a slug, at least one command, and a template_filter when
// validation is enabled; a missing max_workers defaults to 8. Capture kind,
// filter, execution timing and storage policy are not checked.
func ParseJob(data []byte) (JobDescriptor, error) {
	var jd JobDescriptor
	if err := json.Unmarshal(data, &jd); err != nil {
		return JobDescriptor{}, fmt.Errorf("parsing job descriptor: %w", err)
	}
	if jd.Version == "" {
		jd.Version = JobVersion
	}
	if jd.Version != JobVersion {
		return JobDescriptor{}, fmt.Errorf("unsupported job descriptor version %q", jd.Version)
	}
	if jd.Slug == "" {
		return JobDescriptor{}, fmt.Errorf("job descriptor missing slug")
	}
	if len(jd.Commands.Commands) == 0 {
		return JobDescriptor{}, fmt.Errorf("job %q has no commands", jd.Slug)
	}
	if jd.Validation.Enabled && jd.Validation.TemplateFilter == "" {
		return JobDescriptor{}, fmt.Errorf("job %q enables validation but has no template_filter", jd.Slug)
	}
	if jd.Execution.MaxWorkers <= 0 {
		jd.Execution.MaxWorkers = 8
	}
	return jd, nil
}

// ToModel converts a validated descriptor into the internal model.Job the
// execution core runs against.
func (jd JobDescriptor) ToModel() (model.Job, error) {
	perDeviceTimeout, err := parseDurationDefault(jd.Execution.PerDeviceTimeout, "30s")
	if err != nil {
		return model.Job{}, fmt.Errorf("job %q: invalid per_device_timeout: %w", jd.Slug, err)
	}
	interCommandPause, err := parseDurationDefault(jd.Execution.InterCommandPause, "0s")
	if err != nil {
		return model.Job{}, fmt.Errorf("job %q: invalid inter_command_pause: %w", jd.Slug, err)
	}

	return model.Job{
		Slug:        jd.Slug,
		Enabled:     jd.Enabled,
		CaptureKind: jd.CaptureKind,
		VendorHint:  jd.VendorHint,
		Commands: model.CommandSet{
			PagingDisableCommand: jd.Commands.PagingDisable,
			Commands:             jd.Commands.Commands,
		},
		Filter: model.DeviceFilter{
			VendorSubstring: jd.Filter.VendorSubstring,
			SiteID:          jd.Filter.SiteID,
			RoleID:          jd.Filter.RoleID,
			PlatformID:      jd.Filter.PlatformID,
			NamePattern:     jd.Filter.NamePattern,
			Status:          model.DeviceStatus(jd.Filter.Status),
			Limit:           jd.Filter.Limit,
		},
		Validation: model.ValidationPolicy{
			Enabled:        jd.Validation.Enabled,
			TemplateFilter: jd.Validation.TemplateFilter,
			MinScore:       jd.Validation.MinScore,
			SaveOnFail:     jd.Validation.SaveOnFail,
		},
		Execution: model.ExecutionPolicy{
			MaxWorkers:        jd.Execution.MaxWorkers,
			PerDeviceTimeout:  perDeviceTimeout,
			InterCommandPause: interCommandPause,
		},
		Storage: model.StoragePolicy{
			OutputSubdir:    jd.Storage.OutputSubdir,
			FilenamePattern: jd.Storage.FilenamePattern,
		},
	}, nil
}
