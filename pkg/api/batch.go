package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

// BatchVersion is the only batch descriptor schema version this core
// understands, mirroring JobVersion for the JSON-stored path (§6: a batch
// may also be stored as a row rather than edited as YAML on disk).
const BatchVersion = "v1"

// BatchDescriptor is the JSON wire shape of a batch descriptor. The
// human-editable form is YAML, parsed directly into model.Batch by
// internal/batch.LoadFile; this type exists for batches stored as rows or
// submitted over an API rather than edited as a file.
type BatchDescriptor struct {
	Version       string   `json:"version"`
	Name          string   `json:"name"`
	Jobs          []string `json:"jobs"`
	StopOnFailure bool     `json:"stop_on_failure"`
	InterJobPause string   `json:"inter_job_pause,omitempty"`
	MaxConcurrent int      `json:"max_concurrent,omitempty"`
}

// ParseBatch decodes a batch descriptor from JSON bytes.
func ParseBatch(data []byte) (BatchDescriptor, error) {
	var bd BatchDescriptor
	if err := json.Unmarshal(data, &bd); err != nil {
		return BatchDescriptor{}, fmt.Errorf("parsing batch descriptor: %w", err)
	}
	if bd.Version == "" {
		bd.Version = BatchVersion
	}
	if bd.Version != BatchVersion {
		return BatchDescriptor{}, fmt.Errorf("unsupported batch descriptor version %q", bd.Version)
	}
	if bd.Name == "" {
		return BatchDescriptor{}, fmt.Errorf("batch descriptor missing name")
	}
	if len(bd.Jobs) == 0 {
		return BatchDescriptor{}, fmt.Errorf("batch %q has no jobs", bd.Name)
	}
	return bd, nil
}

// ToModel converts a validated descriptor into the internal model.Batch the
// batch runner executes against.
func (bd BatchDescriptor) ToModel() (model.Batch, error) {
	var pause time.Duration
	if bd.InterJobPause != "" {
		parsed, err := time.ParseDuration(bd.InterJobPause)
		if err != nil {
			return model.Batch{}, fmt.Errorf("batch %q: invalid inter_job_pause %q: %w", bd.Name, bd.InterJobPause, err)
		}
		pause = parsed
	}
	return model.Batch{
		Name:          bd.Name,
		JobSlugs:      bd.Jobs,
		StopOnFailure: bd.StopOnFailure,
		InterJobPause: pause,
		MaxConcurrent: bd.MaxConcurrent,
	}, nil
}
