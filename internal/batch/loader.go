// Package batch composes ordered job runs into a single operator action:
// loading a YAML batch descriptor and executing it through a bounded
// job-level worker pool, mirroring the device-level pool one layer up.
package batch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

// fileFormat is the on-disk YAML shape for a batch descriptor (§6): a name
// and an ordered list of job slugs, plus the optional execution knobs.
type fileFormat struct {
	Name          string   `yaml:"name"`
	Jobs          []string `yaml:"jobs"`
	StopOnFailure bool     `yaml:"stop_on_failure"`
	InterJobPause string   `yaml:"inter_job_pause"`
	MaxConcurrent int      `yaml:"max_concurrent"`
}

// LoadFile reads and parses a batch descriptor from path.
func LoadFile(path string) (model.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Batch{}, fmt.Errorf("reading batch file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a batch descriptor's YAML bytes.
func Parse(data []byte) (model.Batch, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.Batch{}, fmt.Errorf("parsing batch descriptor: %w", err)
	}

	if raw.Name == "" {
		return model.Batch{}, fmt.Errorf("batch descriptor missing name")
	}
	if len(raw.Jobs) == 0 {
		return model.Batch{}, fmt.Errorf("batch %q has no jobs", raw.Name)
	}

	var pause time.Duration
	if raw.InterJobPause != "" {
		parsed, err := time.ParseDuration(raw.InterJobPause)
		if err != nil {
			return model.Batch{}, fmt.Errorf("batch %q: invalid inter_job_pause %q: %w", raw.Name, raw.InterJobPause, err)
		}
		pause = parsed
	}

	return model.Batch{
		Name:          raw.Name,
		JobSlugs:      raw.Jobs,
		StopOnFailure: raw.StopOnFailure,
		InterJobPause: pause,
		MaxConcurrent: raw.MaxConcurrent,
	}, nil
}
