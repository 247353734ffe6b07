package validation

import (
	"context"
	"strings"

	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Status is the outcome category of a validation attempt.
type Status string

const (
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusNoTemplate Status = "no-template"
)

// Result is the validation pipeline's per-device output, §4.4's
// "(template identifier or null, parsed records or null, score, status)".
type Result struct {
	TemplateIdentifier string
	Records            []map[string]string
	Score              float64
	Status             Status
}

// Engine selects and scores structured-text extraction templates against
// cleaned command output.
type Engine struct {
	templates store.TemplateStore
}

// New constructs an Engine backed by the given read-only template catalog.
func New(templates store.TemplateStore) *Engine {
	return &Engine{templates: templates}
}

// Evaluate splits filter on underscores into required terms, selects every
// template whose identifier contains all of them, runs each against
// cleanedOutput, and keeps the highest-scoring match. minScore determines
// whether the best match counts as passed or failed.
func (e *Engine) Evaluate(ctx context.Context, tx store.DBTransaction, filter, cleanedOutput string, minScore float64) (Result, error) {
	terms := splitTerms(filter)
	candidates, err := e.templates.FindByRequiredTerms(ctx, tx, terms)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return Result{Status: StatusNoTemplate}, nil
	}

	var best Result
	haveBest := false

	for _, tmpl := range candidates {
		compiled, err := parseTemplate(tmpl.Body)
		if err != nil {
			continue
		}
		records := compiled.run(cleanedOutput)
		score := scoreTemplate(tmpl.Identifier, records, len(compiled.values))

		if !haveBest || score > best.Score {
			best = Result{TemplateIdentifier: tmpl.Identifier, Records: records, Score: score}
			haveBest = true
		}
	}

	if !haveBest {
		return Result{Status: StatusNoTemplate}, nil
	}
	if best.Score < minScore {
		best.Status = StatusFailed
	} else {
		best.Status = StatusPassed
	}
	return best, nil
}

// splitTerms splits a job's template filter string on underscores into its
// required identifier terms, e.g. "cisco_ios_show_ip_arp" -> ["cisco",
// "ios", "show", "ip", "arp"].
func splitTerms(filter string) []string {
	parts := strings.Split(filter, "_")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}

// scoreTemplate applies the four deterministic scoring factors to one
// candidate's parse result and returns the sum, clamped to [0, 100].
func scoreTemplate(identifier string, records []map[string]string, fieldCount int) float64 {
	r := len(records)
	score := recordCountScore(identifier, r) + fieldRichnessScore(fieldCount) + populationRateScore(records, fieldCount) + consistencyScore(records)
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

func recordCountScore(identifier string, r int) float64 {
	if strings.Contains(strings.ToLower(identifier), "version") {
		if r == 1 {
			return 30
		}
		return 0
	}
	switch {
	case r <= 0:
		return 0
	case r <= 2:
		return lerp(1, 2, 10, 20, float64(r))
	case r <= 9:
		return lerp(3, 9, 20, 30, float64(r))
	default:
		return 30
	}
}

func fieldRichnessScore(f int) float64 {
	switch {
	case f <= 0:
		return 0
	case f <= 2:
		return lerp(1, 2, 5, 10, float64(f))
	case f <= 5:
		return lerp(3, 5, 10, 20, float64(f))
	case f <= 9:
		return lerp(6, 9, 20, 30, float64(f))
	default:
		return 30
	}
}

func populationRateScore(records []map[string]string, fieldCount int) float64 {
	r := len(records)
	total := r * fieldCount
	if total == 0 {
		return 0
	}
	populated := 0
	for _, rec := range records {
		for _, v := range rec {
			if v != "" {
				populated++
			}
		}
	}
	return (float64(populated) / float64(total)) * 25
}

func consistencyScore(records []map[string]string) float64 {
	r := len(records)
	if r == 0 {
		return 0
	}
	shapeCounts := map[string]int{}
	for _, rec := range records {
		shapeCounts[fieldShape(rec)]++
	}
	dominant := 0
	for _, c := range shapeCounts {
		if c > dominant {
			dominant = c
		}
	}
	return (float64(dominant) / float64(r)) * 15
}

// fieldShape is a stable key identifying which fields are populated in a
// record, used to find the dominant (most common) field set across records.
func fieldShape(rec map[string]string) string {
	keys := make([]string, 0, len(rec))
	for k, v := range rec {
		if v != "" {
			keys = append(keys, k)
		}
	}
	return strings.Join(sortedCopy(keys), ",")
}

func sortedCopy(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func lerp(loA, hiA, loB, hiB, x float64) float64 {
	if hiA == loA {
		return hiB
	}
	return loB + (x-loA)/(hiA-loA)*(hiB-loB)
}
