package domain

import (
	"fmt"
	"sort"
)

// CategoryResult is the outcome of scoring one category from user inputs.
type CategoryResult struct {
	Category Category           `json:"category"`
	Scores   map[string]float64 `json:"scores"`
	Weights  map[string]float64 `json:"weights,omitempty"`
	Overall  float64            `json:"overall_score"`
	Warnings []string           `json:"warnings,omitempty"`

	// WeightsSumTo100 is set for weighted categories only.
	WeightsSumTo100 *bool `json:"weights_sum_to_100,omitempty"`
}

// ScoreCategory normalizes every metric of the category and reduces them to
// the arithmetic mean. Metrics without an input use their declared default;
// inputs naming no metric of the category are rejected.
func ScoreCategory(inputs map[string]Value, spec CategorySpec) (CategoryResult, error) {
	if err := spec.Validate(); err != nil {
		return CategoryResult{}, err
	}
	if err := rejectUnknownInputs(inputs, spec); err != nil {
		return CategoryResult{}, err
	}

	scores := make(map[string]float64, len(spec.Metrics))
	var sum float64
	// Sum in declaration order so repeated calls are bit-for-bit identical.
	for _, m := range spec.Metrics {
		v, ok := inputs[m.Key]
		if !ok {
			v, ok = m.DefaultValue()
			if !ok {
				return CategoryResult{}, fmt.Errorf("%w: %s.%s", ErrMissingInput, spec.Key, m.Key)
			}
		}
		s, err := Normalize(v, m)
		if err != nil {
			return CategoryResult{}, fmt.Errorf("score %s: %w", spec.Key, err)
		}
		scores[m.Key] = s
		sum += s
	}

	var overall float64
	if len(spec.Metrics) > 0 {
		overall = sum / float64(len(spec.Metrics))
	}

	return CategoryResult{
		Category: spec.Key,
		Scores:   scores,
		Overall:  overall,
	}, nil
}

func rejectUnknownInputs(inputs map[string]Value, spec CategorySpec) error {
	known := make(map[string]struct{}, len(spec.Metrics))
	for _, m := range spec.Metrics {
		known[m.Key] = struct{}{}
	}
	var unknown []string
	for k := range inputs {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: category %q has no metric(s) %v", ErrUnknownMetric, spec.Key, unknown)
}
