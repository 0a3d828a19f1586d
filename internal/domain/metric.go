package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Score bounds shared by every metric, category, and map layer.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Value is a raw metric input: either a number in the metric's native unit or a
// categorical label. The zero Value is the number 0.
type Value struct {
	num     float64
	label   string
	isLabel bool
}

// Number wraps a native-unit numeric input.
func Number(v float64) Value { return Value{num: v} }

// Label wraps a categorical input.
func Label(s string) Value { return Value{label: s, isLabel: true} }

// IsLabel reports whether v holds a categorical label.
func (v Value) IsLabel() bool { return v.isLabel }

// Float returns the numeric payload. It is meaningless for labels.
func (v Value) Float() float64 { return v.num }

// Text returns the label payload. It is empty for numbers.
func (v Value) Text() string { return v.label }

func (v Value) String() string {
	if v.isLabel {
		return v.label
	}
	return fmt.Sprintf("%g", v.num)
}

// MarshalJSON encodes numbers as JSON numbers and labels as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isLabel {
		return json.Marshal(v.label)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Label(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metric value must be a number or a string: %w", err)
	}
	*v = Number(n)
	return nil
}

// Rule is the normalization rule of a metric. Exactly one concrete rule is
// attached to a MetricSpec: RangeMetric, CategoricalMetric, or CustomMetric.
type Rule interface {
	validate() error
}

// RangeMetric maps [Min, Max] linearly onto [0, 100], or [100, 0] when Inverse
// is set. Inputs outside the range saturate at the boundary score.
type RangeMetric struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Inverse bool     `json:"inverse"`
	Default *float64 `json:"default,omitempty"`
}

func (r RangeMetric) validate() error {
	if !finite(r.Min) || !finite(r.Max) || r.Min >= r.Max {
		return fmt.Errorf("%w: range [%g, %g]", ErrMalformedMetric, r.Min, r.Max)
	}
	return nil
}

func (r RangeMetric) score(x float64) float64 {
	switch {
	case x <= r.Min:
		return r.boundary(MinScore)
	case x >= r.Max:
		return r.boundary(MaxScore)
	}
	s := (x - r.Min) / (r.Max - r.Min) * MaxScore
	if r.Inverse {
		s = MaxScore - s
	}
	return clampScore(s)
}

// boundary returns the score at the low (0) or high (100) end of the raw range.
func (r RangeMetric) boundary(direct float64) float64 {
	if r.Inverse {
		return MaxScore - direct
	}
	return direct
}

// Option is one choice of a categorical metric.
type Option struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// CategoricalMetric maps discrete labels to fixed scores. Options keep their
// declared order for display.
type CategoricalMetric struct {
	Options []Option `json:"options"`
	Default string   `json:"default,omitempty"`
}

func (c CategoricalMetric) validate() error {
	if len(c.Options) == 0 {
		return fmt.Errorf("%w: categorical metric without options", ErrMalformedMetric)
	}
	seen := make(map[string]struct{}, len(c.Options))
	for _, o := range c.Options {
		if _, dup := seen[o.Label]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrMalformedMetric, o.Label)
		}
		seen[o.Label] = struct{}{}
		if !finite(o.Score) || o.Score < MinScore || o.Score > MaxScore {
			return fmt.Errorf("%w: label %q score %g outside [0,100]", ErrMalformedMetric, o.Label, o.Score)
		}
	}
	if c.Default != "" {
		if _, ok := seen[c.Default]; !ok {
			return fmt.Errorf("%w: default label %q not declared", ErrMalformedMetric, c.Default)
		}
	}
	return nil
}

func (c CategoricalMetric) lookup(label string) (float64, bool) {
	for _, o := range c.Options {
		if o.Label == label {
			return o.Score, true
		}
	}
	return 0, false
}

// Labels returns the declared labels in order.
func (c CategoricalMetric) Labels() []string {
	out := make([]string, len(c.Options))
	for i, o := range c.Options {
		out[i] = o.Label
	}
	return out
}

// CustomMetric scores a numeric input with an arbitrary pure function, such as
// a peak centered on an ideal value. The result is clamped to [0, 100].
// Min and Max only bound the input widget; they do not shape the score.
type CustomMetric struct {
	Fn      func(float64) float64 `json:"-"`
	Expr    string                `json:"expr,omitempty"`
	Min     float64               `json:"min"`
	Max     float64               `json:"max"`
	Default *float64              `json:"default,omitempty"`
}

func (c CustomMetric) validate() error {
	if c.Fn == nil {
		return fmt.Errorf("%w: custom metric without scoring function", ErrMalformedMetric)
	}
	return nil
}

// MetricSpec declares one raw input of a category.
type MetricSpec struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Units string `json:"units,omitempty"`
	Rule  Rule   `json:"rule"`
}

// Validate checks that the spec carries exactly one well-formed rule.
func (m MetricSpec) Validate() error {
	if m.Key == "" {
		return fmt.Errorf("%w: empty key", ErrMalformedMetric)
	}
	if m.Rule == nil {
		return fmt.Errorf("%w: metric %q has no range, categorical, or custom rule", ErrMalformedMetric, m.Key)
	}
	if err := m.Rule.validate(); err != nil {
		return fmt.Errorf("metric %q: %w", m.Key, err)
	}
	return nil
}

// Kind names the rule variant for display and serialization.
func (m MetricSpec) Kind() string {
	switch m.Rule.(type) {
	case RangeMetric:
		return "range"
	case CategoricalMetric:
		return "categorical"
	case CustomMetric:
		return "custom"
	default:
		return ""
	}
}

// DefaultValue returns the value used when the caller supplies no input.
func (m MetricSpec) DefaultValue() (Value, bool) {
	switch r := m.Rule.(type) {
	case RangeMetric:
		if r.Default != nil {
			return Number(*r.Default), true
		}
	case CustomMetric:
		if r.Default != nil {
			return Number(*r.Default), true
		}
	case CategoricalMetric:
		if r.Default != "" {
			return Label(r.Default), true
		}
	}
	return Value{}, false
}

// MarshalJSON flattens the rule next to the metric's identity fields.
func (m MetricSpec) MarshalJSON() ([]byte, error) {
	type wire struct {
		Key   string `json:"key"`
		Label string `json:"label"`
		Units string `json:"units,omitempty"`
		Kind  string `json:"kind"`
		Rule  Rule   `json:"rule"`
	}
	return json.Marshal(wire{Key: m.Key, Label: m.Label, Units: m.Units, Kind: m.Kind(), Rule: m.Rule})
}

// Normalize converts one raw input into a score in [0, 100] using the metric's
// rule. It is a pure function of its arguments.
func Normalize(v Value, spec MetricSpec) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	switch r := spec.Rule.(type) {
	case RangeMetric:
		x, err := numericInput(v, spec.Key)
		if err != nil {
			return 0, err
		}
		return r.score(x), nil

	case CategoricalMetric:
		if !v.IsLabel() {
			return 0, fmt.Errorf("%w: metric %q expects a label, got %s", ErrValueKind, spec.Key, v)
		}
		s, ok := r.lookup(v.Text())
		if !ok {
			return 0, fmt.Errorf("%w: metric %q has no label %q", ErrUnknownLabel, spec.Key, v.Text())
		}
		return s, nil

	case CustomMetric:
		x, err := numericInput(v, spec.Key)
		if err != nil {
			return 0, err
		}
		s := r.Fn(x)
		if math.IsNaN(s) {
			return 0, fmt.Errorf("%w: metric %q scorer returned NaN for %g", ErrMalformedMetric, spec.Key, x)
		}
		return clampScore(s), nil

	default:
		return 0, fmt.Errorf("%w: metric %q has unsupported rule %T", ErrMalformedMetric, spec.Key, spec.Rule)
	}
}

func numericInput(v Value, key string) (float64, error) {
	if v.IsLabel() {
		return 0, fmt.Errorf("%w: metric %q expects a number, got label %q", ErrValueKind, key, v.Text())
	}
	if math.IsNaN(v.Float()) {
		return 0, fmt.Errorf("%w: metric %q", ErrMissingInput, key)
	}
	return v.Float(), nil
}

func clampScore(s float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, s))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
