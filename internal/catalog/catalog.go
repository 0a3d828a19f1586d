// Package catalog loads metric definitions from a YAML file.
//
// A file overrides whole categories of the built-in catalog; categories it does
// not mention keep their defaults. Custom metrics declare their scorer as an
// expression over the raw input v, for example:
//
//	categories:
//	  climate:
//	    title: Climate & Environmental Risk
//	    metrics:
//	      - key: temp
//	        label: Avg. temperature (°F)
//	        custom:
//	          expr: max(0, 100 - abs(v - 60) * 3)
//	          min: 32
//	          max: 90
//	          default: 65
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// inputVar is the name the raw input is bound to inside a custom expression.
const inputVar = "v"

type fileDoc struct {
	Categories map[string]categoryDoc `yaml:"categories"`
}

type categoryDoc struct {
	Title   string      `yaml:"title"`
	Metrics []metricDoc `yaml:"metrics"`
}

type metricDoc struct {
	Key         string          `yaml:"key"`
	Label       string          `yaml:"label"`
	Units       string          `yaml:"units"`
	Range       *rangeDoc       `yaml:"range"`
	Categorical *categoricalDoc `yaml:"categorical"`
	Custom      *customDoc      `yaml:"custom"`
}

type rangeDoc struct {
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Inverse bool     `yaml:"inverse"`
	Default *float64 `yaml:"default"`
}

type categoricalDoc struct {
	Options []struct {
		Label string  `yaml:"label"`
		Score float64 `yaml:"score"`
	} `yaml:"options"`
	Default string `yaml:"default"`
}

type customDoc struct {
	Expr    string   `yaml:"expr"`
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Default *float64 `yaml:"default"`
}

// Load reads the catalog file at path. An empty path returns the built-in
// catalog.
func Load(path string) (domain.Catalog, error) {
	if path == "" {
		return domain.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a YAML catalog and merges it over the built-in catalog. The
// result is validated before it is returned.
func Parse(data []byte) (domain.Catalog, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cat := domain.DefaultCatalog()
	for name, cd := range doc.Categories {
		key, err := domain.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if key == domain.CategoryRegulatory {
			return nil, fmt.Errorf("%w: regulatory is scored from weighted sub-scores and takes no metrics", domain.ErrMalformedMetric)
		}
		spec := domain.CategorySpec{Key: key, Title: cd.Title, Metrics: make([]domain.MetricSpec, 0, len(cd.Metrics))}
		if spec.Title == "" {
			spec.Title = cat[key].Title
		}
		for _, md := range cd.Metrics {
			m, err := md.spec()
			if err != nil {
				return nil, fmt.Errorf("category %q: %w", name, err)
			}
			spec.Metrics = append(spec.Metrics, m)
		}
		cat[key] = spec
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (md metricDoc) spec() (domain.MetricSpec, error) {
	m := domain.MetricSpec{Key: md.Key, Label: md.Label, Units: md.Units}
	if m.Label == "" {
		m.Label = md.Key
	}

	rules := 0
	if md.Range != nil {
		rules++
		m.Rule = domain.RangeMetric{Min: md.Range.Min, Max: md.Range.Max, Inverse: md.Range.Inverse, Default: md.Range.Default}
	}
	if md.Categorical != nil {
		rules++
		c := domain.CategoricalMetric{Default: md.Categorical.Default}
		for _, o := range md.Categorical.Options {
			c.Options = append(c.Options, domain.Option{Label: o.Label, Score: o.Score})
		}
		m.Rule = c
	}
	if md.Custom != nil {
		rules++
		fn, err := Compile(md.Custom.Expr)
		if err != nil {
			return m, fmt.Errorf("metric %q: %w", md.Key, err)
		}
		m.Rule = domain.CustomMetric{Fn: fn, Expr: md.Custom.Expr, Min: md.Custom.Min, Max: md.Custom.Max, Default: md.Custom.Default}
	}
	if rules > 1 {
		return m, fmt.Errorf("%w: metric %q declares %d rules, want one", domain.ErrMalformedMetric, md.Key, rules)
	}
	return m, nil
}

// Compile turns an expression over v into a scoring function. Evaluation
// errors surface as NaN, which Normalize rejects.
func Compile(src string) (func(float64) float64, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty expression", domain.ErrMalformedMetric)
	}
	program, err := expr.Compile(src, expr.Env(map[string]any{inputVar: 0.0}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("%w: compile %q: %v", domain.ErrMalformedMetric, src, err)
	}
	return func(v float64) float64 { return run(program, v) }, nil
}

func run(program *vm.Program, v float64) float64 {
	out, err := expr.Run(program, map[string]any{inputVar: v})
	if err != nil {
		return math.NaN()
	}
	switch f := out.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	default:
		return math.NaN()
	}
}
