package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/siting-explorer/internal/dataset"
	"github.com/couchcryptid/siting-explorer/internal/domain"
)

var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// columnStats summarizes one master-table score column.
type columnStats struct {
	column  string
	covered int
	min     float64
	max     float64
	mean    float64
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the dataset in --data-dir loads and joins cleanly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := dataset.NewFileSource(opts.paths(), opts.seed, opts.logger(cmd))
			phases, stats := validate(cmd, src, opts.paths())

			out := cmd.OutOrStdout()
			failed := false
			for _, p := range phases {
				status := "PASS"
				if !p.passed() {
					status = "FAIL"
					failed = true
				}
				fmt.Fprintf(out, "[%s] %s\n", status, p.name)
				for _, e := range p.errors {
					fmt.Fprintf(out, "  - %s\n", e)
				}
			}
			if len(stats) > 0 {
				if err := renderStats(out, stats); err != nil {
					return err
				}
			}
			if failed {
				return errValidationFailed
			}
			return nil
		},
	}
}

func validate(cmd *cobra.Command, src *dataset.FileSource, paths dataset.Paths) ([]*phase, []columnStats) {
	files := &phase{name: "files present"}
	for _, p := range paths.List() {
		if _, err := os.Stat(p); err != nil {
			files.errorf("%s: %v", p, err)
		}
	}
	if !files.passed() {
		return []*phase{files}, nil
	}

	load := &phase{name: "sources load"}
	sources, err := src.Load(cmd.Context())
	if err != nil {
		load.errorf("%v", err)
		return []*phase{files, load}, nil
	}

	master := &phase{name: "master table joins"}
	table, err := domain.BuildMaster(sources)
	if err != nil {
		master.errorf("%v", err)
		return []*phase{files, load, master}, nil
	}
	if table.Len() == 0 {
		master.errorf("master table has no counties")
	}

	scores := &phase{name: "scores within [0, 100]"}
	stats := make([]columnStats, 0, len(domain.ScoreColumns()))
	for _, col := range domain.ScoreColumns() {
		values, ok := table.Column(col)
		if !ok {
			scores.errorf("missing column %q", col)
			continue
		}
		st := columnStats{column: col, min: math.Inf(1), max: math.Inf(-1)}
		var sum float64
		for i, v := range values {
			if math.IsNaN(v) || v < domain.MinScore || v > domain.MaxScore {
				scores.errorf("%s: county %s has %g", col, table.FIPSAt(i), v)
				continue
			}
			if v > 0 {
				st.covered++
			}
			st.min = math.Min(st.min, v)
			st.max = math.Max(st.max, v)
			sum += v
		}
		if n := len(values); n > 0 {
			st.mean = sum / float64(n)
		}
		stats = append(stats, st)
	}
	return []*phase{files, load, master, scores}, stats
}

func renderStats(w io.Writer, stats []columnStats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Column", "Nonzero", "Min", "Max", "Mean")
	for _, st := range stats {
		if err := table.Append([]string{
			st.column,
			fmt.Sprintf("%d", st.covered),
			fmt.Sprintf("%.1f", st.min),
			fmt.Sprintf("%.1f", st.max),
			fmt.Sprintf("%.1f", st.mean),
		}); err != nil {
			return fmt.Errorf("render stats: %w", err)
		}
	}
	return table.Render()
}
