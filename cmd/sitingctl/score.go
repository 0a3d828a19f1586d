package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/siting-explorer/internal/catalog"
	"github.com/couchcryptid/siting-explorer/internal/domain"
)

var errBadArgument = errors.New("expected key=value")

func newScoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score CATEGORY [key=value ...]",
		Short: "Score one category from native inputs",
		Long: `Normalizes raw inputs to [0, 100] and prints each metric score and the
category score. Metrics left out use their default. Numbers are read as
numbers and anything else as a label.

The regulatory category takes permit_months, local_support, and
semicolon-separated lists for incentives, security_measures, and
environmental (impact_assessment, emissions_limits, water_restrictions,
noise_restrictions).`,
		Example: `  sitingctl score power cost=45 reg_change=Neutral
  sitingctl score regulatory permit_months=6 local_support=Positive "incentives=Sales tax exemption"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := domain.ParseCategory(args[0])
			if err != nil {
				return err
			}
			var res domain.CategoryResult
			if cat == domain.CategoryRegulatory {
				in, err := parseRegulatoryArgs(args[1:])
				if err != nil {
					return err
				}
				res, err = domain.ScoreRegulatory(in, domain.DefaultRegulatoryWeights())
				if err != nil {
					return err
				}
			} else {
				c, err := catalog.Load(opts.catalogPath)
				if err != nil {
					return err
				}
				spec, err := c.Spec(cat)
				if err != nil {
					return err
				}
				inputs, err := parseInputs(args[1:])
				if err != nil {
					return err
				}
				res, err = domain.ScoreCategory(inputs, spec)
				if err != nil {
					return err
				}
			}
			return renderResult(cmd.OutOrStdout(), res)
		},
	}
}

// parseInputs reads key=value arguments. Values that parse as floats become
// numbers; everything else is a label.
func parseInputs(args []string) (map[string]domain.Value, error) {
	inputs := make(map[string]domain.Value, len(args))
	for _, a := range args {
		k, v, ok := splitKV(a)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errBadArgument, a)
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			inputs[k] = domain.Number(n)
		} else {
			inputs[k] = domain.Label(v)
		}
	}
	return inputs, nil
}

func parseRegulatoryArgs(args []string) (domain.RegulatoryInputs, error) {
	var in domain.RegulatoryInputs
	for _, a := range args {
		k, v, ok := splitKV(a)
		if !ok {
			return in, fmt.Errorf("%w: %q", errBadArgument, a)
		}
		switch k {
		case "permit_months":
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return in, fmt.Errorf("permit_months: %w", err)
			}
			in.PermitMonths = n
		case "local_support":
			in.LocalSupport = v
		case "incentives":
			in.Incentives = splitList(v)
		case "security_measures":
			in.SecurityMeasures = splitList(v)
		case "environmental":
			for _, r := range splitList(v) {
				switch r {
				case "impact_assessment":
					in.Environmental.ImpactAssessment = true
				case "emissions_limits":
					in.Environmental.EmissionsLimits = true
				case "water_restrictions":
					in.Environmental.WaterRestrictions = true
				case "noise_restrictions":
					in.Environmental.NoiseRestrictions = true
				default:
					return in, fmt.Errorf("%w: environmental restriction %q", domain.ErrUnknownLabel, r)
				}
			}
		default:
			return in, fmt.Errorf("%w: regulatory input %q", domain.ErrUnknownMetric, k)
		}
	}
	return in, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func renderResult(w io.Writer, res domain.CategoryResult) error {
	keys := make([]string, 0, len(res.Scores))
	for k := range res.Scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Score")
	for _, k := range keys {
		if err := table.Append([]string{k, fmt.Sprintf("%.1f", res.Scores[k])}); err != nil {
			return fmt.Errorf("render result: %w", err)
		}
	}
	table.Footer("Overall", fmt.Sprintf("%.1f", res.Overall))
	if err := table.Render(); err != nil {
		return err
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
