package domain

import (
	"fmt"
	"math"
)

// Regulatory sub-score keys.
const (
	SubScorePermit      = "permit_score"
	SubScoreIncentive   = "incentive_score"
	SubScoreEnvironment = "env_compliance_score"
	SubScoreSupport     = "support_score"
	SubScoreSecurity    = "security_score"
)

// regulatoryKeys fixes the combination order of the weighted sum.
var regulatoryKeys = []string{
	SubScorePermit,
	SubScoreIncentive,
	SubScoreEnvironment,
	SubScoreSupport,
	SubScoreSecurity,
}

// TaxIncentives lists the incentives a site may offer. Each one is worth 20 points.
var TaxIncentives = []string{
	"Property tax abatement",
	"Sales tax exemption",
	"Investment tax credits",
	"Job creation credits",
	"Energy efficiency incentives",
}

// SecurityMeasures lists the security requirements a site may impose. Each one is worth 20 points.
var SecurityMeasures = []string{
	"24/7 security personnel",
	"Perimeter fencing",
	"Video surveillance",
	"Access control systems",
	"Background checks",
}

// LocalSupport maps the level of local government support to its score.
var LocalSupport = CategoricalMetric{
	Options: []Option{
		{Label: "Very Negative", Score: 0},
		{Label: "Negative", Score: 25},
		{Label: "Neutral", Score: 50},
		{Label: "Positive", Score: 75},
		{Label: "Very Positive", Score: 100},
	},
	Default: "Neutral",
}

// EnvironmentalRestrictions flags the environmental regulations in force. Each
// restriction costs 25 points.
type EnvironmentalRestrictions struct {
	ImpactAssessment  bool `json:"impact_assessment"`
	EmissionsLimits   bool `json:"emissions_limits"`
	WaterRestrictions bool `json:"water_restrictions"`
	NoiseRestrictions bool `json:"noise_restrictions"`
}

func (e EnvironmentalRestrictions) count() int {
	n := 0
	for _, on := range []bool{e.ImpactAssessment, e.EmissionsLimits, e.WaterRestrictions, e.NoiseRestrictions} {
		if on {
			n++
		}
	}
	return n
}

// RegulatoryInputs are the native-unit answers that produce the five regulatory sub-scores.
type RegulatoryInputs struct {
	PermitMonths     float64                   `json:"permit_months"`
	Incentives       []string                  `json:"incentives"`
	Environmental    EnvironmentalRestrictions `json:"environmental"`
	LocalSupport     string                    `json:"local_support"`
	SecurityMeasures []string                  `json:"security_measures"`
}

// RegulatorySubScores are the five independently specified regulatory scores.
type RegulatorySubScores struct {
	Permit      float64 `json:"permit_score"`
	Incentive   float64 `json:"incentive_score"`
	Environment float64 `json:"env_compliance_score"`
	Support     float64 `json:"support_score"`
	Security    float64 `json:"security_score"`
}

func (s RegulatorySubScores) byKey() map[string]float64 {
	return map[string]float64{
		SubScorePermit:      s.Permit,
		SubScoreIncentive:   s.Incentive,
		SubScoreEnvironment: s.Environment,
		SubScoreSupport:     s.Support,
		SubScoreSecurity:    s.Security,
	}
}

// RegulatoryWeights are the user-adjustable importance of each sub-score. They
// are normalized by their sum before combination, so any non-negative scale works.
type RegulatoryWeights struct {
	Permit      float64 `json:"permit"`
	Incentive   float64 `json:"incentive"`
	Environment float64 `json:"environment"`
	Support     float64 `json:"support"`
	Security    float64 `json:"security"`
}

// DefaultRegulatoryWeights weighs the five sub-scores equally (20 each).
func DefaultRegulatoryWeights() RegulatoryWeights {
	return RegulatoryWeights{Permit: 20, Incentive: 20, Environment: 20, Support: 20, Security: 20}
}

func (w RegulatoryWeights) byKey() map[string]float64 {
	return map[string]float64{
		SubScorePermit:      w.Permit,
		SubScoreIncentive:   w.Incentive,
		SubScoreEnvironment: w.Environment,
		SubScoreSupport:     w.Support,
		SubScoreSecurity:    w.Security,
	}
}

// Sum returns the raw weight total.
func (w RegulatoryWeights) Sum() float64 {
	return w.Permit + w.Incentive + w.Environment + w.Support + w.Security
}

// Normalized divides every weight by the total. A zero total is rejected
// rather than divided by.
func (w RegulatoryWeights) Normalized() (map[string]float64, error) {
	raw := w.byKey()
	for _, k := range regulatoryKeys {
		if raw[k] < 0 || math.IsNaN(raw[k]) {
			return nil, fmt.Errorf("%w: %s = %g", ErrNegativeWeight, k, raw[k])
		}
	}
	total := w.Sum()
	if total == 0 {
		return nil, ErrZeroWeights
	}
	if math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: %g", ErrWeightOverflow, total)
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		out[k] = v / total
	}
	return out, nil
}

// SubScores converts native inputs to the five regulatory sub-scores.
func (in RegulatoryInputs) SubScores() (RegulatorySubScores, error) {
	if math.IsNaN(in.PermitMonths) || in.PermitMonths < 0 {
		return RegulatorySubScores{}, fmt.Errorf("%w: permit months %g", ErrValueKind, in.PermitMonths)
	}

	incentives, err := countChoices(in.Incentives, TaxIncentives, "incentive")
	if err != nil {
		return RegulatorySubScores{}, err
	}
	security, err := countChoices(in.SecurityMeasures, SecurityMeasures, "security measure")
	if err != nil {
		return RegulatorySubScores{}, err
	}

	level := in.LocalSupport
	if level == "" {
		level = LocalSupport.Default
	}
	support, ok := LocalSupport.lookup(level)
	if !ok {
		return RegulatorySubScores{}, fmt.Errorf("%w: local support %q", ErrUnknownLabel, level)
	}

	return RegulatorySubScores{
		Permit:      clampScore(100 - in.PermitMonths*2),
		Incentive:   math.Min(100, float64(incentives)*20),
		Environment: math.Max(0, 100-float64(in.Environmental.count())*25),
		Support:     support,
		Security:    math.Min(100, float64(security)*20),
	}, nil
}

// WeightedRegulatoryScore combines sub-scores as a weighted sum of normalized
// weights. All-zero weights yield ErrZeroWeights.
func WeightedRegulatoryScore(sub RegulatorySubScores, w RegulatoryWeights) (CategoryResult, error) {
	weights, err := w.Normalized()
	if err != nil {
		return CategoryResult{}, fmt.Errorf("score %s: %w", CategoryRegulatory, err)
	}

	scores := sub.byKey()
	for _, k := range regulatoryKeys {
		if s := scores[k]; math.IsNaN(s) || s < MinScore || s > MaxScore {
			return CategoryResult{}, fmt.Errorf("%w: %s = %g outside [0,100]", ErrMalformedMetric, k, s)
		}
	}

	var overall float64
	for _, k := range regulatoryKeys {
		overall += scores[k] * weights[k]
	}

	total := w.Sum()
	sumsTo100 := total == 100
	res := CategoryResult{
		Category:        CategoryRegulatory,
		Scores:          scores,
		Weights:         weights,
		Overall:         clampScore(overall),
		WeightsSumTo100: &sumsTo100,
	}
	if !sumsTo100 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("weights sum to %g, expected 100", total))
	}
	return res, nil
}

// ScoreRegulatory scores the regulatory category from native inputs.
func ScoreRegulatory(in RegulatoryInputs, w RegulatoryWeights) (CategoryResult, error) {
	sub, err := in.SubScores()
	if err != nil {
		return CategoryResult{}, fmt.Errorf("score %s: %w", CategoryRegulatory, err)
	}
	return WeightedRegulatoryScore(sub, w)
}

// countChoices counts distinct selections, rejecting any outside the allowed set.
func countChoices(selected, allowed []string, what string) (int, error) {
	valid := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		valid[a] = struct{}{}
	}
	seen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		if _, ok := valid[s]; !ok {
			return 0, fmt.Errorf("%w: %s %q", ErrUnknownLabel, what, s)
		}
		seen[s] = struct{}{}
	}
	return len(seen), nil
}
