package mergeguard

import (
	"math"
	"sort"
)

// RiskInput carries the signals combined into one composite score. Auxiliary
// signals are optional: an unavailable signal contributes a neutral zero and
// is marked unavailable in the breakdown.
type RiskInput struct {
	Conflicts []Conflict

	// BlastRadius is the count of distinct files reachable from the
	// proposal's touched files over the reverse dependency graph.
	BlastRadius int

	PatternDeviation          float64
	PatternDeviationAvailable bool

	Churn          float64
	ChurnAvailable bool

	Attribution          float64
	AttributionAvailable bool
}

// ScoreRisk combines all detected conflicts and auxiliary signals into a
// composite score in [0,100] with a transparent per-factor breakdown. A
// proposal with zero conflicts, zero dependents, and neutral signals scores
// exactly 0.
func ScoreRisk(in RiskInput, weights RiskWeights, saturation int) RiskBreakdown {
	if saturation <= 0 {
		saturation = DefaultBlastRadiusSat
	}

	factors := map[string]Factor{
		FactorConflictSeverity: {Raw: conflictFactor(in.Conflicts), Available: true},
		FactorBlastRadius:      {Raw: math.Min(1, float64(in.BlastRadius)/float64(saturation)), Available: true},
		FactorPatternDeviation: {Raw: neutralUnless(in.PatternDeviation, in.PatternDeviationAvailable), Available: in.PatternDeviationAvailable},
		FactorChurn:            {Raw: neutralUnless(in.Churn, in.ChurnAvailable), Available: in.ChurnAvailable},
		FactorAttribution:      {Raw: neutralUnless(in.Attribution, in.AttributionAvailable), Available: in.AttributionAvailable},
	}

	weightOf := map[string]float64{
		FactorConflictSeverity: weights.ConflictSeverity,
		FactorBlastRadius:      weights.BlastRadius,
		FactorPatternDeviation: weights.PatternDeviation,
		FactorChurn:            weights.Churn,
		FactorAttribution:      weights.Attribution,
	}

	composite := 0.0
	for name, f := range factors {
		f.Weighted = f.Raw * weightOf[name] * 100
		factors[name] = f
		composite += f.Weighted
	}

	return RiskBreakdown{
		Factors: factors,
		Weights: weights,
		Score:   math.Min(100, math.Max(0, composite)),
	}
}

// conflictFactor maps severities to base values (critical=100, warning=50,
// info=15) and accumulates them with diminishing returns: sorted descending,
// each successive conflict contributes value * 0.5^i. The sum is divided by
// 100 but deliberately not clamped, so more conflicts always score strictly
// higher; the composite is clamped instead.
func conflictFactor(conflicts []Conflict) float64 {
	if len(conflicts) == 0 {
		return 0
	}
	values := make([]float64, 0, len(conflicts))
	for _, c := range conflicts {
		values = append(values, c.Severity.BaseScore())
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	total := 0.0
	for i, v := range values {
		total += v * math.Pow(0.5, float64(i))
	}
	return total / 100
}

func neutralUnless(v float64, available bool) float64 {
	if !available {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

// ShapeStats is the running average of symbol shapes within a module, used
// as the baseline for pattern deviation.
type ShapeStats struct {
	Count      int
	Lines      float64
	Params     float64
	Complexity float64
}

// Observe folds one symbol into the running average.
func (s *ShapeStats) Observe(sym Symbol) {
	n := float64(s.Count)
	s.Lines = (s.Lines*n + float64(sym.Lines())) / (n + 1)
	s.Params = (s.Params*n + float64(len(sym.Params))) / (n + 1)
	s.Complexity = (s.Complexity*n + float64(sym.Complexity)) / (n + 1)
	s.Count++
}

// PatternDeviation compares each changed symbol's shape (line count,
// parameter count, complexity) against its module's running average and
// returns the mean deviation normalized into [0,1] with a saturating
// function, so no single huge function can dominate beyond 1.0.
func PatternDeviation(changed []ChangedSymbol, stats map[string]*ShapeStats) (float64, bool) {
	total := 0.0
	n := 0
	for _, cs := range changed {
		if cs.Change == ChangeRemoved {
			continue
		}
		base, ok := stats[cs.Symbol.Module]
		if !ok || base.Count == 0 {
			continue
		}
		d := relativeDeviation(float64(cs.Symbol.Lines()), base.Lines) +
			relativeDeviation(float64(len(cs.Symbol.Params)), base.Params) +
			relativeDeviation(float64(cs.Symbol.Complexity), base.Complexity)
		d /= 3
		total += d / (d + 1) // saturate
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

func relativeDeviation(v, baseline float64) float64 {
	if baseline == 0 {
		if v == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(v-baseline) / baseline
}
