package mergeguard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
)

func scoreConflicts(conflicts ...mergeguard.Conflict) mergeguard.RiskBreakdown {
	return mergeguard.ScoreRisk(mergeguard.RiskInput{Conflicts: conflicts},
		mergeguard.DefaultRiskWeights(), mergeguard.DefaultBlastRadiusSat)
}

func critical() mergeguard.Conflict {
	return mergeguard.Conflict{Kind: mergeguard.ConflictHard, Severity: mergeguard.SeverityCritical}
}

func TestScoreRisk_CleanProposalScoresZero(t *testing.T) {
	t.Parallel()

	breakdown := mergeguard.ScoreRisk(mergeguard.RiskInput{},
		mergeguard.DefaultRiskWeights(), mergeguard.DefaultBlastRadiusSat)

	assert.Zero(t, breakdown.Score)
	require.Contains(t, breakdown.Factors, mergeguard.FactorChurn)
	assert.False(t, breakdown.Factors[mergeguard.FactorChurn].Available)
	assert.True(t, breakdown.Factors[mergeguard.FactorConflictSeverity].Available)
}

func TestScoreRisk_MonotonicInConflicts(t *testing.T) {
	t.Parallel()

	one := scoreConflicts(critical()).Score
	two := scoreConflicts(critical(), critical()).Score
	three := scoreConflicts(critical(), critical(), critical()).Score

	assert.Greater(t, two, one)
	assert.Greater(t, three, two)
	// Diminishing returns: the third critical adds less than the first.
	assert.Less(t, three, 3*one)
}

func TestScoreRisk_SeverityOrdering(t *testing.T) {
	t.Parallel()

	info := scoreConflicts(mergeguard.Conflict{Severity: mergeguard.SeverityInfo}).Score
	warning := scoreConflicts(mergeguard.Conflict{Severity: mergeguard.SeverityWarning}).Score
	crit := scoreConflicts(critical()).Score

	assert.Greater(t, warning, info)
	assert.Greater(t, crit, warning)
}

func TestScoreRisk_ClampedAt100(t *testing.T) {
	t.Parallel()

	var many []mergeguard.Conflict
	for range 40 {
		many = append(many, critical())
	}
	breakdown := mergeguard.ScoreRisk(mergeguard.RiskInput{
		Conflicts:            many,
		BlastRadius:          500,
		Churn:                1,
		ChurnAvailable:       true,
		Attribution:          1,
		AttributionAvailable: true,
	}, mergeguard.DefaultRiskWeights(), mergeguard.DefaultBlastRadiusSat)

	assert.LessOrEqual(t, breakdown.Score, 100.0)
	assert.Equal(t, 100.0, breakdown.Score)
}

func TestScoreRisk_BlastRadiusSaturates(t *testing.T) {
	t.Parallel()

	at := func(radius int) float64 {
		return mergeguard.ScoreRisk(mergeguard.RiskInput{BlastRadius: radius},
			mergeguard.DefaultRiskWeights(), 50).Factors[mergeguard.FactorBlastRadius].Raw
	}

	assert.InDelta(t, 0.2, at(10), 1e-9)
	assert.Equal(t, 1.0, at(50))
	assert.Equal(t, 1.0, at(5000))
}

func TestScoreRisk_UnavailableSignalsAreNeutral(t *testing.T) {
	t.Parallel()

	// A high churn value without the available flag must not move the score.
	without := mergeguard.ScoreRisk(mergeguard.RiskInput{Churn: 0.9},
		mergeguard.DefaultRiskWeights(), mergeguard.DefaultBlastRadiusSat)
	assert.Zero(t, without.Score)

	with := mergeguard.ScoreRisk(mergeguard.RiskInput{Churn: 0.9, ChurnAvailable: true},
		mergeguard.DefaultRiskWeights(), mergeguard.DefaultBlastRadiusSat)
	assert.Greater(t, with.Score, 0.0)
}

func TestShapeStats_Observe(t *testing.T) {
	t.Parallel()

	var s mergeguard.ShapeStats
	s.Observe(mergeguard.Symbol{StartLine: 1, EndLine: 10, Complexity: 2})
	s.Observe(mergeguard.Symbol{StartLine: 1, EndLine: 30, Complexity: 4})

	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 20, s.Lines, 1e-9)
	assert.InDelta(t, 3, s.Complexity, 1e-9)
}

func TestPatternDeviation(t *testing.T) {
	t.Parallel()

	stats := map[string]*mergeguard.ShapeStats{}
	base := &mergeguard.ShapeStats{}
	for range 10 {
		base.Observe(mergeguard.Symbol{StartLine: 1, EndLine: 20, Complexity: 3})
	}
	stats["auth"] = base

	typical := []mergeguard.ChangedSymbol{{
		Symbol: mergeguard.Symbol{Module: "auth", StartLine: 1, EndLine: 20, Complexity: 3},
		Change: mergeguard.ChangeAdded,
	}}
	outlier := []mergeguard.ChangedSymbol{{
		Symbol: mergeguard.Symbol{Module: "auth", StartLine: 1, EndLine: 400, Complexity: 45},
		Change: mergeguard.ChangeAdded,
	}}

	low, ok := mergeguard.PatternDeviation(typical, stats)
	require.True(t, ok)
	high, ok := mergeguard.PatternDeviation(outlier, stats)
	require.True(t, ok)

	assert.Less(t, low, 0.1)
	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 1.0)

	// No baseline for the module means the signal is unavailable.
	_, ok = mergeguard.PatternDeviation([]mergeguard.ChangedSymbol{{
		Symbol: mergeguard.Symbol{Module: "billing"},
		Change: mergeguard.ChangeAdded,
	}}, stats)
	assert.False(t, ok)
}
