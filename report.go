package mergeguard

import "time"

// Risk factor names, used as RiskBreakdown keys.
const (
	FactorConflictSeverity = "conflict_severity"
	FactorBlastRadius      = "blast_radius"
	FactorPatternDeviation = "pattern_deviation"
	FactorChurn            = "churn"
	FactorAttribution      = "attribution"
)

// Factor is one component of a risk score: its raw value, its weighted
// contribution to the composite, and whether the backing signal was available.
type Factor struct {
	Raw       float64 `json:"raw"`
	Weighted  float64 `json:"weighted"`
	Available bool    `json:"available"`
}

// RiskBreakdown is the transparent per-factor decomposition of a composite
// risk score. One breakdown exists per proposal per analysis run.
type RiskBreakdown struct {
	Factors map[string]Factor `json:"factors"`
	Weights RiskWeights       `json:"weights"`
	Score   float64           `json:"score"` // clamped to [0,100]
}

// Report is the full analysis result for a single proposal.
type Report struct {
	Proposal       *Proposal     `json:"proposal"`
	Conflicts      []Conflict    `json:"conflicts"`
	Risk           RiskBreakdown `json:"risk"`
	NoConflictWith []int         `json:"no_conflict_with,omitempty"`
	Degraded       []string      `json:"degraded,omitempty"` // coarse-fallback and partial-result notes
	Err            string        `json:"error,omitempty"`    // per-proposal analysis failure annotation
	RunID          string        `json:"run_id"`
	AnalyzedAt     time.Time     `json:"analyzed_at"`
	Duration       time.Duration `json:"duration"`
}

// HasCritical reports whether any conflict is critical.
func (r *Report) HasCritical() bool {
	for _, c := range r.Conflicts {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CountBySeverity tallies conflicts per severity.
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, c := range r.Conflicts {
		counts[c.Severity]++
	}
	return counts
}
