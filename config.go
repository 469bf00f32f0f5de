package mergeguard

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// Default configuration values, mirroring the shipped defaults.
const (
	DefaultRiskThreshold        = 50
	DefaultMaxOpenProposals     = 30
	DefaultDecisionsDepth       = 50
	DefaultDuplicationThreshold = 0.7
	DefaultBlastRadiusDepth     = 5
	DefaultBlastRadiusSat       = 50
	DefaultWorkers              = 4
	DefaultRecencyWindow        = 14 * 24 * time.Hour
)

// DefaultIgnoredPaths are file globs excluded from analysis by default.
var DefaultIgnoredPaths = []string{
	"*.lock",
	"*.min.js",
	"*.min.css",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"poetry.lock",
}

// RiskWeights are the per-factor weights of the composite risk score.
// They must sum to 1.0.
type RiskWeights struct {
	ConflictSeverity float64 `json:"conflict_severity" yaml:"conflict_severity"`
	BlastRadius      float64 `json:"blast_radius" yaml:"blast_radius"`
	PatternDeviation float64 `json:"pattern_deviation" yaml:"pattern_deviation"`
	Churn            float64 `json:"churn" yaml:"churn"`
	Attribution      float64 `json:"attribution" yaml:"attribution"`
}

// DefaultRiskWeights returns the standard weight distribution.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		ConflictSeverity: 0.30,
		BlastRadius:      0.25,
		PatternDeviation: 0.20,
		Churn:            0.15,
		Attribution:      0.10,
	}
}

// Validate checks that all weights are non-negative and sum to 1.0.
func (w RiskWeights) Validate() error {
	for name, v := range map[string]float64{
		FactorConflictSeverity: w.ConflictSeverity,
		FactorBlastRadius:      w.BlastRadius,
		FactorPatternDeviation: w.PatternDeviation,
		FactorChurn:            w.Churn,
		FactorAttribution:      w.Attribution,
	} {
		if v < 0 {
			return fmt.Errorf("risk weight %q is negative: %v", name, v)
		}
	}
	sum := w.ConflictSeverity + w.BlastRadius + w.PatternDeviation + w.Churn + w.Attribution
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("risk weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// WhenMachineAuthored is the guardrail activation predicate that limits a
// rule to machine-authored proposals.
const WhenMachineAuthored = "machine-authored"

// GuardrailRule is a declarative repository policy rule. Zero-valued limits
// are disabled.
type GuardrailRule struct {
	Name             string   `json:"name" yaml:"name"`
	Pattern          string   `json:"pattern,omitempty" yaml:"pattern"` // file scope glob
	When             string   `json:"when,omitempty" yaml:"when"`
	Severity         Severity `json:"severity,omitempty" yaml:"severity"`
	CannotImportFrom []string `json:"cannot_import_from,omitempty" yaml:"cannot_import_from"`
	MustNotContain   []string `json:"must_not_contain,omitempty" yaml:"must_not_contain"` // regular expressions
	MaxFilesChanged  int      `json:"max_files_changed,omitempty" yaml:"max_files_changed"`
	MaxLinesChanged  int      `json:"max_lines_changed,omitempty" yaml:"max_lines_changed"`
	MaxFunctionLines int      `json:"max_function_lines,omitempty" yaml:"max_function_lines"`
	MaxComplexity    int      `json:"max_complexity,omitempty" yaml:"max_complexity"`
	Message          string   `json:"message,omitempty" yaml:"message"`
}

// EffectiveSeverity returns the rule's severity, defaulting to warning.
func (r GuardrailRule) EffectiveSeverity() Severity {
	if r.Severity == "" {
		return SeverityWarning
	}
	return r.Severity
}

// Validate rejects malformed rules before any proposal is analyzed.
func (r GuardrailRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("guardrail rule without a name")
	}
	if r.When != "" && r.When != WhenMachineAuthored {
		return fmt.Errorf("guardrail rule %q: unknown activation predicate %q", r.Name, r.When)
	}
	switch r.Severity {
	case "", SeverityCritical, SeverityWarning, SeverityInfo:
	default:
		return fmt.Errorf("guardrail rule %q: unknown severity %q", r.Name, r.Severity)
	}
	for _, expr := range r.MustNotContain {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("guardrail rule %q: invalid content pattern %q: %w", r.Name, expr, err)
		}
	}
	if len(r.CannotImportFrom) == 0 && len(r.MustNotContain) == 0 &&
		r.MaxFilesChanged == 0 && r.MaxLinesChanged == 0 &&
		r.MaxFunctionLines == 0 && r.MaxComplexity == 0 {
		return fmt.Errorf("guardrail rule %q has no constraints", r.Name)
	}
	return nil
}

// Config is the fixed set of named options consumed by the core. The core
// receives it already validated; it never parses configuration files itself.
type Config struct {
	RiskThreshold           int             `json:"risk_threshold" yaml:"risk_threshold"`
	CheckRegressions        bool            `json:"check_regressions" yaml:"check_regressions"`
	MaxOpenProposals        int             `json:"max_open_proposals" yaml:"max_open_proposals"`
	DecisionsDepth          int             `json:"decisions_depth" yaml:"decisions_depth"`
	RegressionRecencyWindow time.Duration   `json:"regression_recency_window" yaml:"regression_recency_window"`
	DuplicationThreshold    float64         `json:"duplication_threshold" yaml:"duplication_threshold"`
	BlastRadiusDepth        int             `json:"blast_radius_depth" yaml:"blast_radius_depth"`
	BlastRadiusSaturation   int             `json:"blast_radius_saturation" yaml:"blast_radius_saturation"`
	Workers                 int             `json:"workers" yaml:"workers"`
	Deadline                time.Duration   `json:"deadline" yaml:"deadline"`
	Weights                 RiskWeights     `json:"weights" yaml:"weights"`
	Rules                   []GuardrailRule `json:"rules,omitempty" yaml:"rules"`
	IgnoredPaths            []string        `json:"ignored_paths,omitempty" yaml:"ignored_paths"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		RiskThreshold:           DefaultRiskThreshold,
		CheckRegressions:        true,
		MaxOpenProposals:        DefaultMaxOpenProposals,
		DecisionsDepth:          DefaultDecisionsDepth,
		RegressionRecencyWindow: DefaultRecencyWindow,
		DuplicationThreshold:    DefaultDuplicationThreshold,
		BlastRadiusDepth:        DefaultBlastRadiusDepth,
		BlastRadiusSaturation:   DefaultBlastRadiusSat,
		Workers:                 DefaultWorkers,
		Weights:                 DefaultRiskWeights(),
		IgnoredPaths:            append([]string(nil), DefaultIgnoredPaths...),
	}
}

// Validate checks the configuration. Errors here are fatal at load time.
func (c Config) Validate() error {
	if c.MaxOpenProposals <= 0 {
		return fmt.Errorf("max_open_proposals must be positive, got %d", c.MaxOpenProposals)
	}
	if c.DecisionsDepth < 0 {
		return fmt.Errorf("decisions_depth must be non-negative, got %d", c.DecisionsDepth)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.BlastRadiusDepth <= 0 {
		return fmt.Errorf("blast_radius_depth must be positive, got %d", c.BlastRadiusDepth)
	}
	if c.BlastRadiusSaturation <= 0 {
		return fmt.Errorf("blast_radius_saturation must be positive, got %d", c.BlastRadiusSaturation)
	}
	if c.DuplicationThreshold < 0 || c.DuplicationThreshold > 1 {
		return fmt.Errorf("duplication_threshold must be in [0,1], got %v", c.DuplicationThreshold)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	for _, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}
