package mergeguard

import (
	"context"
	"sort"
	"time"
)

// Severity ranks how dangerous a conflict is.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank returns a sortable rank: lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// BaseScore maps severity to the base value used by the Risk Scorer.
func (s Severity) BaseScore() float64 {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityWarning:
		return 50
	default:
		return 15
	}
}

// ConflictKind identifies the root cause of a conflict.
type ConflictKind string

// Conflict kinds.
const (
	ConflictHard        ConflictKind = "hard"
	ConflictInterface   ConflictKind = "interface"
	ConflictBehavioral  ConflictKind = "behavioral"
	ConflictDuplication ConflictKind = "duplication"
	ConflictRegression  ConflictKind = "regression"
	ConflictGuardrail   ConflictKind = "guardrail"
)

// Conflict is a typed, severity-tagged finding between two proposals (or a
// single proposal, for regression and guardrail kinds where Source == the
// analyzed proposal and Target references the originating proposal or itself).
type Conflict struct {
	Kind           ConflictKind `json:"kind"`
	Severity       Severity     `json:"severity"`
	Source         int          `json:"source"`
	Target         int          `json:"target"`
	File           string       `json:"file"`
	Symbol         string       `json:"symbol,omitempty"`
	Description    string       `json:"description"`
	Recommendation string       `json:"recommendation,omitempty"`
	SourceLines    []LineRange  `json:"source_lines,omitempty"`
	TargetLines    []LineRange  `json:"target_lines,omitempty"`
}

// Mentions reports whether the conflict involves the given proposal.
func (c Conflict) Mentions(number int) bool {
	return c.Source == number || c.Target == number
}

// SortConflicts establishes the deterministic report order: severity first,
// then proposal identifiers, then file and symbol.
func SortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Symbol < b.Symbol
	})
}

// SharedSymbol is a symbol changed by both sides of an overlap.
type SharedSymbol struct {
	Name string        `json:"name"`
	A    ChangedSymbol `json:"a"`
	B    ChangedSymbol `json:"b"`

	// DirectOverlap is true when the two sides' touched line ranges
	// intersect, not merely share the enclosing symbol.
	DirectOverlap bool `json:"direct_overlap"`
}

// Overlap records that two proposals touch the same file, with the line
// ranges and symbol attributions on each side.
type Overlap struct {
	File   string         `json:"file"`
	A      int            `json:"a"`
	B      int            `json:"b"`
	ALines []LineRange    `json:"a_lines,omitempty"`
	BLines []LineRange    `json:"b_lines,omitempty"`
	Shared []SharedSymbol `json:"shared,omitempty"`

	// AUnattributed and BUnattributed are the modified ranges on each side
	// that fall outside every known symbol. They stay usable for hard
	// detection even when the file carries full symbol coverage.
	AUnattributed []LineRange `json:"a_unattributed,omitempty"`
	BUnattributed []LineRange `json:"b_unattributed,omitempty"`

	// CoarseFallback is set when symbol-level classification was skipped
	// for this file (unsupported language or missing symbol data).
	CoarseFallback bool `json:"coarse_fallback,omitempty"`
}

// HasLineOverlap reports whether at least one line range from each side
// intersects. It is symmetric in A and B.
func (o Overlap) HasLineOverlap() bool {
	return RangesIntersect(o.ALines, o.BLines)
}

// DecisionKind classifies a durable fact learned from a merged proposal.
type DecisionKind string

// Decision kinds.
const (
	DecisionRemoval   DecisionKind = "removal"
	DecisionMigration DecisionKind = "migration"
	DecisionAddition  DecisionKind = "addition"
)

// Decision is an entry in the append-only decisions log, written by a
// merge-time extraction step outside the core and read here for regression
// detection.
type Decision struct {
	Kind        DecisionKind `json:"kind"`
	Entity      string       `json:"entity"`
	Module      string       `json:"module,omitempty"`
	File        string       `json:"file,omitempty"`
	Pattern     string       `json:"pattern,omitempty"` // superseded content signature for migrations
	Description string       `json:"description,omitempty"`
	Proposal    int          `json:"proposal"`
	Author      string       `json:"author,omitempty"`
	MergedAt    time.Time    `json:"merged_at"`
}

// DecisionStore supplies the most recent decisions, newest first. The core
// treats the log as read-only.
type DecisionStore interface {
	Recent(ctx context.Context, limit int) ([]Decision, error)
}

// SimilarityFunc scores how similar two symbols are, in [0,1]. It is an
// optional strategy: a nil function disables duplication detection.
type SimilarityFunc func(a, b ChangedSymbol) float64

// Adjudicator is an optional semantic signal that may refine the severity of
// a behavioral conflict. The second return value reports whether the
// adjudicator produced a verdict; false leaves the deterministic default.
type Adjudicator interface {
	Adjudicate(ctx context.Context, conflict Conflict, sourceDiff, targetDiff string) (Severity, bool, error)
}

// ChurnProvider supplies a per-file historical revert/hotfix rate in [0,1].
type ChurnProvider interface {
	Churn(ctx context.Context, filePath string) (float64, error)
}

// AttributionFunc scores the confidence that a proposal is machine-generated,
// in [0,1].
type AttributionFunc func(p *Proposal) float64

// GlobFunc matches a path against a glob-style pattern (supporting **).
type GlobFunc func(pattern, path string) bool

// PathMatcher reports whether a path matches a compiled pattern set, used for
// ignored-path filtering.
type PathMatcher interface {
	Matches(path string) bool
}

// Cache is a side channel for file content and extraction results, keyed by
// (path, content ref). Implementations must be safe for concurrent use. A
// cache miss must never change an analysis result, only its latency.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}
