package mergeguard

import (
	"fmt"
	"strings"
	"time"
)

// DetectRegressions cross-references a proposal's changed symbols and files
// against the most recent decisions. Matching is name/module-exact for
// removals and file-exact for migrations, so an addition unrelated to any
// decision can never produce a conflict. A removal decision younger than
// recencyWindow escalates the finding to critical.
func DetectRegressions(p *Proposal, decisions []Decision, recencyWindow time.Duration, now time.Time) []Conflict {
	var conflicts []Conflict

	for _, d := range decisions {
		switch d.Kind {
		case DecisionRemoval:
			cs, ok := readdedSymbol(p, d)
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Kind:     ConflictRegression,
				Severity: regressionSeverity(d, recencyWindow, now),
				Source:   p.Number,
				Target:   d.Proposal,
				File:     cs.Symbol.File,
				Symbol:   d.Entity,
				Description: fmt.Sprintf("this proposal re-adds %q, which was deliberately removed in proposal #%d (%s)",
					d.Entity, d.Proposal, d.Description),
				Recommendation: fmt.Sprintf("check whether re-introducing %q is intentional; the removal was made by @%s in proposal #%d",
					d.Entity, d.Author, d.Proposal),
			})

		case DecisionMigration:
			file, ok := reintroducedPattern(p, d)
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Kind:     ConflictRegression,
				Severity: regressionSeverity(d, recencyWindow, now),
				Source:   p.Number,
				Target:   d.Proposal,
				File:     file,
				Symbol:   d.Entity,
				Description: fmt.Sprintf("this proposal reintroduces the pattern %q superseded in proposal #%d (%s)",
					d.Entity, d.Proposal, d.Description),
				Recommendation: fmt.Sprintf("use the replacement pattern instead; see proposal #%d", d.Proposal),
			})

		case DecisionAddition:
			// Additions carry no regression rule.
		}
	}

	return conflicts
}

// readdedSymbol finds a symbol the proposal adds with the same name and
// module as a removal decision.
func readdedSymbol(p *Proposal, d Decision) (ChangedSymbol, bool) {
	for _, cs := range p.Symbols {
		if cs.Change != ChangeAdded || cs.Symbol.Name != d.Entity {
			continue
		}
		if d.Module != "" && cs.Symbol.Module != d.Module {
			continue
		}
		return cs, true
	}
	return ChangedSymbol{}, false
}

// reintroducedPattern checks whether the proposal's newly added lines in the
// migration's file (or any file, when the decision names none) match the old
// pattern's content signature.
func reintroducedPattern(p *Proposal, d Decision) (string, bool) {
	for _, f := range p.Files {
		if d.File != "" && f.Path != d.File {
			continue
		}
		if d.Pattern == "" {
			if d.File != "" {
				return f.Path, true
			}
			continue
		}
		for _, line := range f.AddedLines() {
			if strings.Contains(line, d.Pattern) {
				return f.Path, true
			}
		}
	}
	return "", false
}

func regressionSeverity(d Decision, window time.Duration, now time.Time) Severity {
	if window > 0 && now.Sub(d.MergedAt) <= window {
		return SeverityCritical
	}
	return SeverityWarning
}
