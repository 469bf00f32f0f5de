package mergeguard

import (
	"fmt"
	"slices"
)

// ClassifyInput carries everything the Conflict Classifier needs for one
// proposal pair.
type ClassifyInput struct {
	A, B     *Proposal
	Overlaps []Overlap
	Graph    *DependencyGraph

	// Similarity is the optional duplication measure; nil disables
	// duplication detection.
	Similarity           SimilarityFunc
	DuplicationThreshold float64

	// DependentsDepth caps the dependency-graph traversal for interface
	// conflicts. Zero means DefaultBlastRadiusDepth.
	DependentsDepth int
}

// Classify turns the overlap set for a proposal pair into typed conflicts.
// Rules are evaluated per overlapping symbol in fixed priority order (hard,
// interface, behavioral, duplication) and the first matching rule wins per
// symbol, so one root cause is never classified twice.
func Classify(in ClassifyInput) []Conflict {
	depth := in.DependentsDepth
	if depth <= 0 {
		depth = DefaultBlastRadiusDepth
	}

	var conflicts []Conflict
	classified := make(map[string]bool) // "file:name" of symbols already matched

	for _, ov := range in.Overlaps {
		for _, sh := range ov.Shared {
			key := ov.File + ":" + sh.Name
			if classified[key] {
				continue
			}

			// 1. Hard: both sides edit or remove the symbol at directly
			// intersecting lines.
			if modifiesOrRemoves(sh.A.Change) && modifiesOrRemoves(sh.B.Change) && sh.DirectOverlap {
				conflicts = append(conflicts, Conflict{
					Kind:           ConflictHard,
					Severity:       SeverityCritical,
					Source:         in.A.Number,
					Target:         in.B.Number,
					File:           ov.File,
					Symbol:         sh.Name,
					Description:    fmt.Sprintf("both proposals modify %q in %s at overlapping lines", sh.Name, ov.File),
					Recommendation: "coordinate with the other author; merge one proposal first, then rebase the other",
					SourceLines:    sh.A.Touched,
					TargetLines:    sh.B.Touched,
				})
				classified[key] = true
				continue
			}

			// 2. Interface: a signature change whose callers the other
			// proposal touches.
			if c, ok := interfaceConflict(in.A, in.B, sh.A, in.Graph, depth); ok {
				conflicts = append(conflicts, c)
				classified[key] = true
				continue
			}
			if c, ok := interfaceConflict(in.B, in.A, sh.B, in.Graph, depth); ok {
				conflicts = append(conflicts, c)
				classified[key] = true
				continue
			}

			// 3. Behavioral: same body, disjoint lines.
			if sh.A.Change == ChangeBodyModified && sh.B.Change == ChangeBodyModified && !sh.DirectOverlap {
				conflicts = append(conflicts, Conflict{
					Kind:           ConflictBehavioral,
					Severity:       SeverityWarning,
					Source:         in.A.Number,
					Target:         in.B.Number,
					File:           ov.File,
					Symbol:         sh.Name,
					Description:    fmt.Sprintf("both proposals modify %q in %s at different lines; the changes may interact", sh.Name, ov.File),
					Recommendation: "review both changes for semantic compatibility",
					SourceLines:    sh.A.Touched,
					TargetLines:    sh.B.Touched,
				})
				classified[key] = true
			}
		}

		// File-level hard conflict when directly overlapping spans fall
		// outside any known symbol: the whole file under coarse fallback,
		// otherwise the unattributed remainder of each side. Spans between
		// symbols stay usable for hard detection even when the same file
		// also carries symbol-level findings.
		aOutside, bOutside := ov.AUnattributed, ov.BUnattributed
		if ov.CoarseFallback {
			aOutside, bOutside = ov.ALines, ov.BLines
		}
		if RangesIntersect(aOutside, bOutside) {
			conflicts = append(conflicts, Conflict{
				Kind:           ConflictHard,
				Severity:       SeverityWarning,
				Source:         in.A.Number,
				Target:         in.B.Number,
				File:           ov.File,
				Description:    fmt.Sprintf("both proposals modify %s at overlapping line ranges", ov.File),
				Recommendation: "review both changes for compatibility; consider merging one proposal first",
				SourceLines:    aOutside,
				TargetLines:    bOutside,
			})
		}
	}

	// Interface conflicts for signature changes in files the other proposal
	// never touches directly (callers reached through the import graph).
	conflicts = append(conflicts, crossFileInterfaceConflicts(in, depth, classified)...)

	// 4. Duplication: both proposals introduce similar new symbols in the
	// same module.
	conflicts = append(conflicts, duplicationConflicts(in, classified)...)

	return conflicts
}

func modifiesOrRemoves(k ChangeKind) bool {
	return k == ChangeBodyModified || k == ChangeRemoved
}

// interfaceConflict checks whether cs (owned by p) is a signature change that
// breaks a caller inside other. Severity is critical when the call site sits
// inside the other proposal's touched ranges, warning when the dependency is
// only visible through the import graph.
func interfaceConflict(p, other *Proposal, cs ChangedSymbol, graph *DependencyGraph, depth int) (Conflict, bool) {
	if cs.Change != ChangeSignatureModified || graph == nil {
		return Conflict{}, false
	}

	dependents := graph.Dependents(cs.Symbol.File, depth)

	for _, ocs := range other.Symbols {
		if !slices.Contains(ocs.Symbol.Calls, cs.Symbol.Name) {
			continue
		}
		_, dependent := dependents[ocs.Symbol.File]
		if !dependent && ocs.Symbol.File != cs.Symbol.File {
			continue
		}
		severity := SeverityWarning
		if len(ocs.Touched) > 0 {
			severity = SeverityCritical
		}
		return Conflict{
			Kind:     ConflictInterface,
			Severity: severity,
			Source:   p.Number,
			Target:   other.Number,
			File:     cs.Symbol.File,
			Symbol:   cs.Symbol.Name,
			Description: fmt.Sprintf("proposal #%d changes the signature of %q, but proposal #%d calls it with the old signature in %s",
				p.Number, cs.Symbol.Name, other.Number, ocs.Symbol.File),
			Recommendation: "update the caller to the new signature, or merge the signature change first and rebase",
			SourceLines:    cs.Touched,
			TargetLines:    ocs.Touched,
		}, true
	}

	// No symbol-level caller data: fall back to a file-level import match.
	for path := range other.FilePaths() {
		if _, ok := dependents[path]; !ok {
			continue
		}
		if other.SymbolCoverage[path] {
			continue // covered files were already checked symbol-by-symbol
		}
		return Conflict{
			Kind:     ConflictInterface,
			Severity: SeverityWarning,
			Source:   p.Number,
			Target:   other.Number,
			File:     cs.Symbol.File,
			Symbol:   cs.Symbol.Name,
			Description: fmt.Sprintf("proposal #%d changes the signature of %q while proposal #%d touches dependent file %s",
				p.Number, cs.Symbol.Name, other.Number, path),
			Recommendation: "verify the dependent file against the new signature",
			SourceLines:    cs.Touched,
		}, true
	}

	return Conflict{}, false
}

func crossFileInterfaceConflicts(in ClassifyInput, depth int, classified map[string]bool) []Conflict {
	var conflicts []Conflict
	check := func(p, other *Proposal) {
		for _, cs := range p.Symbols {
			key := cs.Symbol.File + ":" + cs.Symbol.Name
			if classified[key] {
				continue
			}
			if c, ok := interfaceConflict(p, other, cs, in.Graph, depth); ok {
				conflicts = append(conflicts, c)
				classified[key] = true
			}
		}
	}
	check(in.A, in.B)
	check(in.B, in.A)
	return conflicts
}

func duplicationConflicts(in ClassifyInput, classified map[string]bool) []Conflict {
	if in.Similarity == nil {
		return nil
	}
	threshold := in.DuplicationThreshold
	if threshold <= 0 {
		threshold = DefaultDuplicationThreshold
	}

	var conflicts []Conflict
	for _, acs := range in.A.Symbols {
		if acs.Change != ChangeAdded {
			continue
		}
		if classified[acs.Symbol.File+":"+acs.Symbol.Name] {
			continue
		}
		for _, bcs := range in.B.Symbols {
			if bcs.Change != ChangeAdded || bcs.Symbol.Module != acs.Symbol.Module {
				continue
			}
			score := in.Similarity(acs, bcs)
			if score < threshold {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Kind:     ConflictDuplication,
				Severity: SeverityInfo,
				Source:   in.A.Number,
				Target:   in.B.Number,
				File:     acs.Symbol.File,
				Symbol:   acs.Symbol.Name,
				Description: fmt.Sprintf("proposals #%d and #%d both add similar symbols %q and %q in module %s (similarity %.2f)",
					in.A.Number, in.B.Number, acs.Symbol.Name, bcs.Symbol.Name, acs.Symbol.Module, score),
				Recommendation: "the same work may be done twice; consolidate into one implementation",
			})
			classified[acs.Symbol.File+":"+acs.Symbol.Name] = true
			break
		}
	}
	return conflicts
}
