package mergeguard

import (
	"fmt"
	"regexp"
)

// GuardrailInput carries everything needed to evaluate policy rules against
// one proposal. Evaluation is a pure function of the rule and the proposal's
// diff/symbol data; no cross-proposal state is consulted.
type GuardrailInput struct {
	Proposal *Proposal
	Rules    []GuardrailRule

	// Glob matches file paths and import sources against rule patterns.
	Glob GlobFunc

	// FileSymbols provides per-file imports and symbol shapes for the
	// import-direction and complexity constraints. Files missing from the
	// map simply skip those constraints.
	FileSymbols map[string]*FileSymbols
}

// EvaluateGuardrails applies every rule to the proposal and returns one
// guardrail conflict per violated constraint. Each message names the rule,
// the offending file, and the specific constraint exceeded.
func EvaluateGuardrails(in GuardrailInput) []Conflict {
	var violations []Conflict
	for _, rule := range in.Rules {
		if rule.When == WhenMachineAuthored && !in.Proposal.Attribution.Machine() {
			continue
		}
		violations = append(violations, evaluateRule(in, rule)...)
	}
	return violations
}

func evaluateRule(in GuardrailInput, rule GuardrailRule) []Conflict {
	p := in.Proposal
	var violations []Conflict

	emit := func(file, symbol, detail string) {
		rec := rule.Message
		if rec == "" {
			rec = "adjust the proposal to satisfy the repository guardrail"
		}
		violations = append(violations, Conflict{
			Kind:           ConflictGuardrail,
			Severity:       rule.EffectiveSeverity(),
			Source:         p.Number,
			Target:         p.Number,
			File:           file,
			Symbol:         symbol,
			Description:    fmt.Sprintf("rule %q: %s", rule.Name, detail),
			Recommendation: rec,
		})
	}

	scoped := scopedFiles(p, rule.Pattern, in.Glob)

	if rule.MaxFilesChanged > 0 && len(p.Files) > rule.MaxFilesChanged {
		emit("<repo>", "", fmt.Sprintf("proposal changes %d files, exceeding the limit of %d",
			len(p.Files), rule.MaxFilesChanged))
	}

	if rule.MaxLinesChanged > 0 {
		total := 0
		for _, f := range p.Files {
			added, deleted := f.Stats()
			total += added + deleted
		}
		if total > rule.MaxLinesChanged {
			emit("<repo>", "", fmt.Sprintf("proposal changes %d lines, exceeding the limit of %d",
				total, rule.MaxLinesChanged))
		}
	}

	if len(rule.CannotImportFrom) > 0 && in.Glob != nil {
		for _, f := range scoped {
			fs, ok := in.FileSymbols[f.Path]
			if !ok {
				continue
			}
			for _, imp := range fs.Imports {
				source := NormalizeImport(imp)
				for _, banned := range rule.CannotImportFrom {
					if in.Glob(banned, source) {
						emit(f.Path, "", fmt.Sprintf("%s imports %q, which is forbidden by cannot_import_from %q",
							f.Path, imp, banned))
					}
				}
			}
		}
	}

	for _, expr := range rule.MustNotContain {
		re, err := regexp.Compile(expr)
		if err != nil {
			continue // rejected at configuration load
		}
		for _, f := range scoped {
			for _, line := range f.AddedLines() {
				if re.MatchString(line) {
					emit(f.Path, "", fmt.Sprintf("%s introduces content matching forbidden pattern %q", f.Path, expr))
					break
				}
			}
		}
	}

	if rule.MaxFunctionLines > 0 || rule.MaxComplexity > 0 {
		for _, f := range scoped {
			for _, cs := range p.SymbolsInFile(f.Path) {
				if cs.Change == ChangeRemoved {
					continue
				}
				if rule.MaxFunctionLines > 0 && cs.Symbol.Lines() > rule.MaxFunctionLines {
					emit(f.Path, cs.Symbol.Name, fmt.Sprintf("%q spans %d lines, exceeding max_function_lines %d",
						cs.Symbol.Name, cs.Symbol.Lines(), rule.MaxFunctionLines))
				}
				if rule.MaxComplexity > 0 && cs.Symbol.Complexity > rule.MaxComplexity {
					emit(f.Path, cs.Symbol.Name, fmt.Sprintf("%q has cyclomatic complexity %d, exceeding max_complexity %d",
						cs.Symbol.Name, cs.Symbol.Complexity, rule.MaxComplexity))
				}
			}
		}
	}

	return violations
}

func scopedFiles(p *Proposal, pattern string, glob GlobFunc) []FileDiff {
	if pattern == "" || glob == nil {
		return p.Files
	}
	var files []FileDiff
	for _, f := range p.Files {
		if glob(pattern, f.Path) {
			files = append(files, f)
		}
	}
	return files
}
