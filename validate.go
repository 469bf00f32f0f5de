package mergeguard

import "fmt"

// ValidationReason identifies why input data is malformed.
type ValidationReason string

// Validation error reasons.
const (
	ReasonNegativeLine  ValidationReason = "negative_line"
	ReasonInvertedRange ValidationReason = "inverted_range"
	ReasonHunkOrder     ValidationReason = "hunk_order"
	ReasonHunkOverlap   ValidationReason = "hunk_overlap"
	ReasonSymbolOverlap ValidationReason = "symbol_overlap"
	ReasonMissingPath   ValidationReason = "missing_path"
)

// ValidationError describes a single input-shape failure. Malformed diff and
// symbol data is rejected at the boundary, never silently coerced.
type ValidationError struct {
	Path   string
	Reason ValidationReason
	Detail string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid input (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: invalid input (%s): %s", e.Path, e.Reason, e.Detail)
}

// ValidateFileDiff checks the FileDiff invariants: non-negative ranges,
// start <= end, hunks ordered by position and non-overlapping.
func ValidateFileDiff(f FileDiff) []ValidationError {
	var errs []ValidationError
	if f.Path == "" {
		errs = append(errs, ValidationError{Reason: ReasonMissingPath, Detail: "file diff without a path"})
		return errs
	}
	prevEnd := 0
	for i, h := range f.Hunks {
		if h.OldStart < 0 || h.NewStart < 0 || h.OldCount < 0 || h.NewCount < 0 {
			errs = append(errs, ValidationError{
				Path:   f.Path,
				Reason: ReasonNegativeLine,
				Detail: fmt.Sprintf("hunk %d has negative position or count", i),
			})
			continue
		}
		start := h.NewStart
		end := h.NewStart + h.NewCount - 1
		if h.NewCount == 0 {
			end = start
		}
		if end < start {
			errs = append(errs, ValidationError{
				Path:   f.Path,
				Reason: ReasonInvertedRange,
				Detail: fmt.Sprintf("hunk %d covers inverted range %d-%d", i, start, end),
			})
			continue
		}
		if i > 0 && start <= prevEnd {
			reason := ReasonHunkOrder
			if start >= f.Hunks[i-1].NewStart {
				reason = ReasonHunkOverlap
			}
			errs = append(errs, ValidationError{
				Path:   f.Path,
				Reason: reason,
				Detail: fmt.Sprintf("hunk %d starts at line %d, before previous hunk end %d", i, start, prevEnd),
			})
		}
		prevEnd = end
	}
	return errs
}

// ValidateDiff validates every file in a diff, returning all failures.
func ValidateDiff(d *Diff) []ValidationError {
	var errs []ValidationError
	for _, f := range d.Files {
		errs = append(errs, ValidateFileDiff(f)...)
	}
	return errs
}

// ValidateSymbols checks the Symbol invariants for one file: start <= end and
// ranges that only overlap as a strict enclosing/enclosed pair.
func ValidateSymbols(fs *FileSymbols) []ValidationError {
	var errs []ValidationError
	for _, s := range fs.Symbols {
		if s.StartLine < 0 || s.EndLine < 0 {
			errs = append(errs, ValidationError{
				Path:   fs.Path,
				Reason: ReasonNegativeLine,
				Detail: fmt.Sprintf("symbol %q has negative line numbers", s.Name),
			})
			continue
		}
		if s.EndLine < s.StartLine {
			errs = append(errs, ValidationError{
				Path:   fs.Path,
				Reason: ReasonInvertedRange,
				Detail: fmt.Sprintf("symbol %q covers inverted range %d-%d", s.Name, s.StartLine, s.EndLine),
			})
		}
	}
	for i, a := range fs.Symbols {
		for _, b := range fs.Symbols[i+1:] {
			if !a.Range().Intersects(b.Range()) {
				continue
			}
			if a.Encloses(b) || b.Encloses(a) {
				continue
			}
			errs = append(errs, ValidationError{
				Path:   fs.Path,
				Reason: ReasonSymbolOverlap,
				Detail: fmt.Sprintf("symbols %q and %q overlap without strict enclosure", a.Name, b.Name),
			})
		}
	}
	return errs
}
