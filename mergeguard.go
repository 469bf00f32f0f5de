// Package mergeguard provides domain types and the core analysis pipeline for
// detecting semantic conflicts between open change proposals (pull/merge
// requests) against a shared codebase.
package mergeguard

import "io"

// Diff represents a complete diff containing one or more file changes.
type Diff struct {
	Files []FileDiff `json:"files"`
}

// FileOp represents the type of operation performed on a file.
type FileOp int

// File operation types.
const (
	FileModified FileOp = iota
	FileAdded
	FileRemoved
	FileRenamed
)

// String returns the lowercase name of the operation.
func (op FileOp) String() string {
	switch op {
	case FileAdded:
		return "added"
	case FileRemoved:
		return "removed"
	case FileRenamed:
		return "renamed"
	default:
		return "modified"
	}
}

// FileDiff represents changes to a single file within a proposal's diff.
type FileDiff struct {
	Path     string `json:"path"`               // path in the new tree, or old path for removals
	OldPath  string `json:"old_path,omitempty"` // prior path when renamed
	Op       FileOp `json:"op"`
	IsBinary bool   `json:"is_binary,omitempty"`
	Hunks    []Hunk `json:"hunks,omitempty"`
}

// Stats returns the number of added and deleted lines in the file.
func (f FileDiff) Stats() (added, deleted int) {
	for _, hunk := range f.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineAdded:
				added++
			case LineDeleted:
				deleted++
			}
		}
	}
	return added, deleted
}

// ModifiedRanges returns the after-side line ranges touched by this diff, one
// per hunk that adds lines. Ranges are expressed in new-file coordinates.
func (f FileDiff) ModifiedRanges() []LineRange {
	var ranges []LineRange
	for _, hunk := range f.Hunks {
		r, ok := hunk.addedRange()
		if ok {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

// RemovedRanges returns the before-side line ranges deleted by this diff, one
// per hunk that removes lines. Ranges are expressed in old-file coordinates.
func (f FileDiff) RemovedRanges() []LineRange {
	var ranges []LineRange
	for _, hunk := range f.Hunks {
		r, ok := hunk.removedRange()
		if ok {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

// AddedLines returns the content of every added line in the diff.
func (f FileDiff) AddedLines() []string {
	var lines []string
	for _, hunk := range f.Hunks {
		for _, line := range hunk.Lines {
			if line.Type == LineAdded {
				lines = append(lines, line.Content)
			}
		}
	}
	return lines
}

// Hunk represents a contiguous block of changes within a file.
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldCount int    `json:"old_count"`
	NewStart int    `json:"new_start"`
	NewCount int    `json:"new_count"`
	Section  string `json:"section,omitempty"` // optional function name after @@ ... @@
	Lines    []Line `json:"lines,omitempty"`
}

func (h Hunk) addedRange() (LineRange, bool) {
	first, last := 0, 0
	for _, line := range h.Lines {
		if line.Type != LineAdded {
			continue
		}
		if first == 0 || line.NewLineNum < first {
			first = line.NewLineNum
		}
		if line.NewLineNum > last {
			last = line.NewLineNum
		}
	}
	if first == 0 {
		return LineRange{}, false
	}
	return LineRange{Start: first, End: last}, true
}

func (h Hunk) removedRange() (LineRange, bool) {
	first, last := 0, 0
	for _, line := range h.Lines {
		if line.Type != LineDeleted {
			continue
		}
		if first == 0 || line.OldLineNum < first {
			first = line.OldLineNum
		}
		if line.OldLineNum > last {
			last = line.OldLineNum
		}
	}
	if first == 0 {
		return LineRange{}, false
	}
	return LineRange{Start: first, End: last}, true
}

// Line represents a single line within a hunk.
type Line struct {
	Type       LineType `json:"type"`
	Content    string   `json:"content"`
	OldLineNum int      `json:"old_line,omitempty"` // 0 if line is added
	NewLineNum int      `json:"new_line,omitempty"` // 0 if line is deleted
}

// LineType represents the type of a diff line.
type LineType int

// Line types.
const (
	LineContext LineType = iota
	LineAdded
	LineDeleted
)

// LineRange is an inclusive range of line numbers. Line numbers are discrete,
// so touching endpoints count as intersecting.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Intersects reports whether two ranges share at least one line.
func (r LineRange) Intersects(o LineRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Len returns the number of lines covered by the range.
func (r LineRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// RangesIntersect reports whether any range in a intersects any range in b.
func RangesIntersect(a, b []LineRange) bool {
	for _, ra := range a {
		for _, rb := range b {
			if ra.Intersects(rb) {
				return true
			}
		}
	}
	return false
}

// Parser parses unified diff text into the structured Diff model.
type Parser interface {
	Parse(r io.Reader) (*Diff, error)
}
