// Package gitdiff implements unified diff parsing using bluekeyes/go-gitdiff.
package gitdiff

import (
	"io"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.Parser = (*Parser)(nil)

// Parser parses unified diff content using go-gitdiff.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads diff content and returns the parsed result.
func (p *Parser) Parse(r io.Reader) (*mergeguard.Diff, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &mergeguard.Diff{
		Files: make([]mergeguard.FileDiff, 0, len(files)),
	}

	for _, f := range files {
		result.Files = append(result.Files, convertFile(f))
	}

	return result, nil
}

func convertFile(f *gitdiff.File) mergeguard.FileDiff {
	fd := mergeguard.FileDiff{
		Path:     f.NewName,
		IsBinary: f.IsBinary,
	}

	switch {
	case f.IsNew:
		fd.Op = mergeguard.FileAdded
	case f.IsDelete:
		fd.Op = mergeguard.FileRemoved
		fd.Path = f.OldName
	case f.IsRename:
		fd.Op = mergeguard.FileRenamed
		fd.OldPath = f.OldName
	default:
		fd.Op = mergeguard.FileModified
	}

	fd.Hunks = make([]mergeguard.Hunk, 0, len(f.TextFragments))
	for _, frag := range f.TextFragments {
		fd.Hunks = append(fd.Hunks, convertFragment(frag))
	}

	return fd
}

func convertFragment(frag *gitdiff.TextFragment) mergeguard.Hunk {
	hunk := mergeguard.Hunk{
		OldStart: int(frag.OldPosition),
		OldCount: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewCount: int(frag.NewLines),
		Section:  frag.Comment,
	}

	// Track line numbers for old and new files.
	oldLineNum := int(frag.OldPosition)
	newLineNum := int(frag.NewPosition)

	for _, l := range frag.Lines {
		line := mergeguard.Line{
			Content: trimNewline(l.Line),
		}

		switch l.Op {
		case gitdiff.OpContext:
			line.Type = mergeguard.LineContext
			line.OldLineNum = oldLineNum
			line.NewLineNum = newLineNum
			oldLineNum++
			newLineNum++
		case gitdiff.OpAdd:
			line.Type = mergeguard.LineAdded
			line.NewLineNum = newLineNum
			newLineNum++
		case gitdiff.OpDelete:
			line.Type = mergeguard.LineDeleted
			line.OldLineNum = oldLineNum
			oldLineNum++
		}

		hunk.Lines = append(hunk.Lines, line)
	}

	return hunk
}

// go-gitdiff keeps the trailing newline on line content; the analysis model
// stores bare content.
func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
