package mergeguard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
)

func proposalTouching(number int, path string, newStart, newEnd int) *mergeguard.Proposal {
	return &mergeguard.Proposal{
		Number: number,
		Files: []mergeguard.FileDiff{{
			Path:  path,
			Op:    mergeguard.FileModified,
			Hunks: []mergeguard.Hunk{hunkAdding(newStart, newStart, newEnd)},
		}},
		SymbolCoverage: map[string]bool{},
	}
}

func withSymbol(p *mergeguard.Proposal, path, name string, symStart, symEnd int, change mergeguard.ChangeKind, touched mergeguard.LineRange) *mergeguard.Proposal {
	p.Symbols = append(p.Symbols, mergeguard.ChangedSymbol{
		Symbol: mergeguard.Symbol{
			Name:      name,
			Kind:      mergeguard.SymbolFunction,
			File:      path,
			StartLine: symStart,
			EndLine:   symEnd,
			Module:    "auth",
		},
		Change:  change,
		Touched: []mergeguard.LineRange{touched},
	})
	p.SymbolCoverage[path] = true
	return p
}

func TestComputeOverlaps_DisjointFiles(t *testing.T) {
	t.Parallel()

	a := proposalTouching(1, "auth/session.py", 10, 20)
	b := proposalTouching(2, "billing/invoice.py", 10, 20)

	assert.Empty(t, mergeguard.ComputeOverlaps(a, b))
}

func TestComputeOverlaps_SharedFileWithSymbols(t *testing.T) {
	t.Parallel()

	a := withSymbol(proposalTouching(1, "auth/session.py", 12, 15),
		"auth/session.py", "validate_token", 10, 30, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 12, End: 15})
	b := withSymbol(proposalTouching(2, "auth/session.py", 14, 18),
		"auth/session.py", "validate_token", 10, 30, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 14, End: 18})

	overlaps := mergeguard.ComputeOverlaps(a, b)
	require.Len(t, overlaps, 1)

	ov := overlaps[0]
	assert.Equal(t, "auth/session.py", ov.File)
	assert.False(t, ov.CoarseFallback)
	require.Len(t, ov.Shared, 1)
	assert.Equal(t, "validate_token", ov.Shared[0].Name)
	assert.True(t, ov.Shared[0].DirectOverlap)
	assert.True(t, ov.HasLineOverlap())
}

func TestComputeOverlaps_Symmetric(t *testing.T) {
	t.Parallel()

	a := withSymbol(proposalTouching(1, "auth/session.py", 12, 15),
		"auth/session.py", "validate_token", 10, 30, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 12, End: 15})
	b := withSymbol(proposalTouching(2, "auth/session.py", 40, 45),
		"auth/session.py", "validate_token", 10, 30, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 14, End: 18})

	ab := mergeguard.ComputeOverlaps(a, b)
	ba := mergeguard.ComputeOverlaps(b, a)
	require.Len(t, ab, 1)
	require.Len(t, ba, 1)
	assert.Equal(t, ab[0].HasLineOverlap(), ba[0].HasLineOverlap())
	assert.Equal(t, ab[0].Shared[0].DirectOverlap, ba[0].Shared[0].DirectOverlap)
}

func TestComputeOverlaps_CoarseFallback(t *testing.T) {
	t.Parallel()

	// b has no symbol data for the shared file.
	a := withSymbol(proposalTouching(1, "vendor/blob.xyz", 10, 20),
		"vendor/blob.xyz", "thing", 5, 50, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 10, End: 20})
	b := proposalTouching(2, "vendor/blob.xyz", 15, 25)

	overlaps := mergeguard.ComputeOverlaps(a, b)
	require.Len(t, overlaps, 1)
	assert.True(t, overlaps[0].CoarseFallback)
	assert.Empty(t, overlaps[0].Shared)
	assert.True(t, overlaps[0].HasLineOverlap())
}

func TestComputeOverlaps_UnattributedSpans(t *testing.T) {
	t.Parallel()

	// One hunk inside validate_token, one past the end of every symbol. The
	// out-of-symbol remainder must be reported per side.
	a := withSymbol(&mergeguard.Proposal{
		Number: 1,
		Files: []mergeguard.FileDiff{{
			Path: "auth/session.py",
			Op:   mergeguard.FileModified,
			Hunks: []mergeguard.Hunk{
				hunkAdding(12, 12, 14),
				hunkAdding(30, 30, 35),
			},
		}},
		SymbolCoverage: map[string]bool{},
	}, "auth/session.py", "validate_token", 10, 20, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 12, End: 14})
	b := withSymbol(proposalTouching(2, "auth/session.py", 16, 18),
		"auth/session.py", "validate_token", 10, 20, mergeguard.ChangeBodyModified, mergeguard.LineRange{Start: 16, End: 18})

	overlaps := mergeguard.ComputeOverlaps(a, b)
	require.Len(t, overlaps, 1)

	ov := overlaps[0]
	assert.Equal(t, []mergeguard.LineRange{{Start: 30, End: 35}}, ov.AUnattributed)
	assert.Empty(t, ov.BUnattributed)
}

func TestMapRangesToSymbols(t *testing.T) {
	t.Parallel()

	idx := mergeguard.NewSymbolIndex([]mergeguard.Symbol{
		{Name: "Outer", Kind: mergeguard.SymbolClass, StartLine: 1, EndLine: 100},
		{Name: "inner", Kind: mergeguard.SymbolMethod, StartLine: 10, EndLine: 30},
	})

	attributed, unattributed := mergeguard.MapRangesToSymbols(idx, []mergeguard.LineRange{
		{Start: 12, End: 14}, // inside inner
		{Start: 50, End: 55}, // inside Outer only
		{Start: 200, End: 201},
	})

	require.Len(t, attributed, 2)
	assert.Equal(t, "inner", attributed[0].Symbol.Name)
	assert.Equal(t, "Outer", attributed[1].Symbol.Name)
	require.Len(t, unattributed, 1)
	assert.Equal(t, 200, unattributed[0].Start)
}
