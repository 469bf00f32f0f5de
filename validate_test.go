package mergeguard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
)

func TestValidateFileDiff(t *testing.T) {
	t.Parallel()

	valid := mergeguard.FileDiff{
		Path: "a.py",
		Hunks: []mergeguard.Hunk{
			{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 3},
			{OldStart: 10, OldCount: 2, NewStart: 12, NewCount: 2},
		},
	}
	assert.Empty(t, mergeguard.ValidateFileDiff(valid))

	tests := []struct {
		name   string
		diff   mergeguard.FileDiff
		reason mergeguard.ValidationReason
	}{
		{
			"missing path",
			mergeguard.FileDiff{},
			mergeguard.ReasonMissingPath,
		},
		{
			"negative position",
			mergeguard.FileDiff{Path: "a.py", Hunks: []mergeguard.Hunk{{NewStart: -1}}},
			mergeguard.ReasonNegativeLine,
		},
		{
			"overlapping hunks",
			mergeguard.FileDiff{Path: "a.py", Hunks: []mergeguard.Hunk{
				{NewStart: 1, NewCount: 10},
				{NewStart: 5, NewCount: 3},
			}},
			mergeguard.ReasonHunkOverlap,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := mergeguard.ValidateFileDiff(tt.diff)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.reason, errs[0].Reason)
			assert.NotEmpty(t, errs[0].Error())
		})
	}
}

func TestValidateSymbols(t *testing.T) {
	t.Parallel()

	nested := &mergeguard.FileSymbols{
		Path: "a.py",
		Symbols: []mergeguard.Symbol{
			{Name: "Outer", StartLine: 1, EndLine: 100},
			{Name: "inner", StartLine: 10, EndLine: 30},
		},
	}
	assert.Empty(t, mergeguard.ValidateSymbols(nested), "strict enclosure is allowed")

	inverted := &mergeguard.FileSymbols{
		Path:    "a.py",
		Symbols: []mergeguard.Symbol{{Name: "f", StartLine: 20, EndLine: 10}},
	}
	errs := mergeguard.ValidateSymbols(inverted)
	require.Len(t, errs, 1)
	assert.Equal(t, mergeguard.ReasonInvertedRange, errs[0].Reason)

	straddling := &mergeguard.FileSymbols{
		Path: "a.py",
		Symbols: []mergeguard.Symbol{
			{Name: "f", StartLine: 1, EndLine: 20},
			{Name: "g", StartLine: 15, EndLine: 40},
		},
	}
	errs = mergeguard.ValidateSymbols(straddling)
	require.Len(t, errs, 1)
	assert.Equal(t, mergeguard.ReasonSymbolOverlap, errs[0].Reason)
}
