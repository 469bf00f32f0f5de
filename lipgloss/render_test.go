package lipgloss_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/lipgloss"
)

func report(conflicts ...mergeguard.Conflict) *mergeguard.Report {
	return &mergeguard.Report{
		Proposal:  &mergeguard.Proposal{Number: 12, Title: "Harden session validation"},
		Conflicts: conflicts,
		Risk: mergeguard.ScoreRisk(mergeguard.RiskInput{Conflicts: conflicts},
			mergeguard.DefaultRiskWeights(), mergeguard.DefaultBlastRadiusSat),
		RunID: "run-abc",
	}
}

func TestRenderReport(t *testing.T) {
	t.Parallel()

	out := lipgloss.DefaultTheme().RenderReport(report(mergeguard.Conflict{
		Kind:           mergeguard.ConflictHard,
		Severity:       mergeguard.SeverityCritical,
		Source:         12,
		Target:         15,
		File:           "auth/session.py",
		Symbol:         "validate_token",
		Description:    "both proposals modify overlapping lines",
		Recommendation: "coordinate with the other author",
	}))

	assert.Contains(t, out, "#12 Harden session validation")
	assert.Contains(t, out, "auth/session.py:validate_token")
	assert.Contains(t, out, "both proposals modify overlapping lines")
	assert.Contains(t, out, "coordinate with the other author")
}

func TestRenderReport_Clean(t *testing.T) {
	t.Parallel()

	out := lipgloss.DefaultTheme().RenderReport(report())
	assert.Contains(t, out, "no conflicts")
	assert.Contains(t, out, "risk 0.0/100 (none)")
}

func TestRenderReport_Failed(t *testing.T) {
	t.Parallel()

	r := report()
	r.Err = "fetching diff: 502 from host"

	out := lipgloss.LightTheme().RenderReport(r)
	assert.Contains(t, out, "analysis failed: fetching diff: 502 from host")
	assert.NotContains(t, out, "risk ")
}

func TestRenderDashboard(t *testing.T) {
	t.Parallel()

	clean := report()
	critical := report(mergeguard.Conflict{
		Kind: mergeguard.ConflictHard, Severity: mergeguard.SeverityCritical,
	})
	critical.Proposal = &mergeguard.Proposal{Number: 15, Title: "Refactor expiry checks"}
	failed := &mergeguard.Report{
		Proposal: &mergeguard.Proposal{Number: 20, Title: "Broken"},
		Err:      "boom",
	}

	out := lipgloss.DefaultTheme().RenderDashboard([]*mergeguard.Report{clean, critical, failed})

	assert.Contains(t, out, "#12")
	assert.Contains(t, out, "clean")
	assert.Contains(t, out, "1 critical")
	assert.Contains(t, out, "Refactor expiry checks")
	assert.Contains(t, out, "failed: boom")
}
