// Package lipgloss renders analysis reports for the terminal using the
// Lipgloss styling library.
package lipgloss

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mergeguard/mergeguard"
)

// Theme holds the styles used by the terminal renderer.
type Theme struct {
	Critical lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Score    lipgloss.Style
	Clean    lipgloss.Style
}

// DefaultTheme returns the default theme (dark background optimized,
// Catppuccin Mocha colors).
func DefaultTheme() *Theme {
	return &Theme{
		Critical: lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086")),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387")).Bold(true),
		Clean:    lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
	}
}

// LightTheme returns a theme for light terminal backgrounds (Catppuccin
// Latte colors).
func LightTheme() *Theme {
	return &Theme{
		Critical: lipgloss.NewStyle().Foreground(lipgloss.Color("#d20f39")).Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#df8e1d")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("#1e66f5")),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4c4f69")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca0b0")),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color("#fe640b")).Bold(true),
		Clean:    lipgloss.NewStyle().Foreground(lipgloss.Color("#40a02b")),
	}
}

func (t *Theme) severity(s mergeguard.Severity) lipgloss.Style {
	switch s {
	case mergeguard.SeverityCritical:
		return t.Critical
	case mergeguard.SeverityWarning:
		return t.Warning
	default:
		return t.Info
	}
}

// RenderReport renders one proposal's full report.
func (t *Theme) RenderReport(r *mergeguard.Report) string {
	var sb strings.Builder

	sb.WriteString(t.Title.Render(fmt.Sprintf("#%d %s", r.Proposal.Number, r.Proposal.Title)))
	sb.WriteString("\n")

	if r.Err != "" {
		sb.WriteString(t.Critical.Render("analysis failed: " + r.Err))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(t.Score.Render(fmt.Sprintf("risk %.1f/100 (%s)", r.Risk.Score, mergeguard.RiskLevel(r.Risk.Score))))
	sb.WriteString("\n")

	if len(r.Conflicts) == 0 {
		sb.WriteString(t.Clean.Render("no conflicts"))
		sb.WriteString("\n")
	}
	for _, c := range r.Conflicts {
		style := t.severity(c.Severity)
		location := c.File
		if c.Symbol != "" {
			location += ":" + c.Symbol
		}
		fmt.Fprintf(&sb, "  %s %s %s\n",
			style.Render(fmt.Sprintf("%-8s", c.Severity)),
			t.Muted.Render(fmt.Sprintf("%-11s", string(c.Kind))),
			location)
		sb.WriteString("    " + c.Description + "\n")
		if c.Recommendation != "" {
			sb.WriteString("    " + t.Muted.Render(c.Recommendation) + "\n")
		}
	}

	for _, note := range r.Degraded {
		sb.WriteString("  " + t.Muted.Render("note: "+note) + "\n")
	}

	return sb.String()
}

// RenderDashboard renders the one-line-per-proposal overview table.
func (t *Theme) RenderDashboard(reports []*mergeguard.Report) string {
	var sb strings.Builder
	for _, r := range reports {
		if r.Err != "" {
			fmt.Fprintf(&sb, "%s %s\n",
				t.Muted.Render(fmt.Sprintf("#%-5d", r.Proposal.Number)),
				t.Critical.Render("failed: "+r.Err))
			continue
		}
		counts := r.CountBySeverity()
		badge := t.Clean.Render("clean")
		if n := counts[mergeguard.SeverityCritical]; n > 0 {
			badge = t.Critical.Render(fmt.Sprintf("%d critical", n))
		} else if n := counts[mergeguard.SeverityWarning]; n > 0 {
			badge = t.Warning.Render(fmt.Sprintf("%d warning", n))
		} else if n := counts[mergeguard.SeverityInfo]; n > 0 {
			badge = t.Info.Render(fmt.Sprintf("%d info", n))
		}
		fmt.Fprintf(&sb, "%s %s %-14s %s\n",
			t.Muted.Render(fmt.Sprintf("#%-5d", r.Proposal.Number)),
			t.Score.Render(fmt.Sprintf("%5.1f", r.Risk.Score)),
			badge,
			r.Proposal.Title)
	}
	return sb.String()
}
