package mergeguard

import (
	"fmt"
	"strings"
)

// CommentMarker is the hidden HTML marker embedded in every rendered report
// comment. Posting logic finds an existing comment by this marker and updates
// it in place, so re-running analysis never stacks duplicate comments.
const CommentMarker = "<!-- mergeguard:report -->"

// RiskLevel buckets a composite score for display.
func RiskLevel(score float64) string {
	switch {
	case score >= 75:
		return "high"
	case score >= 40:
		return "medium"
	case score > 0:
		return "low"
	default:
		return "none"
	}
}

func severityEmoji(s Severity) string {
	switch s {
	case SeverityCritical:
		return "\U0001F534" // red circle
	case SeverityWarning:
		return "\U0001F7E1" // yellow circle
	default:
		return "\U0001F535" // blue circle
	}
}

// FormatComment renders a report as the Markdown comment posted back to the
// proposal. The output is deterministic for a given report.
func FormatComment(r *Report) string {
	var sb strings.Builder
	sb.WriteString(CommentMarker)
	sb.WriteString("\n## Conflict analysis\n\n")

	if r.Err != "" {
		fmt.Fprintf(&sb, "Analysis failed for this proposal: %s\n", r.Err)
		fmt.Fprintf(&sb, "\n<sub>run %s</sub>\n", r.RunID)
		return sb.String()
	}

	fmt.Fprintf(&sb, "**Risk score: %.0f/100 (%s)**\n\n", r.Risk.Score, RiskLevel(r.Risk.Score))

	if len(r.Conflicts) == 0 {
		sb.WriteString("No conflicts detected with any open proposal.\n")
	} else {
		counts := r.CountBySeverity()
		var parts []string
		for _, s := range []Severity{SeverityCritical, SeverityWarning, SeverityInfo} {
			if counts[s] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
			}
		}
		fmt.Fprintf(&sb, "%d conflict(s): %s\n\n", len(r.Conflicts), strings.Join(parts, ", "))

		sb.WriteString("| | Kind | With | Location | Detail |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, c := range r.Conflicts {
			with := fmt.Sprintf("#%d", c.Target)
			if c.Target == r.Proposal.Number {
				with = fmt.Sprintf("#%d", c.Source)
			}
			if c.Source == c.Target {
				with = "—"
			}
			location := c.File
			if c.Symbol != "" {
				location = fmt.Sprintf("%s `%s`", c.File, c.Symbol)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				severityEmoji(c.Severity), c.Kind, with, location, escapeCell(c.Description))
		}
		sb.WriteString("\n")

		for _, c := range r.Conflicts {
			if c.Recommendation == "" {
				continue
			}
			fmt.Fprintf(&sb, "- %s\n", c.Recommendation)
		}
	}

	if len(r.NoConflictWith) > 0 {
		var refs []string
		for _, n := range r.NoConflictWith {
			refs = append(refs, fmt.Sprintf("#%d", n))
		}
		fmt.Fprintf(&sb, "\nNo conflicts with: %s\n", strings.Join(refs, ", "))
	}

	sb.WriteString("\n<details><summary>Risk breakdown</summary>\n\n")
	sb.WriteString("| Factor | Raw | Weighted | Available |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, name := range []string{
		FactorConflictSeverity, FactorBlastRadius, FactorPatternDeviation,
		FactorChurn, FactorAttribution,
	} {
		f := r.Risk.Factors[name]
		fmt.Fprintf(&sb, "| %s | %.2f | %.1f | %v |\n", name, f.Raw, f.Weighted, f.Available)
	}
	sb.WriteString("\n</details>\n")

	for _, note := range r.Degraded {
		fmt.Fprintf(&sb, "\n> %s\n", note)
	}

	fmt.Fprintf(&sb, "\n<sub>run %s</sub>\n", r.RunID)
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}

// badge colors follow the shields.io palette.
func badgeColor(score float64) string {
	switch {
	case score >= 75:
		return "#e05d44" // red
	case score >= 40:
		return "#dfb317" // yellow
	case score > 0:
		return "#97ca00" // green
	default:
		return "#4c1" // bright green
	}
}

// FormatBadge renders a minimal SVG risk badge for embedding in dashboards
// and README files.
func FormatBadge(r *Report) string {
	label := "merge risk"
	value := fmt.Sprintf("%.0f/100", r.Risk.Score)
	if r.Err != "" {
		value = "unavailable"
	}

	labelWidth := 6*len(label) + 10
	valueWidth := 6*len(value) + 10
	total := labelWidth + valueWidth

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20" role="img" aria-label="%s: %s">`,
		total, label, value)
	fmt.Fprintf(&sb, `<rect width="%d" height="20" fill="#555"/>`, labelWidth)
	fmt.Fprintf(&sb, `<rect x="%d" width="%d" height="20" fill="%s"/>`, labelWidth, valueWidth, badgeColor(r.Risk.Score))
	fmt.Fprintf(&sb, `<g fill="#fff" font-family="Verdana,sans-serif" font-size="11">`)
	fmt.Fprintf(&sb, `<text x="%d" y="14" text-anchor="middle">%s</text>`, labelWidth/2, label)
	fmt.Fprintf(&sb, `<text x="%d" y="14" text-anchor="middle">%s</text>`, labelWidth+valueWidth/2, value)
	sb.WriteString(`</g></svg>`)
	return sb.String()
}

// FormatSummary renders a plain-text one-line-per-proposal run summary,
// suitable for logs and other non-interactive output.
func FormatSummary(reports []*Report) string {
	var sb strings.Builder
	for _, r := range reports {
		if r.Err != "" {
			fmt.Fprintf(&sb, "#%-5d failed: %s\n", r.Proposal.Number, r.Err)
			continue
		}
		counts := r.CountBySeverity()
		fmt.Fprintf(&sb, "#%-5d risk %5.1f  critical %d  warning %d  info %d  %s\n",
			r.Proposal.Number, r.Risk.Score,
			counts[SeverityCritical], counts[SeverityWarning], counts[SeverityInfo],
			truncate(r.Proposal.Title, 60))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
