package mergeguard

import "strings"

// Author and content markers used by the attribution heuristic.
var (
	botAuthorMarkers = []string{"[bot]", "-bot", "dependabot", "renovate", "copilot", "devin", "sweep"}

	agentLabels = []string{"ai-generated", "ai-assisted", "automated", "agent", "llm"}

	trailerMarkers = []string{
		"co-authored-by: claude",
		"co-authored-by: copilot",
		"generated with",
		"\U0001F916", // robot-face trailer used by several agents
	}
)

// DetectAttribution classifies a proposal's authorship from its metadata:
// label or description trailers confirm machine authorship, a bot-shaped
// author login makes it suspected, anything else is treated as human.
func DetectAttribution(p *Proposal) (Attribution, float64) {
	description := strings.ToLower(p.Description)
	for _, marker := range trailerMarkers {
		if strings.Contains(description, marker) {
			return AttributionMachineConfirmed, 1.0
		}
	}
	for _, label := range p.Labels {
		l := strings.ToLower(label)
		for _, marker := range agentLabels {
			if l == marker {
				return AttributionMachineConfirmed, 1.0
			}
		}
	}
	author := strings.ToLower(p.Author)
	for _, marker := range botAuthorMarkers {
		if strings.Contains(author, marker) {
			return AttributionMachineSuspected, 0.5
		}
	}
	return AttributionHuman, 0.0
}

// HeuristicAttribution is the default AttributionFunc, returning only the
// machine-authorship confidence.
func HeuristicAttribution(p *Proposal) float64 {
	_, confidence := DetectAttribution(p)
	return confidence
}
