// Package gemini implements the optional semantic adjudicator using Google
// Gemini. The adjudicator refines behavioral conflict severity; it never
// creates or removes conflicts, and any failure leaves the deterministic
// default in place.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.Adjudicator = (*Adjudicator)(nil)

// DefaultAdjudicateTimeout bounds a single adjudication call.
const DefaultAdjudicateTimeout = 30 * time.Second

// Adjudicator implements mergeguard.Adjudicator using Google Gemini.
type Adjudicator struct {
	client  GenerativeClient
	model   string
	timeout time.Duration
}

// AdjudicatorOption configures an Adjudicator.
type AdjudicatorOption func(*Adjudicator)

// WithTimeout sets the timeout for API calls.
func WithTimeout(d time.Duration) AdjudicatorOption {
	return func(a *Adjudicator) {
		a.timeout = d
	}
}

// NewAdjudicator creates a new Adjudicator.
func NewAdjudicator(client GenerativeClient, model string, opts ...AdjudicatorOption) *Adjudicator {
	a := &Adjudicator{
		client:  client,
		model:   model,
		timeout: DefaultAdjudicateTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// verdict is the structured response requested from the model.
type verdict struct {
	Severity  string `json:"severity"`
	Confident bool   `json:"confident"`
	Reasoning string `json:"reasoning"`
}

// Adjudicate asks the model whether two proposals' changes to the same symbol
// are semantically compatible and maps the answer onto a severity. A
// non-confident verdict returns ok=false so the caller keeps its default.
func (a *Adjudicator) Adjudicate(ctx context.Context, conflict mergeguard.Conflict, sourceDiff, targetDiff string) (mergeguard.Severity, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := BuildAdjudicationPrompt(conflict, sourceDiff, targetDiff)
	contents := []*Content{{
		Parts: []*Part{{Text: prompt}},
	}}

	resp, err := a.client.GenerateContent(ctx, a.model, contents, BuildAdjudicationConfig())
	if err != nil {
		return "", false, err
	}
	if resp == nil {
		return "", false, fmt.Errorf("gemini: returned nil response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(resp.Text), &v); err != nil {
		return "", false, fmt.Errorf("gemini: failed to parse response: %w", err)
	}
	if !v.Confident {
		return "", false, nil
	}

	switch mergeguard.Severity(v.Severity) {
	case mergeguard.SeverityCritical, mergeguard.SeverityWarning, mergeguard.SeverityInfo:
		return mergeguard.Severity(v.Severity), true, nil
	default:
		return "", false, fmt.Errorf("gemini: unknown severity %q", v.Severity)
	}
}

// BuildAdjudicationPrompt creates the user prompt for one conflict.
func BuildAdjudicationPrompt(conflict mergeguard.Conflict, sourceDiff, targetDiff string) string {
	return fmt.Sprintf(`Two open proposals modify the same code and may conflict semantically.

## Conflict

File: %s
Symbol: %s
Finding: %s

## Proposal #%d diff

%s

## Proposal #%d diff

%s

## Task

Judge whether these two changes can merge in either order without breaking
each other's intent.

- critical: the changes are incompatible; merging both will produce wrong
  behavior or a broken build
- warning: the changes likely interact; a human should review the combination
- info: the changes are independent despite touching the same code

Respond with JSON: {"severity": "critical|warning|info", "confident": true|false, "reasoning": "one sentence"}.
Set confident to false if the diffs do not give you enough context to judge.`,
		conflict.File, conflict.Symbol, conflict.Description,
		conflict.Source, sourceDiff,
		conflict.Target, targetDiff)
}

// BuildAdjudicationConfig returns config for adjudication calls.
func BuildAdjudicationConfig() *GenerateContentConfig {
	temp := float32(0.2) // consistency over creativity
	return &GenerateContentConfig{
		SystemInstruction: &Content{
			Parts: []*Part{{
				Text: `You are a merge conflict analyst. You judge whether two concurrent code changes to the same symbols are semantically compatible. Be conservative: prefer confident=false over guessing.`,
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ThinkingLevel:    "LOW",
		ResponseSchema: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"severity":  {Type: "string", Enum: []string{"critical", "warning", "info"}},
				"confident": {Type: "boolean"},
				"reasoning": {Type: "string"},
			},
			Required:         []string{"severity", "confident"},
			PropertyOrdering: []string{"severity", "confident", "reasoning"},
		},
	}
}
