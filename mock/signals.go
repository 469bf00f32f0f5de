package mock

import (
	"context"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var (
	_ mergeguard.Adjudicator   = (*Adjudicator)(nil)
	_ mergeguard.ChurnProvider = (*ChurnProvider)(nil)
)

// Adjudicator is a mock implementation of mergeguard.Adjudicator.
type Adjudicator struct {
	AdjudicateFn func(ctx context.Context, conflict mergeguard.Conflict, sourceDiff, targetDiff string) (mergeguard.Severity, bool, error)
}

func (a *Adjudicator) Adjudicate(ctx context.Context, conflict mergeguard.Conflict, sourceDiff, targetDiff string) (mergeguard.Severity, bool, error) {
	return a.AdjudicateFn(ctx, conflict, sourceDiff, targetDiff)
}

// ChurnProvider is a mock implementation of mergeguard.ChurnProvider.
type ChurnProvider struct {
	ChurnFn func(ctx context.Context, filePath string) (float64, error)
}

func (c *ChurnProvider) Churn(ctx context.Context, filePath string) (float64, error) {
	return c.ChurnFn(ctx, filePath)
}
