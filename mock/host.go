// Package mock provides test doubles for mergeguard interfaces.
package mock

import (
	"context"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.HostClient = (*HostClient)(nil)

// HostClient is a mock implementation of mergeguard.HostClient.
type HostClient struct {
	OpenProposalsFn func(ctx context.Context, max int) ([]*mergeguard.Proposal, error)
	ProposalFn      func(ctx context.Context, number int) (*mergeguard.Proposal, error)
	ProposalFilesFn func(ctx context.Context, number int) ([]mergeguard.FileDiff, error)
	FileContentFn   func(ctx context.Context, path, ref string) ([]byte, error)
	PostCommentFn   func(ctx context.Context, number int, body string) error
	SetStatusFn     func(ctx context.Context, sha, state, description string) error
}

func (c *HostClient) OpenProposals(ctx context.Context, max int) ([]*mergeguard.Proposal, error) {
	return c.OpenProposalsFn(ctx, max)
}

func (c *HostClient) Proposal(ctx context.Context, number int) (*mergeguard.Proposal, error) {
	return c.ProposalFn(ctx, number)
}

func (c *HostClient) ProposalFiles(ctx context.Context, number int) ([]mergeguard.FileDiff, error) {
	return c.ProposalFilesFn(ctx, number)
}

func (c *HostClient) FileContent(ctx context.Context, path, ref string) ([]byte, error) {
	return c.FileContentFn(ctx, path, ref)
}

func (c *HostClient) PostComment(ctx context.Context, number int, body string) error {
	return c.PostCommentFn(ctx, number, body)
}

func (c *HostClient) SetStatus(ctx context.Context, sha, state, description string) error {
	return c.SetStatusFn(ctx, sha, state, description)
}
