package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/gitdiff"
)

// Compile-time interface verification.
var _ mergeguard.HostClient = (*Client)(nil)

const (
	acceptDiff = "application/vnd.github.v3.diff"
	acceptRaw  = "application/vnd.github.raw"

	// statusContext names the commit status line this tool owns.
	statusContext = "mergeguard/risk"
)

// pull is the subset of the GitHub pull request payload we consume.
type pull struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p pull) toProposal() *mergeguard.Proposal {
	labels := make([]string, 0, len(p.Labels))
	for _, l := range p.Labels {
		labels = append(labels, l.Name)
	}
	return &mergeguard.Proposal{
		Number:      p.Number,
		Title:       p.Title,
		Author:      p.User.Login,
		BaseBranch:  p.Base.Ref,
		HeadBranch:  p.Head.Ref,
		HeadSHA:     p.Head.SHA,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Labels:      labels,
		Description: p.Body,
	}
}

// OpenProposals lists open pull requests, newest first, at most max.
func (c *Client) OpenProposals(ctx context.Context, max int) ([]*mergeguard.Proposal, error) {
	perPage := max
	if perPage > 100 {
		perPage = 100
	}
	u := c.apiURL("/repos/%s/%s/pulls?state=open&sort=created&direction=desc&per_page=%d",
		c.owner, c.repo, perPage)
	data, err := c.doRequest(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}

	var pulls []pull
	if err := json.Unmarshal(data, &pulls); err != nil {
		return nil, fmt.Errorf("decoding pull requests: %w", err)
	}

	proposals := make([]*mergeguard.Proposal, 0, len(pulls))
	for _, p := range pulls {
		if len(proposals) >= max {
			break
		}
		proposals = append(proposals, p.toProposal())
	}
	return proposals, nil
}

// Proposal fetches a single pull request's metadata.
func (c *Client) Proposal(ctx context.Context, number int) (*mergeguard.Proposal, error) {
	u := c.apiURL("/repos/%s/%s/pulls/%d", c.owner, c.repo, number)
	data, err := c.doRequest(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request #%d: %w", number, err)
	}

	var p pull
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding pull request #%d: %w", number, err)
	}
	return p.toProposal(), nil
}

// ProposalFiles fetches the pull request diff and parses it into structured
// file diffs.
func (c *Client) ProposalFiles(ctx context.Context, number int) ([]mergeguard.FileDiff, error) {
	u := c.apiURL("/repos/%s/%s/pulls/%d", c.owner, c.repo, number)
	data, err := c.doRequest(ctx, http.MethodGet, u, acceptDiff, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching diff for #%d: %w", number, err)
	}

	diff, err := gitdiff.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing diff for #%d: %w", number, err)
	}
	return diff.Files, nil
}

// FileContent fetches a file's raw content at the given ref.
func (c *Client) FileContent(ctx context.Context, path, ref string) ([]byte, error) {
	u := c.apiURL("/repos/%s/%s/contents/%s?ref=%s",
		c.owner, c.repo, escapePath(path), url.QueryEscape(ref))
	data, err := c.doRequest(ctx, http.MethodGet, u, acceptRaw, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s@%s: %w", path, ref, err)
	}
	return data, nil
}

// issueComment is the subset of the comment payload we consume.
type issueComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// PostComment upserts the analysis comment: an existing comment carrying the
// report marker is updated in place, otherwise a new one is created.
func (c *Client) PostComment(ctx context.Context, number int, body string) error {
	listURL := c.apiURL("/repos/%s/%s/issues/%d/comments?per_page=100", c.owner, c.repo, number)
	data, err := c.doRequest(ctx, http.MethodGet, listURL, "", nil)
	if err != nil {
		return fmt.Errorf("listing comments on #%d: %w", number, err)
	}

	var comments []issueComment
	if err := json.Unmarshal(data, &comments); err != nil {
		return fmt.Errorf("decoding comments on #%d: %w", number, err)
	}

	payload := map[string]string{"body": body}
	for _, comment := range comments {
		if strings.Contains(comment.Body, mergeguard.CommentMarker) {
			u := c.apiURL("/repos/%s/%s/issues/comments/%d", c.owner, c.repo, comment.ID)
			if _, err := c.doRequest(ctx, http.MethodPatch, u, "", payload); err != nil {
				return fmt.Errorf("updating comment on #%d: %w", number, err)
			}
			return nil
		}
	}

	u := c.apiURL("/repos/%s/%s/issues/%d/comments", c.owner, c.repo, number)
	if _, err := c.doRequest(ctx, http.MethodPost, u, "", payload); err != nil {
		return fmt.Errorf("creating comment on #%d: %w", number, err)
	}
	return nil
}

// SetStatus sets the commit status for a head SHA.
func (c *Client) SetStatus(ctx context.Context, sha, state, description string) error {
	u := c.apiURL("/repos/%s/%s/statuses/%s", c.owner, c.repo, sha)
	payload := map[string]string{
		"state":       state,
		"description": description,
		"context":     statusContext,
	}
	if _, err := c.doRequest(ctx, http.MethodPost, u, "", payload); err != nil {
		return fmt.Errorf("setting status on %s: %w", sha, err)
	}
	return nil
}

// escapePath escapes each path segment while keeping separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
