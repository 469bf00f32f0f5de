// Package gitlab implements the hosting-provider contract against the GitLab
// REST API. It mirrors the github package with the GitLab-shaped endpoints:
// merge requests instead of pull requests, notes instead of issue comments.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/gitdiff"
)

// Compile-time interface verification.
var _ mergeguard.HostClient = (*Client)(nil)

const (
	maxRetryAttempts  = 4
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second

	defaultBaseURL = "https://gitlab.com/api/v4"

	statusName = "mergeguard/risk"
)

// Client is an authenticated GitLab API client for one project.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string // URL-encoded project path
	token      string
	logger     *slog.Logger
}

// Config holds configuration for creating a new Client.
type Config struct {
	Project     string // "group/project" path
	Token       string // personal or project access token
	BaseURL     string // override for self-hosted instances
	HTTPTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a GitLab client.
func New(cfg Config) (*Client, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("gitlab: project is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("gitlab: token is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		project:    url.PathEscape(cfg.Project),
		token:      cfg.Token,
		logger:     logger,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, u string, body any) ([]byte, error) {
	var result []byte
	err := retry.Do(
		func() error {
			var bodyReader io.Reader
			if body != nil {
				data, err := json.Marshal(body)
				if err != nil {
					return fmt.Errorf("marshaling request body: %w", err)
				}
				bodyReader = bytes.NewReader(data)
			}

			req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
			if err != nil {
				return err
			}
			req.Header.Set("PRIVATE-TOKEN", c.token)
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer func() {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("http %d: rate limited", resp.StatusCode)
			case resp.StatusCode >= http.StatusInternalServerError:
				return fmt.Errorf("http %d: server error", resp.StatusCode)
			case resp.StatusCode >= http.StatusBadRequest:
				data, _ := io.ReadAll(resp.Body)
				return retry.Unrecoverable(fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
			}

			result, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying gitlab request", "url", u, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	return result, err
}

func (c *Client) apiURL(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// mergeRequest is the subset of the GitLab merge request payload we consume.
type mergeRequest struct {
	IID          int       `json:"iid"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TargetBranch string    `json:"target_branch"`
	SourceBranch string    `json:"source_branch"`
	SHA          string    `json:"sha"`
	Labels       []string  `json:"labels"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Author       struct {
		Username string `json:"username"`
	} `json:"author"`
}

func (m mergeRequest) toProposal() *mergeguard.Proposal {
	return &mergeguard.Proposal{
		Number:      m.IID,
		Title:       m.Title,
		Author:      m.Author.Username,
		BaseBranch:  m.TargetBranch,
		HeadBranch:  m.SourceBranch,
		HeadSHA:     m.SHA,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Labels:      m.Labels,
		Description: m.Description,
	}
}

// OpenProposals lists open merge requests, newest first, at most max.
func (c *Client) OpenProposals(ctx context.Context, max int) ([]*mergeguard.Proposal, error) {
	perPage := max
	if perPage > 100 {
		perPage = 100
	}
	u := c.apiURL("/projects/%s/merge_requests?state=opened&order_by=created_at&sort=desc&per_page=%d",
		c.project, perPage)
	data, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("listing merge requests: %w", err)
	}

	var mrs []mergeRequest
	if err := json.Unmarshal(data, &mrs); err != nil {
		return nil, fmt.Errorf("decoding merge requests: %w", err)
	}

	proposals := make([]*mergeguard.Proposal, 0, len(mrs))
	for _, m := range mrs {
		if len(proposals) >= max {
			break
		}
		proposals = append(proposals, m.toProposal())
	}
	return proposals, nil
}

// Proposal fetches a single merge request's metadata.
func (c *Client) Proposal(ctx context.Context, number int) (*mergeguard.Proposal, error) {
	u := c.apiURL("/projects/%s/merge_requests/%d", c.project, number)
	data, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching merge request !%d: %w", number, err)
	}

	var m mergeRequest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding merge request !%d: %w", number, err)
	}
	return m.toProposal(), nil
}

// change is one file's diff in the merge request changes payload.
type change struct {
	Diff        string `json:"diff"`
	NewPath     string `json:"new_path"`
	OldPath     string `json:"old_path"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

// ProposalFiles fetches the merge request changes and parses each file's diff.
func (c *Client) ProposalFiles(ctx context.Context, number int) ([]mergeguard.FileDiff, error) {
	u := c.apiURL("/projects/%s/merge_requests/%d/changes", c.project, number)
	data, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching changes for !%d: %w", number, err)
	}

	var payload struct {
		Changes []change `json:"changes"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding changes for !%d: %w", number, err)
	}

	parser := gitdiff.NewParser()
	files := make([]mergeguard.FileDiff, 0, len(payload.Changes))
	for _, ch := range payload.Changes {
		// GitLab returns the hunk body without file headers; reconstruct a
		// minimal header so the unified diff parser accepts it.
		raw := fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", ch.OldPath, ch.NewPath, ch.Diff)
		diff, err := parser.Parse(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing diff for %s in !%d: %w", ch.NewPath, number, err)
		}
		for _, f := range diff.Files {
			f.Path = ch.NewPath
			switch {
			case ch.NewFile:
				f.Op = mergeguard.FileAdded
			case ch.DeletedFile:
				f.Op = mergeguard.FileRemoved
				f.Path = ch.OldPath
			case ch.RenamedFile:
				f.Op = mergeguard.FileRenamed
				f.OldPath = ch.OldPath
			default:
				f.Op = mergeguard.FileModified
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// FileContent fetches a file's raw content at the given ref.
func (c *Client) FileContent(ctx context.Context, path, ref string) ([]byte, error) {
	u := c.apiURL("/projects/%s/repository/files/%s/raw?ref=%s",
		c.project, url.PathEscape(path), url.QueryEscape(ref))
	data, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s@%s: %w", path, ref, err)
	}
	return data, nil
}

// note is the subset of the merge request note payload we consume.
type note struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// PostComment upserts the analysis note on a merge request.
func (c *Client) PostComment(ctx context.Context, number int, body string) error {
	listURL := c.apiURL("/projects/%s/merge_requests/%d/notes?per_page=100", c.project, number)
	data, err := c.doRequest(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return fmt.Errorf("listing notes on !%d: %w", number, err)
	}

	var notes []note
	if err := json.Unmarshal(data, &notes); err != nil {
		return fmt.Errorf("decoding notes on !%d: %w", number, err)
	}

	payload := map[string]string{"body": body}
	for _, n := range notes {
		if strings.Contains(n.Body, mergeguard.CommentMarker) {
			u := c.apiURL("/projects/%s/merge_requests/%d/notes/%d", c.project, number, n.ID)
			if _, err := c.doRequest(ctx, http.MethodPut, u, payload); err != nil {
				return fmt.Errorf("updating note on !%d: %w", number, err)
			}
			return nil
		}
	}

	u := c.apiURL("/projects/%s/merge_requests/%d/notes", c.project, number)
	if _, err := c.doRequest(ctx, http.MethodPost, u, payload); err != nil {
		return fmt.Errorf("creating note on !%d: %w", number, err)
	}
	return nil
}

// SetStatus sets the pipeline status for a commit SHA. GitLab uses "failed"
// where GitHub uses "failure"; callers pass GitHub-style states.
func (c *Client) SetStatus(ctx context.Context, sha, state, description string) error {
	if state == "failure" {
		state = "failed"
	}
	u := c.apiURL("/projects/%s/statuses/%s", c.project, url.PathEscape(sha))
	payload := map[string]string{
		"state":       state,
		"description": description,
		"name":        statusName,
	}
	if _, err := c.doRequest(ctx, http.MethodPost, u, payload); err != nil {
		return fmt.Errorf("setting status on %s: %w", sha, err)
	}
	return nil
}
