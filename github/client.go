// Package github implements the hosting-provider contract against the GitHub
// REST API. It handles authentication (personal token or App JWT), retry with
// exponential backoff, and diff parsing.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Retry tuning.
const (
	maxRetryAttempts  = 4
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
)

const defaultBaseURL = "https://api.github.com"

// Client is an authenticated GitHub API client for one repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	logger     *slog.Logger

	tokenMu     sync.RWMutex
	token       string
	isAppAuth   bool
	appID       string
	privateKey  []byte
	tokenExpiry time.Time
}

// Config holds configuration for creating a new Client.
type Config struct {
	Owner       string
	Repo        string
	Token       string // personal access token; resolved from gh CLI when empty
	AppID       string // GitHub App ID for app authentication
	AppKeyPath  string // path to the App's private key PEM
	BaseURL     string // override for GitHub Enterprise
	HTTPTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a client using personal-token or GitHub App authentication,
// depending on whether AppID is set.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
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

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		logger:     logger,
	}

	if cfg.AppID != "" {
		if err := c.initAppAuth(cfg.AppID, cfg.AppKeyPath); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := c.initTokenAuth(ctx, cfg.Token); err != nil {
		return nil, err
	}
	return c, nil
}

// retryWithBackoff executes fn with exponential backoff and jitter.
func (c *Client) retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying github request", "operation", operation, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}

// drainAndCloseBody drains and closes a response body to keep connections
// reusable.
func drainAndCloseBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// doRequest performs an authenticated request with retry. accept overrides
// the Accept header when non-empty (used for raw content and diff formats).
func (c *Client) doRequest(ctx context.Context, method, url, accept string, body any) ([]byte, error) {
	if c.isAppAuth {
		if err := c.refreshJWTIfNeeded(); err != nil {
			return nil, fmt.Errorf("refreshing app JWT: %w", err)
		}
	}

	var result []byte
	err := c.retryWithBackoff(ctx, fmt.Sprintf("%s %s", method, url), func() error {
		var bodyReader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshaling request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return err
		}
		c.tokenMu.RLock()
		token := c.token
		c.tokenMu.RUnlock()
		if c.isAppAuth {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			req.Header.Set("Authorization", "token "+token)
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		} else {
			req.Header.Set("Accept", "application/vnd.github.v3+json")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer drainAndCloseBody(resp.Body)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("http %d: rate limited", resp.StatusCode)
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("http %d: server error", resp.StatusCode)
		case resp.StatusCode >= http.StatusBadRequest:
			data, _ := io.ReadAll(resp.Body)
			// Client errors are not retryable.
			return retry.Unrecoverable(fmt.Errorf("http %d: %s", resp.StatusCode, firstLine(data)))
		}

		result, err = io.ReadAll(resp.Body)
		return err
	})
	return result, err
}

func (c *Client) apiURL(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func firstLine(data []byte) string {
	s := strings.TrimSpace(string(data))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
