// Package git computes historical file churn via shell git commands.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.ChurnProvider = (*ChurnProvider)(nil)

// DefaultHistoryDepth is how many commits of a file's history are inspected.
const DefaultHistoryDepth = 50

// correctionMarkers are commit subject fragments that indicate a commit was
// fixing or undoing earlier work on the file.
var correctionMarkers = []string{"revert", "hotfix", "fixup", "fix:", "fix(", "fix!"}

// ChurnProvider derives a per-file revert/hotfix rate from the local clone's
// commit history. The rate is the fraction of the file's recent commits whose
// subject marks them as corrections, in [0,1].
type ChurnProvider struct {
	repoPath string
	depth    int

	mu    sync.Mutex
	cache map[string]float64
}

// NewChurnProvider creates a provider reading history from the clone at
// repoPath.
func NewChurnProvider(repoPath string) *ChurnProvider {
	return &ChurnProvider{
		repoPath: repoPath,
		depth:    DefaultHistoryDepth,
		cache:    make(map[string]float64),
	}
}

// Churn returns the correction rate for filePath. Results are memoized per
// provider, so repeated queries within one run hit git once.
func (c *ChurnProvider) Churn(ctx context.Context, filePath string) (float64, error) {
	c.mu.Lock()
	if rate, ok := c.cache[filePath]; ok {
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	subjects, err := c.log(ctx, filePath)
	if err != nil {
		return 0, err
	}

	rate := 0.0
	if len(subjects) > 0 {
		corrections := 0
		for _, subject := range subjects {
			if isCorrection(subject) {
				corrections++
			}
		}
		rate = float64(corrections) / float64(len(subjects))
	}

	c.mu.Lock()
	c.cache[filePath] = rate
	c.mu.Unlock()
	return rate, nil
}

// log returns the subjects of the file's most recent commits.
func (c *ChurnProvider) log(ctx context.Context, filePath string) ([]string, error) {
	args := []string{"-C", c.repoPath, "log", "--format=%s", fmt.Sprintf("-n%d", c.depth), "--", filePath}
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git log failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	var subjects []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects, nil
}

func isCorrection(subject string) bool {
	s := strings.ToLower(subject)
	for _, marker := range correctionMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
