// Package jsonl persists the decisions log as an append-only JSONL file, one
// decision per line, newest at the end.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.DecisionStore = (*Store)(nil)

// maxLineSize is the maximum size for a single JSONL line (4MB).
const maxLineSize = 4 * 1024 * 1024

// Store reads and appends Decision records in a JSONL file.
type Store struct {
	path string

	mu sync.Mutex // serializes appends
}

// NewStore creates a store backed by the given file path. The file need not
// exist yet; a missing file reads as an empty log.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Recent returns up to limit decisions, newest first. The file is stored
// oldest-first, so the tail of the file is the head of the result.
func (s *Store) Recent(_ context.Context, limit int) ([]mergeguard.Decision, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}

	// Reverse into newest-first order.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) load() ([]mergeguard.Decision, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var decisions []mergeguard.Decision
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var d mergeguard.Decision
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		decisions = append(decisions, d)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return decisions, nil
}

// Append writes decisions to the end of the log, creating parent directories
// if needed. Used by the merge-time extraction step, never by analysis.
func (s *Store) Append(decisions ...mergeguard.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, d := range decisions {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}

	return f.Sync()
}
