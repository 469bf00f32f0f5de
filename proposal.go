package mergeguard

import (
	"context"
	"time"
)

// Attribution classifies how a proposal was authored.
type Attribution string

// Attribution values.
const (
	AttributionUnknown          Attribution = "unknown"
	AttributionHuman            Attribution = "human"
	AttributionMachineSuspected Attribution = "machine_suspected"
	AttributionMachineConfirmed Attribution = "machine_confirmed"
)

// Machine reports whether the proposal is confirmed or suspected to be
// machine-authored.
func (a Attribution) Machine() bool {
	return a == AttributionMachineConfirmed || a == AttributionMachineSuspected
}

// Proposal is an open, unmerged change proposal (pull/merge request).
// It is immutable for the duration of one analysis run.
type Proposal struct {
	Number      int         `json:"number"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	BaseBranch  string      `json:"base_branch"`
	HeadBranch  string      `json:"head_branch"`
	HeadSHA     string      `json:"head_sha"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Labels      []string    `json:"labels,omitempty"`
	Description string      `json:"description,omitempty"`
	Files       []FileDiff  `json:"files,omitempty"`
	Attribution Attribution `json:"attribution,omitempty"`

	// Symbols is populated during analysis enrichment.
	Symbols []ChangedSymbol `json:"symbols,omitempty"`

	// SymbolCoverage records, per touched file, whether symbol extraction
	// succeeded. Files absent from the map degrade to coarse file-level
	// analysis.
	SymbolCoverage map[string]bool `json:"-"`
}

// FilePaths returns the set of file paths touched by the proposal.
func (p *Proposal) FilePaths() map[string]struct{} {
	paths := make(map[string]struct{}, len(p.Files))
	for _, f := range p.Files {
		paths[f.Path] = struct{}{}
	}
	return paths
}

// File returns the FileDiff for path, if the proposal touches it.
func (p *Proposal) File(path string) (FileDiff, bool) {
	for _, f := range p.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileDiff{}, false
}

// SymbolsInFile returns the proposal's changed symbols for a single file.
func (p *Proposal) SymbolsInFile(path string) []ChangedSymbol {
	var out []ChangedSymbol
	for _, cs := range p.Symbols {
		if cs.Symbol.File == path {
			out = append(out, cs)
		}
	}
	return out
}

// HostClient is the contract with a hosting provider (GitHub-shaped or
// GitLab-shaped). The core never depends on a concrete variant and never
// performs network calls itself.
type HostClient interface {
	// OpenProposals lists open proposals, newest first, at most max.
	OpenProposals(ctx context.Context, max int) ([]*Proposal, error)
	// Proposal fetches a single proposal's metadata without file diffs.
	Proposal(ctx context.Context, number int) (*Proposal, error)
	// ProposalFiles fetches the already-parsed file diffs for a proposal.
	ProposalFiles(ctx context.Context, number int) ([]FileDiff, error)
	// FileContent fetches the content of a file at the given ref.
	FileContent(ctx context.Context, path, ref string) ([]byte, error)
	// PostComment creates or updates the analysis comment on a proposal.
	PostComment(ctx context.Context, number int, body string) error
	// SetStatus sets a commit status for the proposal's head SHA.
	SetStatus(ctx context.Context, sha, state, description string) error
}
