package mergeguard

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
)

// ErrUnsupportedLanguage is returned by a SymbolExtractor when it cannot
// parse a file's language. It is distinct from a parse error so the Overlap
// Engine can take the coarse-fallback path instead of failing the run.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// SymbolKind identifies the kind of a named source entity.
type SymbolKind string

// Symbol kinds.
const (
	SymbolFunction SymbolKind = "function"
	SymbolMethod   SymbolKind = "method"
	SymbolClass    SymbolKind = "class"
)

// Param describes a single parameter in a symbol's signature.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Symbol is a named, range-bounded source code entity.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	File      string     `json:"file"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Signature string     `json:"signature,omitempty"`
	Params    []Param    `json:"params,omitempty"`
	Return    string     `json:"return,omitempty"`
	Parent    string     `json:"parent,omitempty"` // enclosing class for methods
	Module    string     `json:"module,omitempty"` // owning module (directory-derived)
	Calls     []string   `json:"calls,omitempty"`  // symbol names this one references

	// Complexity is a cyclomatic complexity estimate, populated by the
	// extractor when the language supports it.
	Complexity int `json:"complexity,omitempty"`
}

// Range returns the symbol's line range.
func (s Symbol) Range() LineRange {
	return LineRange{Start: s.StartLine, End: s.EndLine}
}

// Lines returns the symbol's line count.
func (s Symbol) Lines() int {
	return s.Range().Len()
}

// Encloses reports whether s strictly encloses o (class containing a method).
func (s Symbol) Encloses(o Symbol) bool {
	if s.StartLine > o.StartLine || s.EndLine < o.EndLine {
		return false
	}
	return s.Lines() > o.Lines()
}

// ChangeKind classifies how a proposal changed a symbol.
type ChangeKind string

// Change kinds.
const (
	ChangeBodyModified      ChangeKind = "body-modified"
	ChangeSignatureModified ChangeKind = "signature-modified"
	ChangeAdded             ChangeKind = "added"
	ChangeRemoved           ChangeKind = "removed"
)

// ChangedSymbol is a Symbol plus the subset of its range touched by a
// proposal's diff and a classification of the change.
type ChangedSymbol struct {
	Symbol  Symbol      `json:"symbol"`
	Change  ChangeKind  `json:"change"`
	Touched []LineRange `json:"touched,omitempty"`

	// Body holds the symbol's source text for newly added symbols, used by
	// the duplication similarity measure. Empty otherwise.
	Body string `json:"-"`
}

// FileSymbols is the extraction result for a single file: its symbols and
// the import targets it declares.
type FileSymbols struct {
	Path    string   `json:"path"`
	Symbols []Symbol `json:"symbols,omitempty"`
	Imports []string `json:"imports,omitempty"`
}

// SymbolExtractor produces symbols and import edges for a file's content.
// Implementations must return ErrUnsupportedLanguage (possibly wrapped) for
// languages they cannot parse, distinct from genuine parse errors.
type SymbolExtractor interface {
	Extract(ctx context.Context, filePath string, content []byte) (*FileSymbols, error)
}

// SymbolIndex answers "which symbol encloses this line" queries for one file.
// Symbols are kept sorted by start line; lookups binary-search the candidates
// and resolve ties to the innermost enclosing symbol.
type SymbolIndex struct {
	symbols []Symbol // sorted by StartLine, then by descending length
}

// NewSymbolIndex builds an index over the given symbols.
func NewSymbolIndex(symbols []Symbol) *SymbolIndex {
	sorted := make([]Symbol, len(symbols))
	copy(sorted, symbols)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartLine != sorted[j].StartLine {
			return sorted[i].StartLine < sorted[j].StartLine
		}
		return sorted[i].Lines() > sorted[j].Lines()
	})
	return &SymbolIndex{symbols: sorted}
}

// Enclosing returns the innermost symbol whose range contains line.
func (idx *SymbolIndex) Enclosing(line int) (Symbol, bool) {
	// Last symbol starting at or before line whose range still covers it.
	i := sort.Search(len(idx.symbols), func(i int) bool {
		return idx.symbols[i].StartLine > line
	})
	var best Symbol
	found := false
	for j := i - 1; j >= 0; j-- {
		s := idx.symbols[j]
		if !s.Range().Contains(line) {
			continue
		}
		if !found || best.Encloses(s) {
			best = s
			found = true
		}
	}
	return best, found
}

// EnclosingRange returns the innermost symbol intersecting the given range.
func (idx *SymbolIndex) EnclosingRange(r LineRange) (Symbol, bool) {
	if s, ok := idx.Enclosing(r.Start); ok {
		return s, true
	}
	return idx.Enclosing(r.End)
}

// Symbols returns the indexed symbols in start-line order.
func (idx *SymbolIndex) Symbols() []Symbol {
	return idx.symbols
}

// DependencyGraph is a directed graph of file-level import relationships.
type DependencyGraph struct {
	forward map[string]map[string]struct{}
	reverse map[string]map[string]struct{}
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// AddEdge records that from imports to.
func (g *DependencyGraph) AddEdge(from, to string) {
	if from == to {
		return
	}
	if g.forward[from] == nil {
		g.forward[from] = make(map[string]struct{})
	}
	g.forward[from][to] = struct{}{}
	if g.reverse[to] == nil {
		g.reverse[to] = make(map[string]struct{})
	}
	g.reverse[to][from] = struct{}{}
}

// Dependents returns all files that transitively depend on filePath, found by
// breadth-first traversal over the reverse edges up to maxDepth.
func (g *DependencyGraph) Dependents(filePath string, maxDepth int) map[string]struct{} {
	return g.walk(g.reverse, filePath, maxDepth)
}

// Dependencies returns all files that filePath transitively depends on.
func (g *DependencyGraph) Dependencies(filePath string, maxDepth int) map[string]struct{} {
	return g.walk(g.forward, filePath, maxDepth)
}

type fileDepth struct {
	path  string
	depth int
}

func (g *DependencyGraph) walk(adj map[string]map[string]struct{}, start string, maxDepth int) map[string]struct{} {
	visited := make(map[string]struct{})
	queue := []fileDepth{{start, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := visited[cur.path]; ok || cur.depth > maxDepth {
			continue
		}
		visited[cur.path] = struct{}{}
		for next := range adj[cur.path] {
			queue = append(queue, fileDepth{next, cur.depth + 1})
		}
	}
	delete(visited, start)
	return visited
}

// ModuleOf derives the owning module for a file path: its directory, with "."
// for top-level files.
func ModuleOf(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "" {
		return "."
	}
	return dir
}

// ResolveImport maps an import target (dotted or slashed) onto one of the
// known repository file paths. It normalizes separators and tries common
// source extensions, preferring paths relative to the importing file.
func ResolveImport(target, fromFile string, known map[string]struct{}) (string, bool) {
	normalized := strings.ReplaceAll(target, ".", "/")
	normalized = strings.TrimPrefix(normalized, "/")
	candidates := []string{normalized, strings.ReplaceAll(target, "\\", "/")}
	if rel := strings.TrimPrefix(target, "./"); rel != target {
		candidates = append(candidates, path.Join(path.Dir(fromFile), rel))
	}

	exts := []string{"", ".py", ".js", ".jsx", ".ts", ".tsx", ".go"}
	for _, cand := range candidates {
		for _, ext := range exts {
			full := cand + ext
			if _, ok := known[full]; ok {
				return full, true
			}
			// Package-style import resolving to a directory module.
			init := path.Join(cand, "__init__.py")
			if _, ok := known[init]; ok {
				return init, true
			}
		}
	}

	// Fall back to suffix matching so "pkg.mod.util" resolves to
	// "src/pkg/mod/util.py" style layouts.
	for f := range known {
		trimmed := strings.TrimSuffix(f, path.Ext(f))
		if strings.HasSuffix(trimmed, "/"+normalized) || trimmed == normalized {
			return f, true
		}
	}
	return "", false
}

// NormalizeImport converts a dotted import target to a slash path for glob
// matching ("auth.session" -> "auth/session").
func NormalizeImport(target string) string {
	return strings.TrimPrefix(strings.ReplaceAll(target, ".", "/"), "/")
}
