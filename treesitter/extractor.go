// Package treesitter implements symbol extraction using tree-sitter parsers.
// Each supported language registers a configuration mapping its grammar's
// node types onto the common symbol model.
package treesitter

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.SymbolExtractor = (*Extractor)(nil)

var whitespaceRe = regexp.MustCompile(`\s+`)

// language holds the tree-sitter configuration for one supported language.
type language struct {
	name       string
	extensions []string
	lang       *sitter.Language

	// collect walks the syntax tree appending symbols to fs. parent names
	// the enclosing class, if any.
	collect func(node *sitter.Node, src []byte, parent string, fs *mergeguard.FileSymbols)

	// imports returns the file's import targets.
	imports func(root *sitter.Node, src []byte) []string
}

// languages maps language names to their configuration, populated by init()
// functions in per-language files.
var languages = map[string]*language{}

// extensionMap is derived from the registered languages.
var extensionMap = map[string]*language{}

func register(l *language) {
	languages[l.name] = l
	for _, ext := range l.extensions {
		extensionMap[ext] = l
	}
}

// Extractor extracts symbols, imports, and complexity estimates from source
// files. Parsers are created per call; tree-sitter parsers are not safe for
// concurrent use.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether the extractor handles the file's language.
func (e *Extractor) Supported(filePath string) bool {
	_, ok := extensionMap[strings.ToLower(filepath.Ext(filePath))]
	return ok
}

// Extract parses content and returns the file's symbol table. Files in an
// unregistered language return ErrUnsupportedLanguage.
func (e *Extractor) Extract(ctx context.Context, filePath string, content []byte) (*mergeguard.FileSymbols, error) {
	lang, ok := extensionMap[strings.ToLower(filepath.Ext(filePath))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", filePath, mergeguard.ErrUnsupportedLanguage)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang.lang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	defer tree.Close()

	fs := &mergeguard.FileSymbols{Path: filePath}
	lang.collect(tree.RootNode(), content, "", fs)
	fs.Imports = lang.imports(tree.RootNode(), content)

	module := mergeguard.ModuleOf(filePath)
	for i := range fs.Symbols {
		fs.Symbols[i].File = filePath
		fs.Symbols[i].Module = module
	}
	return fs, nil
}

// nodeText returns the source text of a node.
func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(src)
}

// collapseWhitespace replaces runs of whitespace with a single space and
// trims.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// lineRange converts a node's points to 1-based inclusive lines.
func lineRange(node *sitter.Node) (start, end int) {
	return int(node.StartPoint().Row) + 1, int(node.EndPoint().Row) + 1
}

// countComplexity estimates cyclomatic complexity as 1 plus the number of
// branching constructs in the subtree.
func countComplexity(node *sitter.Node, branchTypes map[string]bool) int {
	count := 1
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if branchTypes[n.Type()] {
			count++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return count
}

// collectCalls gathers the names of functions called within the subtree.
// Member calls contribute their final segment ("obj.method" -> "method").
func collectCalls(node *sitter.Node, src []byte, callType string) []string {
	seen := make(map[string]bool)
	var calls []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == callType {
			if fn := n.ChildByFieldName("function"); fn != nil {
				name := nodeText(fn, src)
				if i := strings.LastIndexAny(name, "."); i >= 0 {
					name = name[i+1:]
				}
				if name != "" && !seen[name] {
					seen[name] = true
					calls = append(calls, name)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return calls
}

// paramList extracts parameters from a parameter list node by collecting
// identifier-bearing children.
func paramList(node *sitter.Node, src []byte, declTypes map[string]bool) []mergeguard.Param {
	if node == nil {
		return nil
	}
	var params []mergeguard.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch {
		case child.Type() == "identifier":
			params = append(params, mergeguard.Param{Name: nodeText(child, src)})
		case declTypes[child.Type()]:
			name := child.ChildByFieldName("name")
			if name == nil {
				// Typed parameters nest the identifier as the first child.
				for j := 0; j < int(child.NamedChildCount()); j++ {
					if child.NamedChild(j).Type() == "identifier" {
						name = child.NamedChild(j)
						break
					}
				}
			}
			typ := child.ChildByFieldName("type")
			if name != nil {
				params = append(params, mergeguard.Param{
					Name: nodeText(name, src),
					Type: collapseWhitespace(nodeText(typ, src)),
				})
			}
		}
	}
	return params
}
