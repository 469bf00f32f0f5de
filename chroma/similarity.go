// Package chroma implements the duplication similarity measure on top of the
// chroma lexer library. Symbol bodies are lexed into token streams, literals
// and identifiers are normalized, and similarity is the Jaccard index over
// token bigrams, which tolerates renamed variables and reordered constants.
package chroma

import (
	"path/filepath"
	"strings"

	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/mergeguard/mergeguard"
)

// Similarity is a mergeguard.SimilarityFunc comparing two changed symbols'
// bodies. Symbols whose language cannot be lexed, or with empty bodies, score
// zero so duplication detection simply skips them.
func Similarity(a, b mergeguard.ChangedSymbol) float64 {
	ta := normalizedTokens(a.Symbol.File, a.Body)
	tb := normalizedTokens(b.Symbol.File, b.Body)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return jaccard(bigrams(ta), bigrams(tb))
}

var _ mergeguard.SimilarityFunc = Similarity

// normalizedTokens lexes source and maps it to a comparable token stream:
// whitespace and comments are dropped, literals collapse to their class, and
// identifiers collapse to a placeholder so renames do not defeat the measure.
func normalizedTokens(path, source string) []string {
	if source == "" {
		return nil
	}

	lexer := lexerFor(path)
	if lexer == nil {
		return nil
	}
	lexer = chromalib.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil
	}

	var tokens []string
	for token := iterator(); token != chromalib.EOF; token = iterator() {
		switch {
		case token.Type.InCategory(chromalib.Text), token.Type.InCategory(chromalib.Comment):
			continue
		case token.Type.InCategory(chromalib.LiteralString):
			tokens = append(tokens, "<str>")
		case token.Type.InCategory(chromalib.LiteralNumber):
			tokens = append(tokens, "<num>")
		case token.Type.InCategory(chromalib.Name):
			tokens = append(tokens, "<id>")
		default:
			tokens = append(tokens, strings.TrimSpace(token.Value))
		}
	}
	return tokens
}

// lexerFor resolves a lexer from a file path, stripping the "a/"/"b/"
// prefixes common in diff output.
func lexerFor(path string) chromalib.Lexer {
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	return lexers.Match(filepath.Base(path))
}

func bigrams(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	if len(tokens) == 1 {
		set[tokens[0]] = struct{}{}
		return set
	}
	for i := 0; i+1 < len(tokens); i++ {
		set[tokens[i]+"\x00"+tokens[i+1]] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for k := range a {
		if _, ok := b[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}
