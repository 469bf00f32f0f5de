package mock

import (
	"context"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.SymbolExtractor = (*SymbolExtractor)(nil)

// SymbolExtractor is a mock implementation of mergeguard.SymbolExtractor.
type SymbolExtractor struct {
	ExtractFn func(ctx context.Context, filePath string, content []byte) (*mergeguard.FileSymbols, error)
}

func (e *SymbolExtractor) Extract(ctx context.Context, filePath string, content []byte) (*mergeguard.FileSymbols, error) {
	return e.ExtractFn(ctx, filePath, content)
}
