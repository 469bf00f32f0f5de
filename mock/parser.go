package mock

import (
	"io"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.Parser = (*Parser)(nil)

// Parser is a mock implementation of mergeguard.Parser.
type Parser struct {
	ParseFn func(r io.Reader) (*mergeguard.Diff, error)
}

func (p *Parser) Parse(r io.Reader) (*mergeguard.Diff, error) {
	return p.ParseFn(r)
}
