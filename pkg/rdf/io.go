package rdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/rdfstore/rdfstore/internal/storeerr"
)

// RDFParser is the interface for parsing RDF data. Only N-Quads/N-Triples
// is implemented here: spec §1 carves out surface-syntax parsers
// (Turtle, full N-Quads, RDF/XML, JSON-LD) as an external collaborator,
// but spec scenario S6 requires an in-process N-Quads round-trip path
// (dump, reparse, reinsert), so that one format is kept as the store's
// Dump/Load path rather than re-exposed as a general multi-format surface.
type RDFParser interface {
	Parse(reader io.Reader) ([]*Quad, error)
	ContentType() string
}

// NewParser returns the N-Quads parser for "application/n-quads" (and its
// N-Triples subset under "application/n-triples"/"text/plain"); any other
// content type is rejected, since no other surface format is in scope.
func NewParser(contentType string) (RDFParser, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	switch ct {
	case "application/n-triples", "text/plain", "application/n-quads":
		return &NQuadsIOParser{}, nil
	default:
		return nil, storeerr.Syntaxf("unsupported content type: %s (only N-Quads/N-Triples is in scope)", contentType)
	}
}

// NQuadsIOParser parses N-Quads (quads with optional graph; a triple with
// no graph term is a quad in the default graph).
type NQuadsIOParser struct{}

func (p *NQuadsIOParser) ContentType() string { return "application/n-quads" }

func (p *NQuadsIOParser) Parse(reader io.Reader) ([]*Quad, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	quads, err := NewNQuadsParser(string(data)).Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing N-Quads: %w", err)
	}
	return quads, nil
}

// WriteNQuads serializes quads in N-Quads syntax, one quad per line,
// omitting the graph term for quads in the default graph.
func WriteNQuads(w io.Writer, quads []*Quad) error {
	for _, q := range quads {
		if _, err := io.WriteString(w, q.NQuadsLine()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// GetSupportedContentTypes returns the content types NewParser accepts.
func GetSupportedContentTypes() []string {
	return []string{"application/n-quads", "application/n-triples", "text/plain"}
}
