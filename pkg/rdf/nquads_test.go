package rdf

import (
	"strings"
	"testing"
)

func TestNQuadsParser_TripleDefaultsToDefaultGraph(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> <http://example/b> .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	if _, ok := quads[0].Graph.(*DefaultGraph); !ok {
		t.Errorf("a triple with no graph term should land in the default graph, got %T", quads[0].Graph)
	}
}

func TestNQuadsParser_QuadWithNamedGraph(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> <http://example/b> <http://example/g> .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	g, ok := quads[0].Graph.(*NamedNode)
	if !ok || g.IRI != "http://example/g" {
		t.Errorf("expected graph <http://example/g>, got %v", quads[0].Graph)
	}
}

func TestNQuadsParser_BlankNodeSubjectAndObject(t *testing.T) {
	quads, err := NewNQuadsParser(`_:b1 <http://example/p> _:b2 .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s, ok := quads[0].Subject.(*BlankNode)
	if !ok || s.ID != "b1" {
		t.Errorf("subject = %v, want blank node b1", quads[0].Subject)
	}
	o, ok := quads[0].Object.(*BlankNode)
	if !ok || o.ID != "b2" {
		t.Errorf("object = %v, want blank node b2", quads[0].Object)
	}
}

func TestNQuadsParser_PlainLiteral(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> "hello" .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lit, ok := quads[0].Object.(*Literal)
	if !ok || lit.Value != "hello" {
		t.Errorf("object = %v, want literal \"hello\"", quads[0].Object)
	}
}

func TestNQuadsParser_LanguageTaggedLiteral(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> "bonjour"@fr .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lit, ok := quads[0].Object.(*Literal)
	if !ok || lit.Value != "bonjour" || lit.Language != "fr" {
		t.Errorf("object = %+v, want bonjour@fr", quads[0].Object)
	}
}

func TestNQuadsParser_TypedLiteral(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> "42"^^<http://www.w3.org/2001/XMLSchema#integer> .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lit, ok := quads[0].Object.(*Literal)
	if !ok || lit.Value != "42" || lit.Datatype == nil || lit.Datatype.IRI != XSDInteger.IRI {
		t.Errorf("object = %+v, want \"42\"^^xsd:integer", quads[0].Object)
	}
}

func TestNQuadsParser_StringEscapes(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> "line1\nline2\ttabbed" .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lit, ok := quads[0].Object.(*Literal)
	if !ok || lit.Value != "line1\nline2\ttabbed" {
		t.Errorf("object = %+v, want escape-decoded literal", quads[0].Object)
	}
}

func TestNQuadsParser_UnicodeEscape(t *testing.T) {
	quads, err := NewNQuadsParser(`<http://example/a> <http://example/p> "\U000000E9" .`).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lit, ok := quads[0].Object.(*Literal)
	if !ok || lit.Value != "é" {
		t.Errorf("object = %+v, want the decoded unicode escape", quads[0].Object)
	}
}

func TestNQuadsParser_MultipleLinesAndComments(t *testing.T) {
	input := `# a comment
<http://example/a> <http://example/p> <http://example/b> .
# another comment
<http://example/c> <http://example/p> <http://example/d> .
`
	quads, err := NewNQuadsParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(quads) != 2 {
		t.Fatalf("expected 2 quads skipping comments, got %d", len(quads))
	}
}

func TestNewParserRejectsUnsupportedContentType(t *testing.T) {
	if _, err := NewParser("text/turtle"); err == nil {
		t.Error("NewParser should reject a content type outside the N-Quads/N-Triples scope")
	}
}

func TestNewParserAcceptsNQuadsAndNTriples(t *testing.T) {
	for _, ct := range []string{"application/n-quads", "application/n-triples", "text/plain"} {
		if _, err := NewParser(ct); err != nil {
			t.Errorf("NewParser(%q): %v", ct, err)
		}
	}
}

func TestWriteNQuadsOmitsDefaultGraph(t *testing.T) {
	quads := []*Quad{
		NewQuad(NewNamedNode("http://example/a"), NewNamedNode("http://example/p"), NewLiteral("v"), NewDefaultGraph()),
	}
	var buf strings.Builder
	if err := WriteNQuads(&buf, quads); err != nil {
		t.Fatalf("WriteNQuads: %v", err)
	}
	if strings.Contains(buf.String(), "DEFAULT") {
		t.Errorf("default-graph quads should not emit a graph term, got %q", buf.String())
	}
}

func TestWriteNQuadsIncludesNamedGraph(t *testing.T) {
	g := NewNamedNode("http://example/g")
	quads := []*Quad{
		NewQuad(NewNamedNode("http://example/a"), NewNamedNode("http://example/p"), NewLiteral("v"), g),
	}
	var buf strings.Builder
	if err := WriteNQuads(&buf, quads); err != nil {
		t.Fatalf("WriteNQuads: %v", err)
	}
	if !strings.Contains(buf.String(), "<http://example/g>") {
		t.Errorf("expected the named graph IRI in the output, got %q", buf.String())
	}
}

func TestDumpThenReparseRoundTrip(t *testing.T) {
	original := []*Quad{
		NewQuad(NewNamedNode("http://example/a"), NewNamedNode("http://example/p"), NewLiteral("hello"), NewDefaultGraph()),
		NewQuad(NewNamedNode("http://example/c"), NewNamedNode("http://example/p"), NewIntegerLiteral(7), NewNamedNode("http://example/g")),
	}
	var buf strings.Builder
	if err := WriteNQuads(&buf, original); err != nil {
		t.Fatalf("WriteNQuads: %v", err)
	}
	parser, err := NewParser("application/n-quads")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	reparsed, err := parser.Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(reparsed) != len(original) {
		t.Fatalf("round trip produced %d quads, want %d", len(reparsed), len(original))
	}
	for i, q := range original {
		if !reparsed[i].Subject.Equals(q.Subject) || !reparsed[i].Object.Equals(q.Object) {
			t.Errorf("quad %d round-tripped as %v, want %v", i, reparsed[i], q)
		}
	}
}

func TestGetSupportedContentTypes(t *testing.T) {
	types := GetSupportedContentTypes()
	if len(types) == 0 {
		t.Fatal("expected at least one supported content type")
	}
}
