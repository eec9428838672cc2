package rdf

import (
	"strings"

	"github.com/rdfstore/rdfstore/internal/storeerr"
)

// NQuadsParser reads strict N-Quads: <subject> <predicate> <object>
// [<graph>] . , with a bare triple (no graph term) landing in the default
// graph. Unlike Turtle/TriG, N-Quads has no prefix or base-IRI directives
// and no bare numeric/boolean literals; parseTerm rejects anything outside
// <IRI>, _:blank, "literal", and the RDF 1.2 <<( s p o )>> quoted-triple
// form accordingly.
type NQuadsParser struct {
	input  string
	pos    int
	length int
}

// NewNQuadsParser creates a parser for input, which must already be strict
// N-Quads (io.go's NewParser is the only supported entry point into this
// package's parsing; no relaxed/Turtle-compatible mode is offered).
func NewNQuadsParser(input string) *NQuadsParser {
	return &NQuadsParser{input: input, length: len(input)}
}

// Parse reads every quad in the document.
func (p *NQuadsParser) Parse() ([]*Quad, error) {
	var quads []*Quad

	for p.pos < p.length {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		if p.atDirectiveKeyword() {
			return nil, storeerr.Syntaxf("Turtle-style directives (@prefix/@base/PREFIX/BASE) are not valid in strict N-Quads at byte offset %d", p.pos)
		}

		quad, err := p.parseQuad()
		if err != nil {
			return nil, err
		}
		if quad != nil {
			quads = append(quads, quad)
		}
	}

	return quads, nil
}

// skipWhitespaceAndComments advances past layout and '#' line comments.
func (p *NQuadsParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case '#':
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

// atDirectiveKeyword reports whether the cursor sits on a Turtle directive
// that strict N-Quads has no syntax for, so Parse can fail with a
// targeted message instead of the generic "unexpected character" parseTerm
// would otherwise produce.
func (p *NQuadsParser) atDirectiveKeyword() bool {
	rest := p.input[p.pos:]
	if strings.HasPrefix(rest, "@prefix") || strings.HasPrefix(rest, "@base") {
		return true
	}
	for _, kw := range [...]string{"PREFIX", "BASE"} {
		if len(rest) < len(kw) || !strings.EqualFold(rest[:len(kw)], kw) {
			continue
		}
		if len(rest) == len(kw) || isLayoutByte(rest[len(kw)]) {
			return true
		}
	}
	return false
}

func isLayoutByte(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// parseQuad parses subject predicate object [graph] .
func (p *NQuadsParser) parseQuad() (*Quad, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, storeerr.Syntaxf("parsing quad subject: %w", err)
	}
	if _, ok := subject.(*QuotedTriple); ok {
		return nil, storeerr.Syntaxf("triple terms cannot be used as subjects in N-Quads")
	}

	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return nil, storeerr.Syntaxf("parsing quad predicate: %w", err)
	}
	if _, ok := predicate.(*QuotedTriple); ok {
		return nil, storeerr.Syntaxf("triple terms cannot be used as predicates in N-Quads")
	}

	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return nil, storeerr.Syntaxf("parsing quad object: %w", err)
	}
	// Triple terms are allowed as objects (RDF 1.2).

	p.skipWhitespaceAndComments()

	graph, err := p.parseOptionalGraph()
	if err != nil {
		return nil, err
	}

	if p.pos >= p.length || p.input[p.pos] != '.' {
		return nil, storeerr.Syntaxf("expected '.' at end of quad at byte offset %d", p.pos)
	}
	p.pos++

	if graph == nil {
		graph = NewDefaultGraph()
	}
	return NewQuad(subject, predicate, object, graph), nil
}

// parseOptionalGraph parses the 4th N-Quads position, if present.
func (p *NQuadsParser) parseOptionalGraph() (Term, error) {
	if p.pos >= p.length {
		return nil, nil
	}
	switch p.input[p.pos] {
	case '<':
		graph, err := p.parseTerm()
		if err != nil {
			return nil, storeerr.Syntaxf("parsing quad graph: %w", err)
		}
		p.skipWhitespaceAndComments()
		return graph, nil
	case '_':
		graph, err := p.parseBlankNode()
		if err != nil {
			return nil, storeerr.Syntaxf("parsing quad graph: %w", err)
		}
		p.skipWhitespaceAndComments()
		return graph, nil
	default:
		return nil, nil
	}
}

// parseTerm parses an RDF term in one of the four forms strict N-Quads
// supports: IRI, blank node, literal, or RDF 1.2 quoted triple.
func (p *NQuadsParser) parseTerm() (Term, error) {
	ch := p.input[p.pos]

	switch ch {
	case '<':
		if strings.HasPrefix(p.input[p.pos:], "<<(") {
			return p.parseQuotedTriple()
		}
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, storeerr.Syntaxf("unexpected character %q at byte offset %d: strict N-Quads allows only <IRI>, _:blank, \"literal\", or <<( quoted triple )>>", ch, p.pos)
	}
}

// parseIRI parses an absolute IRI enclosed in < >.
func (p *NQuadsParser) parseIRI() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", storeerr.Syntaxf("expected '<' at start of IRI at byte offset %d", p.pos)
	}
	p.pos++

	var result strings.Builder
	for p.pos < p.length && p.input[p.pos] != '>' {
		ch := p.input[p.pos]

		if ch == '\\' {
			if p.pos+1 < p.length && (p.input[p.pos+1] == 'u' || p.input[p.pos+1] == 'U') {
				escaped, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				result.WriteString(escaped)
				continue
			}
			return "", storeerr.Syntaxf("invalid escape sequence in IRI at byte offset %d", p.pos)
		}

		// N-Quads forbids space, <, >, ", {, }, |, ^, `, and control bytes
		// inside an IRIREF.
		if ch == ' ' || ch == '<' || ch == '>' || ch == '"' || ch == '{' || ch == '}' ||
			ch == '|' || ch == '^' || ch == '`' || ch <= 0x1F {
			return "", storeerr.Syntaxf("invalid character %q in IRI at byte offset %d", ch, p.pos)
		}

		result.WriteByte(ch)
		p.pos++
	}

	if p.pos >= p.length {
		return "", storeerr.Syntaxf("unclosed IRI starting near byte offset %d", p.pos)
	}
	iri := result.String()
	p.pos++ // consume '>'

	if !strings.Contains(iri, ":") {
		return "", storeerr.Syntaxf("relative IRI not allowed in N-Quads: %s", iri)
	}
	return iri, nil
}

// parseBlankNode parses _:label.
func (p *NQuadsParser) parseBlankNode() (Term, error) {
	if p.pos >= p.length || p.input[p.pos] != '_' {
		return nil, storeerr.Syntaxf("expected '_' at start of blank node at byte offset %d", p.pos)
	}
	p.pos++
	if p.pos >= p.length || p.input[p.pos] != ':' {
		return nil, storeerr.Syntaxf("expected ':' after '_' in blank node at byte offset %d", p.pos)
	}
	p.pos++

	start := p.pos
	for p.pos < p.length && !isTermBoundary(p.input[p.pos]) {
		p.pos++
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

func isTermBoundary(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '<'
}

// parseLiteral parses a quoted literal, with its optional language tag
// (plus RDF 1.2 --ltr/--rtl direction suffix) or ^^datatype.
func (p *NQuadsParser) parseLiteral() (Term, error) {
	value, err := p.parseQuotedString()
	if err != nil {
		return nil, err
	}

	p.skipWhitespaceAndComments()
	if p.pos >= p.length {
		return NewLiteral(value), nil
	}

	switch {
	case p.input[p.pos] == '@':
		return p.parseLanguageTaggedLiteral(value)
	case p.input[p.pos] == '^' && p.pos+1 < p.length && p.input[p.pos+1] == '^':
		p.pos += 2
		p.skipWhitespaceAndComments()
		datatypeIRI, err := p.parseIRI()
		if err != nil {
			return nil, storeerr.Syntaxf("parsing literal datatype: %w", err)
		}
		return NewLiteralWithDatatype(value, NewNamedNode(datatypeIRI)), nil
	default:
		return NewLiteral(value), nil
	}
}

// parseQuotedString reads the characters between a literal's opening and
// closing '"', resolving the standard backslash escapes.
func (p *NQuadsParser) parseQuotedString() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '"' {
		return "", storeerr.Syntaxf("expected '\"' at start of literal at byte offset %d", p.pos)
	}
	p.pos++

	var value strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		ch := p.input[p.pos]
		if ch != '\\' {
			value.WriteByte(ch)
			p.pos++
			continue
		}

		p.pos++
		if p.pos >= p.length {
			return "", storeerr.Syntaxf("unexpected end of input in escape sequence")
		}
		switch p.input[p.pos] {
		case 'n':
			value.WriteByte('\n')
		case 't':
			value.WriteByte('\t')
		case 'r':
			value.WriteByte('\r')
		case 'b':
			value.WriteByte('\b')
		case 'f':
			value.WriteByte('\f')
		case '"':
			value.WriteByte('"')
		case '\\':
			value.WriteByte('\\')
		case 'u', 'U':
			p.pos--
			escaped, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			value.WriteString(escaped)
			continue
		default:
			return "", storeerr.Syntaxf("invalid escape sequence \\%c at byte offset %d", p.input[p.pos], p.pos)
		}
		p.pos++
	}

	if p.pos >= p.length {
		return "", storeerr.Syntaxf("unclosed string literal")
	}
	p.pos++ // consume closing '"'
	return value.String(), nil
}

// parseLanguageTaggedLiteral parses the @lang[--dir] suffix following a
// literal's quoted string, with value already decoded.
func (p *NQuadsParser) parseLanguageTaggedLiteral(value string) (Term, error) {
	p.pos++ // consume '@'
	start := p.pos
	if p.pos >= p.length {
		return nil, storeerr.Syntaxf("empty language tag")
	}
	firstChar := p.input[p.pos]
	if !((firstChar >= 'a' && firstChar <= 'z') || (firstChar >= 'A' && firstChar <= 'Z')) {
		return nil, storeerr.Syntaxf("invalid language tag: must start with a letter, got %q", firstChar)
	}
	for p.pos < p.length && !isTermBoundary(p.input[p.pos]) {
		p.pos++
	}
	langTag := p.input[start:p.pos]

	idx := strings.Index(langTag, "--")
	if idx < 0 {
		return NewLiteralWithLanguage(value, langTag), nil
	}

	lang, dir := langTag[:idx], langTag[idx+2:]
	if lang == "" {
		return nil, storeerr.Syntaxf("missing language tag before '--' in language tag")
	}
	if dir == "" {
		return nil, storeerr.Syntaxf("missing direction after '--' in language tag")
	}
	if dir != "ltr" && dir != "rtl" {
		return nil, storeerr.Syntaxf("invalid direction in language tag: %q (must be 'ltr' or 'rtl', lowercase)", dir)
	}
	return NewLiteralWithLanguageAndDirection(value, lang, dir), nil
}

// parseQuotedTriple parses the RDF 1.2 triple-term syntax <<( s p o )>>.
func (p *NQuadsParser) parseQuotedTriple() (*QuotedTriple, error) {
	if p.pos+2 >= p.length || p.input[p.pos:p.pos+3] != "<<(" {
		return nil, storeerr.Syntaxf("expected '<<(' at start of quoted triple at byte offset %d", p.pos)
	}
	p.pos += 3
	p.skipWhitespaceAndComments()

	subject, err := p.parseTerm()
	if err != nil {
		return nil, storeerr.Syntaxf("parsing quoted triple subject: %w", err)
	}
	if _, ok := subject.(*Literal); ok {
		return nil, storeerr.Syntaxf("quoted triple subject cannot be a literal")
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return nil, storeerr.Syntaxf("parsing quoted triple predicate: %w", err)
	}
	if _, ok := predicate.(*NamedNode); !ok {
		return nil, storeerr.Syntaxf("quoted triple predicate must be an IRI, got %T", predicate)
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return nil, storeerr.Syntaxf("parsing quoted triple object: %w", err)
	}
	p.skipWhitespaceAndComments()

	if p.pos+2 >= p.length || p.input[p.pos:p.pos+3] != ")>>" {
		return nil, storeerr.Syntaxf("expected ')>>' at end of quoted triple, got %q", p.input[p.pos:min(p.pos+3, p.length)])
	}
	p.pos += 3

	qt, err := NewQuotedTriple(subject, predicate, object)
	if err != nil {
		return nil, storeerr.Syntaxf("building quoted triple: %w", err)
	}
	return qt, nil
}

// parseUnicodeEscape decodes a \uXXXX or \UXXXXXXXX escape sequence into
// its UTF-8 encoding, used inside both IRIREFs and string literals.
func (p *NQuadsParser) parseUnicodeEscape() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '\\' {
		return "", storeerr.Syntaxf("expected '\\' at start of escape sequence")
	}
	p.pos++
	if p.pos >= p.length {
		return "", storeerr.Syntaxf("unexpected end of input in Unicode escape")
	}

	var hexDigits int
	switch p.input[p.pos] {
	case 'u':
		hexDigits = 4
	case 'U':
		hexDigits = 8
	default:
		return "", storeerr.Syntaxf("invalid Unicode escape type: %c", p.input[p.pos])
	}
	p.pos++

	if p.pos+hexDigits > p.length {
		return "", storeerr.Syntaxf("incomplete Unicode escape sequence")
	}
	hexStr := p.input[p.pos : p.pos+hexDigits]
	p.pos += hexDigits

	codePoint, err := parseHexUint32(hexStr)
	if err != nil {
		return "", storeerr.Syntaxf("invalid hex digits in Unicode escape: %s", hexStr)
	}
	return string(rune(codePoint)), nil
}

// parseHexUint32 reads a fixed-width hexadecimal digit run without pulling
// in strconv's full numeric-literal grammar (leading +/-, 0x prefixes,
// underscores) that a raw \uXXXX escape never carries.
func parseHexUint32(s string) (uint32, error) {
	var result uint32
	for i := 0; i < len(s); i++ {
		ch := s[i]
		var digit uint32
		switch {
		case ch >= '0' && ch <= '9':
			digit = uint32(ch - '0')
		case ch >= 'a' && ch <= 'f':
			digit = uint32(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			digit = uint32(ch-'A') + 10
		default:
			return 0, storeerr.Syntaxf("invalid hex character: %c", ch)
		}
		result = result*16 + digit
	}
	return result, nil
}
