package rdf

import (
	"context"
	"fmt"
	"strings"
)

// turtleParser is a recursive-descent parser for Turtle and TriG. N3 input
// is accepted in its Turtle-compatible subset.
type turtleParser struct {
	ctx      context.Context
	scanner  *turtleScanner
	tok      turtleToken
	format   Format
	base     string
	prefixes map[string]string
	bnodes   map[string]BlankNode
	gen      *blankNodeGenerator
	graph    Term
	depth    int
	maxDepth int
	quads    []Quad
}

func parseTurtleDocument(ctx context.Context, data []byte, format Format, opts ParseOptions) ([]Quad, error) {
	p := &turtleParser{
		ctx:      ctx,
		scanner:  newTurtleScanner(string(data)),
		format:   format,
		base:     opts.BaseIRI,
		prefixes: make(map[string]string),
		bnodes:   make(map[string]BlankNode),
		gen:      newBlankNodeGenerator(),
		maxDepth: opts.MaxDepth,
	}
	if err := p.next(); err != nil {
		return nil, p.wrap(err)
	}
	for p.tok.kind != tokEOF {
		if err := p.ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.parseStatement(); err != nil {
			return nil, p.wrap(err)
		}
	}
	return p.quads, nil
}

func (p *turtleParser) wrap(err error) error {
	return wrapParseError(string(p.format), "", 0, 0, err)
}

func (p *turtleParser) next() error {
	tok, err := p.scanner.nextToken()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *turtleParser) expect(kind turtleTokenKind) error {
	if p.tok.kind != kind {
		return p.errorf("expected %s, found %s", kind, p.tok.kind)
	}
	return p.next()
}

func (p *turtleParser) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Format:    string(p.format),
		Statement: p.scanner.currentLine(),
		Line:      p.tok.line,
		Column:    p.tok.column,
		Err:       fmt.Errorf(format, args...),
	}
}

func (p *turtleParser) emit(s Term, pred IRI, o Term) {
	p.quads = append(p.quads, Quad{S: s, P: pred, O: o, G: p.graph})
}

func (p *turtleParser) parseStatement() error {
	switch p.tok.kind {
	case tokPrefix:
		return p.parsePrefix()
	case tokBase:
		return p.parseBase()
	case tokGraph:
		if p.format != FormatTriG {
			return p.errorf("GRAPH is only allowed in TriG")
		}
		if err := p.next(); err != nil {
			return err
		}
		label, err := p.parseGraphLabel()
		if err != nil {
			return err
		}
		return p.parseGraphBlock(label)
	case tokLBrace:
		if p.format != FormatTriG {
			return p.errorf("graph blocks are only allowed in TriG")
		}
		return p.parseGraphBlock(nil)
	}

	if p.format == FormatTriG && (p.tok.kind == tokIRIRef || p.tok.kind == tokPName || p.tok.kind == tokBlankNode) {
		subject, err := p.parseTermRef()
		if err != nil {
			return err
		}
		if p.tok.kind == tokLBrace {
			return p.parseGraphBlock(subject)
		}
		return p.finishTriples(subject, false)
	}

	return p.parseTriples()
}

func (p *turtleParser) parsePrefix() error {
	sparql := p.tok.text != "@prefix"
	if err := p.next(); err != nil {
		return err
	}
	if p.tok.kind != tokPName || !strings.HasSuffix(p.tok.text, ":") {
		return p.errorf("expected prefix name ending in ':'")
	}
	prefix := strings.TrimSuffix(p.tok.text, ":")
	if err := p.next(); err != nil {
		return err
	}
	if p.tok.kind != tokIRIRef {
		return p.errorf("expected namespace IRI for prefix %q", prefix)
	}
	p.prefixes[prefix] = p.resolve(p.tok.text)
	if err := p.next(); err != nil {
		return err
	}
	if sparql {
		return nil
	}
	return p.expect(tokDot)
}

func (p *turtleParser) parseBase() error {
	sparql := p.tok.text != "@base"
	if err := p.next(); err != nil {
		return err
	}
	if p.tok.kind != tokIRIRef {
		return p.errorf("expected base IRI")
	}
	p.base = p.resolve(p.tok.text)
	if err := p.next(); err != nil {
		return err
	}
	if sparql {
		return nil
	}
	return p.expect(tokDot)
}

func (p *turtleParser) parseGraphLabel() (Term, error) {
	switch p.tok.kind {
	case tokIRIRef, tokPName, tokBlankNode:
		return p.parseTermRef()
	case tokLBracket:
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		return p.gen.next(), nil
	default:
		return nil, p.errorf("expected graph name, found %s", p.tok.kind)
	}
}

func (p *turtleParser) parseGraphBlock(label Term) error {
	if p.graph != nil {
		return p.errorf("nested graph blocks are not allowed")
	}
	if err := p.expect(tokLBrace); err != nil {
		return err
	}
	p.graph = label
	defer func() { p.graph = nil }()

	for p.tok.kind != tokRBrace {
		if p.tok.kind == tokEOF {
			return p.errorf("unterminated graph block")
		}
		subject, bracketed, err := p.parseSubject()
		if err != nil {
			return err
		}
		if err := p.parsePredicateObjectListFor(subject, bracketed); err != nil {
			return err
		}
		if p.tok.kind == tokDot {
			if err := p.next(); err != nil {
				return err
			}
			continue
		}
		if p.tok.kind != tokRBrace {
			return p.errorf("expected '.' or '}', found %s", p.tok.kind)
		}
	}
	return p.next()
}

func (p *turtleParser) parseTriples() error {
	subject, bracketed, err := p.parseSubject()
	if err != nil {
		return err
	}
	return p.finishTriples(subject, bracketed)
}

func (p *turtleParser) finishTriples(subject Term, bracketed bool) error {
	if err := p.parsePredicateObjectListFor(subject, bracketed); err != nil {
		return err
	}
	return p.expect(tokDot)
}

// parsePredicateObjectListFor parses the predicate-object list that follows
// a subject. A blank node property list subject may stand alone.
func (p *turtleParser) parsePredicateObjectListFor(subject Term, bracketed bool) error {
	if bracketed && (p.tok.kind == tokDot || p.tok.kind == tokRBrace) {
		return nil
	}
	return p.parsePredicateObjectList(subject)
}

func (p *turtleParser) parseSubject() (Term, bool, error) {
	switch p.tok.kind {
	case tokIRIRef, tokPName, tokBlankNode:
		term, err := p.parseTermRef()
		return term, false, err
	case tokLBracket:
		term, err := p.parseBlankNodePropertyList()
		return term, true, err
	case tokLParen:
		term, err := p.parseCollection()
		return term, false, err
	default:
		return nil, false, p.errorf("expected subject, found %s", p.tok.kind)
	}
}

func (p *turtleParser) parsePredicateObjectList(subject Term) error {
	for {
		pred, err := p.parseVerb()
		if err != nil {
			return err
		}
		if err := p.parseObjectList(subject, pred); err != nil {
			return err
		}
		if p.tok.kind != tokSemicolon {
			return nil
		}
		for p.tok.kind == tokSemicolon {
			if err := p.next(); err != nil {
				return err
			}
		}
		switch p.tok.kind {
		case tokDot, tokRBracket, tokRBrace, tokEOF:
			return nil
		}
	}
}

func (p *turtleParser) parseVerb() (IRI, error) {
	if p.tok.kind == tokA {
		return IRI{Value: rdfType}, p.next()
	}
	if p.tok.kind != tokIRIRef && p.tok.kind != tokPName {
		return IRI{}, p.errorf("expected predicate, found %s", p.tok.kind)
	}
	term, err := p.parseTermRef()
	if err != nil {
		return IRI{}, err
	}
	return term.(IRI), nil
}

func (p *turtleParser) parseObjectList(subject Term, pred IRI) error {
	for {
		object, err := p.parseObject()
		if err != nil {
			return err
		}
		p.emit(subject, pred, object)
		if p.tok.kind != tokComma {
			return nil
		}
		if err := p.next(); err != nil {
			return err
		}
	}
}

func (p *turtleParser) parseObject() (Term, error) {
	switch p.tok.kind {
	case tokIRIRef, tokPName, tokBlankNode:
		return p.parseTermRef()
	case tokLBracket:
		return p.parseBlankNodePropertyList()
	case tokLParen:
		return p.parseCollection()
	case tokString:
		return p.parseLiteral()
	case tokInteger, tokDecimal, tokDouble, tokBoolean:
		datatype := map[turtleTokenKind]string{
			tokInteger: xsdInteger, tokDecimal: xsdDecimal, tokDouble: xsdDouble, tokBoolean: xsdBoolean,
		}[p.tok.kind]
		lit := Literal{Lexical: p.tok.text, Datatype: IRI{Value: datatype}}
		return lit, p.next()
	default:
		return nil, p.errorf("expected object, found %s", p.tok.kind)
	}
}

// parseTermRef parses an IRI reference, prefixed name or labelled blank node.
func (p *turtleParser) parseTermRef() (Term, error) {
	tok := p.tok
	var term Term
	switch tok.kind {
	case tokIRIRef:
		term = IRI{Value: p.resolve(tok.text)}
	case tokPName:
		iri, err := p.expandPName(tok.text)
		if err != nil {
			return nil, err
		}
		term = iri
	case tokBlankNode:
		node, ok := p.bnodes[tok.text]
		if !ok {
			node = p.gen.next()
			p.bnodes[tok.text] = node
		}
		term = node
	default:
		return nil, p.errorf("expected IRI or blank node, found %s", tok.kind)
	}
	return term, p.next()
}

func (p *turtleParser) expandPName(pname string) (IRI, error) {
	prefix, local, _ := strings.Cut(pname, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return IRI{}, p.errorf("undefined prefix %q", prefix)
	}
	return IRI{Value: ns + local}, nil
}

func (p *turtleParser) parseLiteral() (Term, error) {
	lexical := p.tok.text
	if err := p.next(); err != nil {
		return nil, err
	}
	switch p.tok.kind {
	case tokLangTag:
		lit := Literal{Lexical: lexical, Lang: p.tok.text}
		return lit, p.next()
	case tokDatatypeMark:
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIRIRef && p.tok.kind != tokPName {
			return nil, p.errorf("expected datatype IRI, found %s", p.tok.kind)
		}
		dt, err := p.parseTermRef()
		if err != nil {
			return nil, err
		}
		return Literal{Lexical: lexical, Datatype: dt.(IRI)}, nil
	default:
		return Literal{Lexical: lexical}, nil
	}
}

func (p *turtleParser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return wrapParseError(string(p.format), p.scanner.currentLine(), p.tok.line, p.tok.column, ErrDepthExceeded)
	}
	return nil
}

func (p *turtleParser) parseBlankNodePropertyList() (Term, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	if err := p.expect(tokLBracket); err != nil {
		return nil, err
	}
	node := p.gen.next()
	if p.tok.kind != tokRBracket {
		if err := p.parsePredicateObjectList(node); err != nil {
			return nil, err
		}
	}
	return node, p.expect(tokRBracket)
}

func (p *turtleParser) parseCollection() (Term, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var head Term = IRI{Value: rdfNil}
	var tail BlankNode
	for p.tok.kind != tokRParen {
		if p.tok.kind == tokEOF {
			return nil, p.errorf("unterminated collection")
		}
		cell := p.gen.next()
		if _, isNil := head.(IRI); isNil {
			head = cell
		} else {
			p.emit(tail, IRI{Value: rdfRest}, cell)
		}
		item, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		p.emit(cell, IRI{Value: rdfFirst}, item)
		tail = cell
	}
	if _, isNil := head.(IRI); !isNil {
		p.emit(tail, IRI{Value: rdfRest}, IRI{Value: rdfNil})
	}
	return head, p.next()
}

func (p *turtleParser) resolve(iri string) string {
	if p.base == "" {
		return iri
	}
	return resolveIRI(p.base, iri)
}
