package rdf

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	rdfXMLNS        = RDFNamespace
	xmlNamespaceURI = "http://www.w3.org/XML/1998/namespace"
	rdfXMLLiteral   = RDFNamespace + "XMLLiteral"
)

// rdfxmlParser walks the element tree of an RDF/XML document, alternating
// between node elements and property elements.
type rdfxmlParser struct {
	ctx      context.Context
	data     []byte
	dec      *xml.Decoder
	gen      *blankNodeGenerator
	bnodes   map[string]BlankNode
	quads    []Quad
	depth    int
	maxDepth int
}

// xmlScope carries the inherited xml:base and xml:lang.
type xmlScope struct {
	base string
	lang string
}

func parseRDFXML(ctx context.Context, data []byte, opts ParseOptions) ([]Quad, error) {
	p := &rdfxmlParser{
		ctx:      ctx,
		data:     data,
		dec:      xml.NewDecoder(bytes.NewReader(data)),
		gen:      newBlankNodeGenerator(),
		bnodes:   make(map[string]BlankNode),
		maxDepth: opts.MaxDepth,
	}
	scope := xmlScope{base: opts.BaseIRI}
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			return p.quads, nil
		}
		if err != nil {
			return nil, p.wrap(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if isRDFName(start.Name, "RDF") {
			err = p.parseNodeList(scopeFor(start, scope))
		} else {
			_, err = p.parseNode(start, scope)
		}
		if err != nil {
			return nil, p.wrap(err)
		}
	}
}

func (p *rdfxmlParser) wrap(err error) error {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return wrapParseError(string(FormatRDFXML), "", syntaxErr.Line, 0, err)
	}
	return wrapParseError(string(FormatRDFXML), "", 0, 0, err)
}

func isRDFName(name xml.Name, local string) bool {
	return name.Space == rdfXMLNS && name.Local == local
}

func scopeFor(el xml.StartElement, parent xmlScope) xmlScope {
	scope := parent
	for _, attr := range el.Attr {
		if attr.Name.Space != xmlNamespaceURI {
			continue
		}
		switch attr.Name.Local {
		case "base":
			scope.base = resolveIRI(parent.base, attr.Value)
		case "lang":
			scope.lang = attr.Value
		}
	}
	return scope
}

func (p *rdfxmlParser) emit(s Term, pred string, o Term) {
	p.quads = append(p.quads, Quad{S: s, P: IRI{Value: pred}, O: o})
}

func (p *rdfxmlParser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return ErrDepthExceeded
	}
	return p.ctx.Err()
}

func (p *rdfxmlParser) blankNode(label string) BlankNode {
	node, ok := p.bnodes[label]
	if !ok {
		node = p.gen.next()
		p.bnodes[label] = node
	}
	return node
}

// parseNodeList reads sibling node elements until the enclosing end tag.
func (p *rdfxmlParser) parseNodeList(scope xmlScope) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if _, err := p.parseNode(t, scope); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("rdfxml: unexpected text between node elements")
			}
		}
	}
}

func (p *rdfxmlParser) parseNode(el xml.StartElement, parent xmlScope) (Term, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	scope := scopeFor(el, parent)
	subject := p.subjectOf(el, scope)
	if !isRDFName(el.Name, "Description") {
		p.emit(subject, rdfType, IRI{Value: el.Name.Space + el.Name.Local})
	}
	p.emitPropertyAttrs(subject, el.Attr, scope)
	return subject, p.parsePropertyList(subject, scope)
}

func (p *rdfxmlParser) subjectOf(el xml.StartElement, scope xmlScope) Term {
	if about, ok := attrLookup(el.Attr, rdfXMLNS, "about"); ok {
		return IRI{Value: resolveIRI(scope.base, about)}
	}
	if id, ok := attrLookup(el.Attr, rdfXMLNS, "ID"); ok {
		return IRI{Value: resolveIRI(scope.base, "#"+id)}
	}
	if nodeID, ok := attrLookup(el.Attr, rdfXMLNS, "nodeID"); ok {
		return p.blankNode(nodeID)
	}
	return p.gen.next()
}

// emitPropertyAttrs turns property attributes into literal statements.
// rdf:type as an attribute yields an IRI object.
func (p *rdfxmlParser) emitPropertyAttrs(subject Term, attrs []xml.Attr, scope xmlScope) int {
	n := 0
	for _, attr := range attrs {
		if !isPropertyAttr(attr.Name) {
			continue
		}
		n++
		if isRDFName(attr.Name, "type") {
			p.emit(subject, rdfType, IRI{Value: resolveIRI(scope.base, attr.Value)})
			continue
		}
		p.emit(subject, attr.Name.Space+attr.Name.Local, Literal{Lexical: attr.Value, Lang: scope.lang})
	}
	return n
}

func isPropertyAttr(name xml.Name) bool {
	switch name.Space {
	case "", "xmlns", xmlNamespaceURI:
		return false
	case rdfXMLNS:
		switch name.Local {
		case "about", "ID", "nodeID", "resource", "datatype", "parseType", "li", "RDF", "Description", "aboutEach", "aboutEachPrefix", "bagID":
			return false
		}
	}
	return true
}

func (p *rdfxmlParser) parsePropertyList(subject Term, scope xmlScope) error {
	li := 0
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.parseProperty(subject, t, scope, &li); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("rdfxml: unexpected text inside node element")
			}
		}
	}
}

func (p *rdfxmlParser) parseProperty(subject Term, el xml.StartElement, parent xmlScope, li *int) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer func() { p.depth-- }()

	scope := scopeFor(el, parent)
	pred := el.Name.Space + el.Name.Local
	if isRDFName(el.Name, "li") {
		*li++
		pred = rdfXMLNS + "_" + strconv.Itoa(*li)
	}

	parseType, _ := attrLookup(el.Attr, rdfXMLNS, "parseType")
	switch parseType {
	case "":
	case "Resource":
		node := p.gen.next()
		p.emit(subject, pred, node)
		return p.parsePropertyList(node, scope)
	case "Collection":
		head, err := p.parseCollection(scope)
		if err != nil {
			return err
		}
		p.emit(subject, pred, head)
		return nil
	default:
		lexical, err := p.captureLiteral()
		if err != nil {
			return err
		}
		p.emit(subject, pred, Literal{Lexical: lexical, Datatype: IRI{Value: rdfXMLLiteral}})
		return nil
	}

	var text strings.Builder
	var object Term
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			if object != nil {
				return fmt.Errorf("rdfxml: property %s has more than one node element", pred)
			}
			node, err := p.parseNode(t, scope)
			if err != nil {
				return err
			}
			object = node
		case xml.EndElement:
			if object != nil {
				if strings.TrimSpace(text.String()) != "" {
					return fmt.Errorf("rdfxml: property %s mixes text and node element", pred)
				}
				p.emit(subject, pred, object)
				return nil
			}
			p.emit(subject, pred, p.emptyOrLiteral(el, scope, text.String()))
			return nil
		}
	}
}

// emptyOrLiteral resolves the object of a property element without a child
// node element.
func (p *rdfxmlParser) emptyOrLiteral(el xml.StartElement, scope xmlScope, text string) Term {
	if resource, ok := attrLookup(el.Attr, rdfXMLNS, "resource"); ok {
		object := IRI{Value: resolveIRI(scope.base, resource)}
		p.emitPropertyAttrs(object, el.Attr, scope)
		return object
	}
	if nodeID, ok := attrLookup(el.Attr, rdfXMLNS, "nodeID"); ok {
		object := p.blankNode(nodeID)
		p.emitPropertyAttrs(object, el.Attr, scope)
		return object
	}
	if text == "" && hasPropertyAttrs(el.Attr) {
		object := p.gen.next()
		p.emitPropertyAttrs(object, el.Attr, scope)
		return object
	}
	if datatype, ok := attrLookup(el.Attr, rdfXMLNS, "datatype"); ok {
		return Literal{Lexical: text, Datatype: IRI{Value: resolveIRI(scope.base, datatype)}}
	}
	return Literal{Lexical: text, Lang: scope.lang}
}

func hasPropertyAttrs(attrs []xml.Attr) bool {
	for _, attr := range attrs {
		if isPropertyAttr(attr.Name) {
			return true
		}
	}
	return false
}

func (p *rdfxmlParser) parseCollection(scope xmlScope) (Term, error) {
	var items []Term
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node, err := p.parseNode(t, scope)
			if err != nil {
				return nil, err
			}
			items = append(items, node)
		case xml.EndElement:
			var head Term = IRI{Value: rdfNil}
			for i := len(items) - 1; i >= 0; i-- {
				cell := p.gen.next()
				p.emit(cell, rdfFirst, items[i])
				p.emit(cell, rdfRest, head)
				head = cell
			}
			return head, nil
		}
	}
}

// captureLiteral returns the raw markup between the current start tag and
// its matching end tag.
func (p *rdfxmlParser) captureLiteral() (string, error) {
	start := p.dec.InputOffset()
	depth := 0
	for {
		before := p.dec.InputOffset()
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return string(p.data[start:before]), nil
			}
			depth--
		}
	}
}

func attrLookup(attrs []xml.Attr, space, local string) (string, bool) {
	for _, attr := range attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}
