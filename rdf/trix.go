package rdf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type trixDocument struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2004/03/trix/trix-1/ TriX"`
	Graphs  []trixGraph `xml:"graph"`
}

type trixGraph struct {
	// Terms holds the optional graph name followed by any triples, in
	// document order.
	Terms []trixElement `xml:",any"`
}

type trixElement struct {
	XMLName  xml.Name
	Lang     string        `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Datatype string        `xml:"datatype,attr,omitempty"`
	Value    string        `xml:",chardata"`
	Children []trixElement `xml:",any"`
}

func parseTriX(data []byte) ([]Quad, error) {
	var doc trixDocument
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, wrapParseError(string(FormatTriX), "", 0, 0, err)
	}

	gen := newBlankNodeGenerator()
	bnodes := map[string]BlankNode{}
	var quads []Quad
	for gi, graph := range doc.Graphs {
		var name Term
		for _, el := range graph.Terms {
			if el.XMLName.Local != "triple" {
				if name != nil {
					return nil, trixError(gi, "graph has more than one name")
				}
				term, err := el.term(gen, bnodes)
				if err != nil {
					return nil, trixError(gi, err.Error())
				}
				name = term
				continue
			}
			if len(el.Children) != 3 {
				return nil, trixError(gi, fmt.Sprintf("triple has %d terms, want 3", len(el.Children)))
			}
			var terms [3]Term
			for i, child := range el.Children {
				term, err := child.term(gen, bnodes)
				if err != nil {
					return nil, trixError(gi, err.Error())
				}
				terms[i] = term
			}
			pred, ok := terms[1].(IRI)
			if !ok {
				return nil, trixError(gi, "predicate must be a <uri>")
			}
			if _, isLit := terms[0].(Literal); isLit {
				return nil, trixError(gi, "subject must not be a literal")
			}
			quads = append(quads, Quad{S: terms[0], P: pred, O: terms[2], G: name})
		}
	}
	return quads, nil
}

func trixError(graph int, msg string) error {
	return wrapParseError(string(FormatTriX), "", 0, 0, fmt.Errorf("graph %d: %s", graph+1, msg))
}

func (el trixElement) term(gen *blankNodeGenerator, bnodes map[string]BlankNode) (Term, error) {
	value := el.Value
	switch el.XMLName.Local {
	case "uri":
		return IRI{Value: strings.TrimSpace(value)}, nil
	case "id":
		label := strings.TrimSpace(value)
		node, ok := bnodes[label]
		if !ok {
			node = gen.next()
			bnodes[label] = node
		}
		return node, nil
	case "plainLiteral":
		return Literal{Lexical: value, Lang: el.Lang}, nil
	case "typedLiteral":
		if el.Datatype == "" {
			return nil, fmt.Errorf("typedLiteral without datatype")
		}
		return Literal{Lexical: value, Datatype: IRI{Value: el.Datatype}}, nil
	default:
		return nil, fmt.Errorf("unexpected element <%s>", el.XMLName.Local)
	}
}

// writeTriX groups statements by graph in order of first appearance. The
// default graph is written as a graph without a name.
func writeTriX(w io.Writer, quads []Quad, opts SerializeOptions) error {
	var order []string
	graphs := map[string][]Quad{}
	for _, q := range quads {
		key := ""
		if q.G != nil {
			key = q.G.String()
		}
		if _, seen := graphs[key]; !seen {
			order = append(order, key)
		}
		graphs[key] = append(graphs[key], q)
	}

	var doc trixDocument
	for _, key := range order {
		group := graphs[key]
		var graph trixGraph
		if g := group[0].G; g != nil {
			graph.Terms = append(graph.Terms, trixTerm(g))
		}
		for _, q := range group {
			graph.Terms = append(graph.Terms, trixElement{
				XMLName:  xml.Name{Local: "triple"},
				Children: []trixElement{trixTerm(q.S), trixTerm(q.P), trixTerm(q.O)},
			})
		}
		doc.Graphs = append(doc.Graphs, graph)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if opts.Pretty {
		enc.Indent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("trix: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func trixTerm(term Term) trixElement {
	switch value := term.(type) {
	case IRI:
		return trixElement{XMLName: xml.Name{Local: "uri"}, Value: value.Value}
	case BlankNode:
		return trixElement{XMLName: xml.Name{Local: "id"}, Value: value.ID}
	case Literal:
		if value.isPlain() || value.Lang != "" {
			return trixElement{XMLName: xml.Name{Local: "plainLiteral"}, Value: value.Lexical, Lang: value.Lang}
		}
		return trixElement{XMLName: xml.Name{Local: "typedLiteral"}, Value: value.Lexical, Datatype: value.Datatype.Value}
	default:
		return trixElement{}
	}
}
