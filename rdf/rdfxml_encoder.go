package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// rdfxmlWriter renders one rdf:Description per subject. Namespaces are
// collected up front so every prefix is declared on the root element.
type rdfxmlWriter struct {
	writer   *bufio.Writer
	opts     SerializeOptions
	prefixes map[string]string
	nsToPref map[string]string
	autoSeq  int
	err      error
}

func writeRDFXML(w io.Writer, quads []Quad, opts SerializeOptions) error {
	xw := &rdfxmlWriter{
		writer:   bufio.NewWriter(w),
		opts:     opts,
		prefixes: map[string]string{"rdf": rdfXMLNS},
		nsToPref: map[string]string{rdfXMLNS: "rdf"},
	}
	for _, prefix := range sortedPrefixKeys(opts.Prefixes) {
		ns := opts.Prefixes[prefix]
		if prefix == "" || prefix == "rdf" || prefix == "xml" {
			continue
		}
		if _, taken := xw.nsToPref[ns]; taken {
			continue
		}
		xw.prefixes[prefix] = ns
		xw.nsToPref[ns] = prefix
	}

	// Resolve every predicate before writing so failures leave no partial output.
	qnames := make([]string, len(quads))
	for i, q := range quads {
		qname, err := xw.predicateQName(q.P.Value)
		if err != nil {
			return err
		}
		qnames[i] = qname
	}

	var order []string
	groups := map[string][]int{}
	for i, q := range quads {
		key := q.S.String()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	xw.writeRoot()
	for _, key := range order {
		indexes := groups[key]
		xw.writeDescription(quads[indexes[0]].S, indexes, quads, qnames)
	}
	xw.write("</rdf:RDF>\n")
	if xw.err != nil {
		return xw.err
	}
	return xw.writer.Flush()
}

func (xw *rdfxmlWriter) write(s string) {
	if xw.err != nil {
		return
	}
	_, xw.err = xw.writer.WriteString(s)
}

func (xw *rdfxmlWriter) indent(level int) string {
	if !xw.opts.Pretty {
		return ""
	}
	return strings.Repeat("  ", level)
}

func (xw *rdfxmlWriter) writeRoot() {
	xw.write(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	xw.write("<rdf:RDF")
	if xw.opts.BaseIRI != "" {
		xw.write(` xml:base="` + escapeXML(xw.opts.BaseIRI) + `"`)
	}
	sep := " "
	if xw.opts.Pretty {
		sep = "\n  "
	}
	for _, prefix := range sortedPrefixKeys(xw.prefixes) {
		xw.write(sep + `xmlns:` + prefix + `="` + escapeXML(xw.prefixes[prefix]) + `"`)
	}
	xw.write(">\n")
}

func (xw *rdfxmlWriter) writeDescription(subject Term, indexes []int, quads []Quad, qnames []string) {
	attr := ""
	switch s := subject.(type) {
	case IRI:
		attr = `rdf:about="` + escapeXML(s.Value) + `"`
	case BlankNode:
		attr = `rdf:nodeID="` + escapeXML(s.ID) + `"`
	}
	xw.write(xw.indent(1) + "<rdf:Description " + attr + ">\n")
	for _, i := range indexes {
		xw.writeProperty(qnames[i], quads[i].O)
	}
	xw.write(xw.indent(1) + "</rdf:Description>\n")
}

func (xw *rdfxmlWriter) writeProperty(qname string, object Term) {
	prefix := xw.indent(2) + "<" + qname
	switch o := object.(type) {
	case IRI:
		xw.write(prefix + ` rdf:resource="` + escapeXML(o.Value) + `"/>` + "\n")
	case BlankNode:
		xw.write(prefix + ` rdf:nodeID="` + escapeXML(o.ID) + `"/>` + "\n")
	case Literal:
		attrs := ""
		switch {
		case o.Lang != "":
			attrs = ` xml:lang="` + escapeXML(o.Lang) + `"`
		case !o.isPlain():
			attrs = ` rdf:datatype="` + escapeXML(o.Datatype.Value) + `"`
		}
		xw.write(prefix + attrs + ">" + escapeXML(o.Lexical) + "</" + qname + ">\n")
	}
}

func (xw *rdfxmlWriter) predicateQName(iri string) (string, error) {
	ns, local, ok := splitIRIForQName(iri)
	if !ok {
		return "", fmt.Errorf("%w: %q (the local name must follow a '#' or '/' and start with a letter or '_')", ErrUnsplittableIRI, iri)
	}
	if prefix, ok := xw.nsToPref[ns]; ok {
		return prefix + ":" + local, nil
	}
	prefix := fmt.Sprintf("ns%d", xw.autoSeq)
	for xw.prefixes[prefix] != "" {
		xw.autoSeq++
		prefix = fmt.Sprintf("ns%d", xw.autoSeq)
	}
	xw.autoSeq++
	xw.prefixes[prefix] = ns
	xw.nsToPref[ns] = prefix
	return prefix + ":" + local, nil
}

var xmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&apos;",
)

func escapeXML(value string) string {
	return xmlEscaper.Replace(value)
}
