package rdf

import (
	"bufio"
	"io"
	"strings"
)

// turtleWriter renders statements grouped by subject. Statements for the
// same subject are joined with ';' and repeated predicates with ','.
type turtleWriter struct {
	writer   *bufio.Writer
	opts     SerializeOptions
	prefixes map[string]string
	err      error
}

func newTurtleWriter(w io.Writer, opts SerializeOptions) *turtleWriter {
	return &turtleWriter{writer: bufio.NewWriter(w), opts: opts, prefixes: opts.Prefixes}
}

func writeTurtle(w io.Writer, quads []Quad, opts SerializeOptions) error {
	tw := newTurtleWriter(w, opts)
	tw.writeHeader()
	tw.writeGroups(quads, "")
	return tw.flush()
}

// writeTriG writes the default graph first, then one block per named graph
// in order of first appearance.
func writeTriG(w io.Writer, quads []Quad, opts SerializeOptions) error {
	tw := newTurtleWriter(w, opts)
	tw.writeHeader()

	var order []string
	graphs := map[string][]Quad{}
	labels := map[string]Term{}
	var defaults []Quad
	for _, q := range quads {
		if q.G == nil {
			defaults = append(defaults, q)
			continue
		}
		key := q.G.String()
		if _, seen := graphs[key]; !seen {
			order = append(order, key)
			labels[key] = q.G
		}
		graphs[key] = append(graphs[key], q)
	}

	tw.writeGroups(defaults, "")
	for _, key := range order {
		if tw.err == nil && tw.opts.Pretty {
			tw.write("\n")
		}
		tw.write(tw.term(labels[key]) + " {\n")
		tw.writeGroups(graphs[key], "  ")
		tw.write("}\n")
	}
	return tw.flush()
}

func (tw *turtleWriter) write(s string) {
	if tw.err != nil {
		return
	}
	_, tw.err = tw.writer.WriteString(s)
}

func (tw *turtleWriter) flush() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.writer.Flush()
}

func (tw *turtleWriter) writeHeader() {
	if tw.opts.BaseIRI != "" {
		tw.write("@base <" + escapeIRI(tw.opts.BaseIRI) + "> .\n")
	}
	for _, prefix := range sortedPrefixKeys(tw.prefixes) {
		tw.write("@prefix " + prefix + ": <" + escapeIRI(tw.prefixes[prefix]) + "> .\n")
	}
	if tw.opts.Pretty && (tw.opts.BaseIRI != "" || len(tw.prefixes) > 0) {
		tw.write("\n")
	}
}

// writeGroups writes consecutive runs of statements sharing a subject as one
// Turtle statement. Input order is preserved.
func (tw *turtleWriter) writeGroups(quads []Quad, indent string) {
	for start := 0; start < len(quads); {
		end := start + 1
		for end < len(quads) && sameTerm(quads[end].S, quads[start].S) {
			end++
		}
		tw.writeSubject(quads[start:end], indent)
		start = end
	}
}

func (tw *turtleWriter) writeSubject(group []Quad, indent string) {
	subject := tw.term(group[0].S)
	if !tw.opts.Pretty {
		for _, q := range group {
			tw.write(indent + subject + " " + tw.predicate(q.P) + " " + tw.term(q.O) + " .\n")
		}
		return
	}

	tw.write(indent + subject)
	for i := 0; i < len(group); {
		j := i + 1
		for j < len(group) && group[j].P == group[i].P {
			j++
		}
		if i == 0 {
			tw.write(" ")
		} else {
			tw.write(" ;\n" + indent + "    ")
		}
		objects := make([]string, 0, j-i)
		for _, q := range group[i:j] {
			objects = append(objects, tw.term(q.O))
		}
		tw.write(tw.predicate(group[i].P) + " " + strings.Join(objects, ", "))
		i = j
	}
	tw.write(" .\n")
}

func (tw *turtleWriter) predicate(iri IRI) string {
	if iri.Value == rdfType {
		return "a"
	}
	return tw.iri(iri)
}

func (tw *turtleWriter) iri(iri IRI) string {
	if qname, ok := abbreviateQName(iri.Value, tw.prefixes); ok {
		return qname
	}
	return renderIRI(iri)
}

func (tw *turtleWriter) term(term Term) string {
	switch value := term.(type) {
	case IRI:
		return tw.iri(value)
	case BlankNode:
		return value.String()
	case Literal:
		return renderLiteral(value, tw.iri)
	default:
		return ""
	}
}

func sameTerm(a, b Term) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && a.String() == b.String()
}
