package rdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// ParseOptions configures graph readers.
type ParseOptions struct {
	// BaseIRI resolves relative IRIs in formats that allow them.
	BaseIRI string
	// MaxDepth bounds nesting of blank node property lists, collections and
	// XML elements. Zero selects the default.
	MaxDepth int
}

// SerializeOptions configures graph writers.
type SerializeOptions struct {
	// Pretty enables indentation in formats that support it.
	Pretty bool
	// Prefixes maps prefix labels to namespace IRIs for Turtle, TriG, N3 and
	// RDF/XML output.
	Prefixes map[string]string
	// BaseIRI is written as @base (Turtle family) or xml:base (RDF/XML).
	BaseIRI string
}

const defaultMaxDepth = 256

// ParseQuads reads a complete document in the given format and returns its
// statements in document order. Triple-only formats yield quads in the
// default graph.
func ParseQuads(ctx context.Context, r io.Reader, format Format, opts ParseOptions) ([]Quad, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rdf: read input: %w", err)
	}

	switch format {
	case FormatNTriples, FormatNQuads:
		return parseNQuadsDocument(ctx, data, format)
	case FormatTurtle, FormatTriG, FormatN3:
		return parseTurtleDocument(ctx, data, format, opts)
	case FormatRDFXML:
		return parseRDFXML(ctx, data, opts)
	case FormatTriX:
		return parseTriX(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseString is a convenience wrapper around ParseQuads.
func ParseString(ctx context.Context, input string, format Format, opts ParseOptions) ([]Quad, error) {
	return ParseQuads(ctx, bytes.NewReader([]byte(input)), format, opts)
}

// SerializeQuads writes quads in the given format. Triple-only formats
// silently drop graph names; callers that care count them with CountNamed
// beforehand.
func SerializeQuads(w io.Writer, format Format, quads []Quad, opts SerializeOptions) error {
	for i, q := range quads {
		if q.S == nil || q.P.Value == "" || q.O == nil {
			return fmt.Errorf("rdf: statement %d is missing a subject, predicate or object", i)
		}
	}

	switch format {
	case FormatNTriples, FormatNQuads:
		return writeNQuads(w, format, quads)
	case FormatTurtle, FormatN3:
		return writeTurtle(w, quads, opts)
	case FormatTriG:
		return writeTriG(w, quads, opts)
	case FormatRDFXML:
		return writeRDFXML(w, quads, opts)
	case FormatTriX:
		return writeTriX(w, quads, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// SerializeString is a convenience wrapper around SerializeQuads.
func SerializeString(format Format, quads []Quad, opts SerializeOptions) (string, error) {
	var buf bytes.Buffer
	if err := SerializeQuads(&buf, format, quads, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}
