// Package rdf provides a compact RDF model with whole-document readers and
// writers for the graph serializations the transcoder exchanges with the
// JSON-LD pipeline.
//
// The surface is two functions:
//   - ParseQuads reads a document into a slice of Quad in document order.
//   - SerializeQuads writes a slice of Quad in a chosen Format.
//
// Supported formats:
//   - Triple formats: Turtle, N3 (Turtle-compatible subset), N-Triples, RDF/XML
//   - Quad formats: TriG, N-Quads, TriX
//
// Triple formats cannot carry graph names. SerializeQuads writes only the
// subject, predicate and object of such quads; use CountNamed to detect
// that information is about to be dropped.
//
// Example (N-Triples to Turtle):
//
//	quads, err := rdf.ParseQuads(ctx, strings.NewReader(input), rdf.FormatNTriples, rdf.ParseOptions{})
//	if err != nil {
//	    // handle error
//	}
//	err = rdf.SerializeQuads(os.Stdout, rdf.FormatTurtle, quads, rdf.SerializeOptions{
//	    Pretty:   true,
//	    Prefixes: map[string]string{"ex": "http://example.org/"},
//	})
//
// Parse failures are reported as *ParseError carrying the format name and,
// where known, line, column and an excerpt of the offending input. Code maps
// any error from this package to a stable ErrorCode.
//
// Blank node labels are scoped to a single document and relabelled "b1",
// "b2", ... on input.
package rdf
