// Package formats implements the codecs for every serialization the
// transcoder speaks. JSON-LD and plain JSON are handled directly; the graph
// formats go through the rdf package via N-Quads.
package formats

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/geoknoesis/ldproxy/internal/codec"
	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/rdf"
)

// Codec names.
const (
	NameJSONLD   = "jsonld"
	NameJSON     = "json"
	NameNQuads   = "nquads"
	NameNTriples = "ntriples"
	NameTurtle   = "turtle"
	NameN3       = "n3"
	NameTriG     = "trig"
	NameTriX     = "trix"
	NameRDFXML   = "rdfxml"
	NameHTML     = "html"
)

// Deps are the collaborators shared by the codecs.
type Deps struct {
	Pipeline *jsonld.Pipeline
	Logger   *zap.Logger
}

// Candidates returns every built-in codec in registration order.
func Candidates(deps Deps) []codec.Candidate {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	p := deps.Pipeline
	return []codec.Candidate{
		NewJSONLD(p),
		NewJSON(p),
		newGraphCodec(NameNQuads, rdf.FormatNQuads, p, "application/n-quads"),
		newGraphCodec(NameNTriples, rdf.FormatNTriples, p, "application/n-triples"),
		newGraphCodec(NameTurtle, rdf.FormatTurtle, p, "text/turtle; charset=utf-8", "text/turtle"),
		newGraphCodec(NameN3, rdf.FormatN3, p, "text/n3; charset=utf-8", "text/n3"),
		newGraphCodec(NameTriG, rdf.FormatTriG, p, "application/trig"),
		newGraphCodec(NameTriX, rdf.FormatTriX, p, "application/trix"),
		NewRDFXML(p, deps.Logger),
		NewHTML(),
	}
}

// passthrough returns doc unchanged when it is raw bytes or text.
func passthrough(name string, doc jsonld.Document) ([]byte, error) {
	switch v := doc.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errs.WrapInvalid(fmt.Errorf("%w: passthrough needs raw content, got %T", errs.ErrUnsupportedFormat, doc),
			name, "Render", "passthrough")
	}
}

// encodeJSON writes v without HTML escaping. Pretty output is indented by
// two spaces and ends with a newline.
func encodeJSON(v interface{}, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if !pretty {
		out = bytes.TrimSuffix(out, []byte("\n"))
	}
	return out, nil
}
