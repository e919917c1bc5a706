package formats

import (
	"context"
	"encoding/json"

	"github.com/tidwall/jsonc"

	"github.com/geoknoesis/ldproxy/internal/codec"
	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
)

// JSONLD is the JSON-LD codec. It renders the document compacted with the
// default context.
type JSONLD struct {
	pipeline *jsonld.Pipeline
}

// NewJSONLD creates the JSON-LD codec.
func NewJSONLD(p *jsonld.Pipeline) *JSONLD { return &JSONLD{pipeline: p} }

func (*JSONLD) Name() string        { return NameJSONLD }
func (*JSONLD) Mimetypes() []string { return []string{"application/ld+json"} }

// Parse decodes a JSON-LD document. Expansion is left to the pipeline.
func (c *JSONLD) Parse(_ context.Context, data []byte, opts codec.ParseOptions) (jsonld.Document, error) {
	return decodeDocument(NameJSONLD, data, opts, false)
}

// Render compacts doc and writes it as JSON.
func (c *JSONLD) Render(_ context.Context, doc jsonld.Document, opts codec.RenderOptions) ([]byte, error) {
	if opts.Passthrough {
		return passthrough(NameJSONLD, doc)
	}
	return compactJSON(c.pipeline, NameJSONLD, doc, opts, opts.DropContext)
}

// JSON is the plain JSON codec. Input may carry comments and trailing
// commas; output omits @context unless asked to keep it.
type JSON struct {
	pipeline *jsonld.Pipeline
}

// NewJSON creates the plain JSON codec.
func NewJSON(p *jsonld.Pipeline) *JSON { return &JSON{pipeline: p} }

func (*JSON) Name() string        { return NameJSON }
func (*JSON) Mimetypes() []string { return []string{"application/json"} }

func (c *JSON) Parse(_ context.Context, data []byte, opts codec.ParseOptions) (jsonld.Document, error) {
	return decodeDocument(NameJSON, data, opts, true)
}

func (c *JSON) Render(_ context.Context, doc jsonld.Document, opts codec.RenderOptions) ([]byte, error) {
	if opts.Passthrough {
		return passthrough(NameJSON, doc)
	}
	return compactJSON(c.pipeline, NameJSON, doc, opts, !opts.KeepContext || opts.DropContext)
}

func decodeDocument(name string, data []byte, opts codec.ParseOptions, lenient bool) (jsonld.Document, error) {
	text, err := decodeText(data, opts.Encoding)
	if err != nil {
		return nil, errs.WrapInvalid(err, name, "Parse", "charset decode")
	}
	if lenient {
		text = jsonc.ToJSON(text)
	}
	var doc interface{}
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, errs.WrapInvalid(errs.Mark(err, errs.ErrMalformedInput), name, "Parse", "JSON decode")
	}
	return doc, nil
}

func compactJSON(p *jsonld.Pipeline, name string, doc jsonld.Document, opts codec.RenderOptions, dropContext bool) ([]byte, error) {
	compacted, err := p.Compact(doc, nil, opts.Base, dropContext)
	if err != nil {
		return nil, err
	}
	out, err := encodeJSON(compacted, opts.Pretty())
	if err != nil {
		return nil, errs.Wrap(err, name, "Render", "JSON encode")
	}
	return out, nil
}
