package formats

import (
	"context"

	"github.com/geoknoesis/ldproxy/internal/codec"
	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/rdf"
)

// graphCodec handles a format of the rdf package by way of N-Quads.
type graphCodec struct {
	name      string
	mimetypes []string
	format    rdf.Format
	pipeline  *jsonld.Pipeline
}

func newGraphCodec(name string, format rdf.Format, p *jsonld.Pipeline, mimetypes ...string) *graphCodec {
	return &graphCodec{name: name, mimetypes: mimetypes, format: format, pipeline: p}
}

func (g *graphCodec) Name() string        { return g.name }
func (g *graphCodec) Mimetypes() []string { return g.mimetypes }

func (g *graphCodec) Parse(ctx context.Context, data []byte, opts codec.ParseOptions) (jsonld.Document, error) {
	text, err := decodeText(data, opts.Encoding)
	if err != nil {
		return nil, errs.WrapInvalid(err, g.name, "Parse", "charset decode")
	}
	return g.pipeline.GraphFormatToDocument(ctx, text, g.format, opts.Base)
}

func (g *graphCodec) Render(ctx context.Context, doc jsonld.Document, opts codec.RenderOptions) ([]byte, error) {
	if opts.Passthrough {
		return passthrough(g.name, doc)
	}
	return g.pipeline.DocumentToGraphFormat(ctx, doc, g.format, rdf.SerializeOptions{Pretty: opts.Pretty()})
}
