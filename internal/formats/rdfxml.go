package formats

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/geoknoesis/ldproxy/internal/codec"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/rdf"
)

// RDFXML is the RDF/XML codec.
type RDFXML struct {
	*graphCodec
	logger *zap.Logger
}

// NewRDFXML creates the RDF/XML codec.
func NewRDFXML(p *jsonld.Pipeline, logger *zap.Logger) *RDFXML {
	return &RDFXML{
		graphCodec: newGraphCodec(NameRDFXML, rdf.FormatRDFXML, p, "application/rdf+xml"),
		logger:     logger,
	}
}

// Render writes doc as RDF/XML. A predicate IRI that has no namespace and
// local name split is reported with a hint on how to fix the vocabulary.
func (c *RDFXML) Render(ctx context.Context, doc jsonld.Document, opts codec.RenderOptions) ([]byte, error) {
	out, err := c.graphCodec.Render(ctx, doc, opts)
	if err != nil && errors.Is(err, rdf.ErrUnsplittableIRI) {
		c.logger.Warn("RDF/XML cannot express predicate IRI; a '#' before the local name usually helps",
			zap.Error(err))
		return nil, fmt.Errorf("rdfxml.Render: failed to split IRI into namespace and name: %w", err)
	}
	return out, err
}
