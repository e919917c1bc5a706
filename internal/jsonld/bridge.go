package jsonld

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/rdf"
)

// GraphFormatToDocument parses data in a graph format and returns the
// expanded document for the same dataset. The graph is carried across as
// N-Quads.
func (p *Pipeline) GraphFormatToDocument(ctx context.Context, data []byte, format rdf.Format, base string) (Document, error) {
	quads, err := rdf.ParseQuads(ctx, bytes.NewReader(data), format, rdf.ParseOptions{BaseIRI: base})
	if err != nil {
		if rdf.Code(err) == rdf.ErrCodeContextCanceled {
			return nil, err
		}
		return nil, errs.WrapInvalid(errs.Mark(err, errs.ErrMalformedInput), "jsonld", "GraphFormatToDocument", "parse "+string(format))
	}
	if !format.IsQuadFormat() {
		dropBlankGraphLabels(quads)
	}
	relabelBlankNodes(quads)

	nquads, err := rdf.SerializeString(rdf.FormatNQuads, quads, rdf.SerializeOptions{})
	if err != nil {
		return nil, errs.Wrap(err, "jsonld", "GraphFormatToDocument", "write nquads")
	}
	return p.FromGraphSerializationExpanded(nquads)
}

// DocumentToGraphFormat serializes doc in a graph format. Formats without
// named graphs drop graph names; each such loss is logged and reported to
// the artifact observer, it is not an error.
func (p *Pipeline) DocumentToGraphFormat(ctx context.Context, doc Document, format rdf.Format, opts rdf.SerializeOptions) ([]byte, error) {
	nquads, err := p.ToGraphSerialization(doc, opts.BaseIRI)
	if err != nil {
		return nil, err
	}
	quads, err := rdf.ParseString(ctx, nquads, rdf.FormatNQuads, rdf.ParseOptions{})
	if err != nil {
		return nil, errs.Wrap(err, "jsonld", "DocumentToGraphFormat", "read nquads")
	}
	if !format.IsQuadFormat() {
		if dropped := rdf.CountNamed(quads); dropped > 0 {
			p.logger.Warn("SerializationArtifact: graph names dropped",
				zap.String("format", string(format)),
				zap.Int("statements", dropped))
			if p.onArtifact != nil {
				p.onArtifact(string(format), dropped)
			}
			for i := range quads {
				quads[i].G = nil
			}
		}
	}
	if opts.Prefixes == nil {
		opts.Prefixes = p.Prefixes()
	}
	var buf bytes.Buffer
	if err := rdf.SerializeQuads(&buf, format, quads, opts); err != nil {
		return nil, errs.Wrap(err, "jsonld", "DocumentToGraphFormat", "write "+string(format))
	}
	return buf.Bytes(), nil
}

// Prefixes returns the namespace prefixes declared by the default context.
func (p *Pipeline) Prefixes() map[string]string {
	ctx, _ := p.contexts.Context(p.defaultURL)
	defs, ok := ctx.(map[string]interface{})
	if !ok {
		return nil
	}
	prefixes := make(map[string]string)
	for term, def := range defs {
		iri, ok := def.(string)
		if !ok || strings.HasPrefix(term, "@") {
			continue
		}
		if strings.HasSuffix(iri, "#") || strings.HasSuffix(iri, "/") {
			prefixes[term] = iri
		}
	}
	return prefixes
}

// dropBlankGraphLabels moves statements labelled with a placeholder blank
// graph into the default graph.
func dropBlankGraphLabels(quads []rdf.Quad) {
	for i := range quads {
		if _, ok := quads[i].G.(rdf.BlankNode); ok {
			quads[i].G = nil
		}
	}
}

// relabelBlankNodes renames blank nodes to b0, b1, ... in order of first
// appearance, the label form the N-Quads reader of json-gold accepts.
func relabelBlankNodes(quads []rdf.Quad) {
	labels := make(map[string]string)
	relabel := func(t rdf.Term) rdf.Term {
		b, ok := t.(rdf.BlankNode)
		if !ok {
			return t
		}
		label, seen := labels[b.ID]
		if !seen {
			label = fmt.Sprintf("b%d", len(labels))
			labels[b.ID] = label
		}
		return rdf.BlankNode{ID: label}
	}
	for i := range quads {
		quads[i].S = relabel(quads[i].S)
		quads[i].O = relabel(quads[i].O)
		if quads[i].G != nil {
			quads[i].G = relabel(quads[i].G)
		}
	}
}
