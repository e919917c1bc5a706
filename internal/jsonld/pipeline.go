package jsonld

import (
	"fmt"

	"github.com/piprate/json-gold/ld"
	"go.uber.org/zap"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
)

// NQuadsFormat is the json-gold name of the N-Quads serialization.
const NQuadsFormat = "application/n-quads"

// ArtifactObserver is notified when a graph serialization drops information
// its target format cannot express.
type ArtifactObserver func(format string, dropped int)

// Pipeline runs the JSON-LD algorithms with a fixed context policy. It holds
// only read-only state after construction and is safe for concurrent use.
type Pipeline struct {
	processor  *ld.JsonLdProcessor
	contexts   *ContextTable
	defaultURL string
	loader     ld.DocumentLoader
	logger     *zap.Logger
	onArtifact ArtifactObserver
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithContexts sets the table of well-known contexts.
func WithContexts(table *ContextTable) Option {
	return func(p *Pipeline) { p.contexts = table }
}

// WithDefaultContext sets the URL of the context applied when the caller
// supplies none. It must be present in the context table.
func WithDefaultContext(url string) Option {
	return func(p *Pipeline) { p.defaultURL = url }
}

// WithDocumentLoader sets the loader used for contexts outside the table.
func WithDocumentLoader(loader ld.DocumentLoader) Option {
	return func(p *Pipeline) { p.loader = loader }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithArtifactObserver registers a callback for serialization artifacts.
func WithArtifactObserver(fn ArtifactObserver) Option {
	return func(p *Pipeline) { p.onArtifact = fn }
}

// NewPipeline builds a pipeline. Without options it uses the built-in
// annotation contexts with the RESTful Open Annotation context as default,
// and fetches unknown contexts over HTTP.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		processor:  ld.NewJsonLdProcessor(),
		defaultURL: RESTOAContextURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.contexts == nil {
		table, err := DefaultContexts()
		if err != nil {
			return nil, errs.WrapFatal(err, "jsonld", "NewPipeline", "load contexts")
		}
		p.contexts = table
	}
	if _, ok := p.contexts.Context(p.defaultURL); !ok {
		return nil, errs.WrapFatal(fmt.Errorf("%w: default context %q is not a known context", errs.ErrInvalidConfig, p.defaultURL),
			"jsonld", "NewPipeline", "resolve default context")
	}
	p.loader = NewDocumentLoader(p.contexts, p.loader)
	return p, nil
}

// Contexts returns the pipeline's context table.
func (p *Pipeline) Contexts() *ContextTable { return p.contexts }

// DefaultContextURL returns the URL of the default context.
func (p *Pipeline) DefaultContextURL() string { return p.defaultURL }

func (p *Pipeline) options(base string) *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions(base)
	opts.DocumentLoader = p.loader
	return opts
}

// resolveContext returns the context object to apply: the default context
// when ctx is nil, the table entry when ctx is a known URL, ctx otherwise.
func (p *Pipeline) resolveContext(ctx interface{}) interface{} {
	if ctx == nil {
		ctx = p.defaultURL
	}
	if url, ok := ctx.(string); ok {
		if value, known := p.contexts.Context(url); known {
			return value
		}
	}
	return ctx
}

func canonicalizationError(err error, method, action string) error {
	return errs.WrapInvalid(errs.Mark(err, errs.ErrCanonicalization), "jsonld", method, action)
}

// Expand returns the expanded form of doc. Known context references in doc
// are served from memory; ctx (or the default context when nil) is applied
// as the expansion context and base resolves relative IRIs.
func (p *Pipeline) Expand(doc Document, ctx interface{}, base string) (Document, error) {
	input := SubstituteKnownContexts(doc, p.contexts)
	opts := p.options(base)
	opts.ExpandContext = p.resolveContext(ctx)
	expanded, err := p.processor.Expand(input, opts)
	if err != nil {
		return nil, canonicalizationError(err, "Expand", "expansion")
	}
	return expanded, nil
}

// Compact compacts doc with ctx, or the default context when nil. An output
// context equal to a known context is replaced by its URL. With dropContext
// the @context entry is removed from the result.
func (p *Pipeline) Compact(doc Document, ctx interface{}, base string, dropContext bool) (Document, error) {
	compacted, err := p.processor.Compact(doc, p.resolveContext(ctx), p.options(base))
	if err != nil {
		return nil, canonicalizationError(err, "Compact", "compaction")
	}
	out := ReplaceContextObjects(compacted, p.contexts).(map[string]interface{})
	if dropContext {
		delete(out, contextKey)
	}
	return out, nil
}

// Flatten returns the flattened form of doc without compaction.
func (p *Pipeline) Flatten(doc Document) (Document, error) {
	flat, err := p.processor.Flatten(doc, nil, p.options(""))
	if err != nil {
		return nil, canonicalizationError(err, "Flatten", "flattening")
	}
	return flat, nil
}

// ToGraphSerialization converts doc to N-Quads by expanding, flattening and
// emitting the resulting dataset.
func (p *Pipeline) ToGraphSerialization(doc Document, base string) (string, error) {
	expanded, err := p.Expand(doc, nil, base)
	if err != nil {
		return "", err
	}
	flat, err := p.Flatten(expanded)
	if err != nil {
		return "", err
	}
	opts := p.options(base)
	opts.Format = NQuadsFormat
	out, err := p.processor.ToRDF(flat, opts)
	if err != nil {
		return "", canonicalizationError(err, "ToGraphSerialization", "dataset serialization")
	}
	nquads, ok := out.(string)
	if !ok {
		return "", canonicalizationError(fmt.Errorf("unexpected toRDF result %T", out), "ToGraphSerialization", "dataset serialization")
	}
	return nquads, nil
}

// FromGraphSerializationExpanded parses N-Quads into an expanded document.
func (p *Pipeline) FromGraphSerializationExpanded(nquads string) (Document, error) {
	opts := p.options("")
	opts.Format = NQuadsFormat
	doc, err := p.processor.FromRDF(nquads, opts)
	if err != nil {
		return nil, errs.WrapInvalid(errs.Mark(err, errs.ErrMalformedInput), "jsonld", "FromGraphSerialization", "dataset parse")
	}
	return doc, nil
}

// FromGraphSerialization parses N-Quads and compacts the result with the
// default context.
func (p *Pipeline) FromGraphSerialization(nquads, base string, dropContext bool) (Document, error) {
	expanded, err := p.FromGraphSerializationExpanded(nquads)
	if err != nil {
		return nil, err
	}
	return p.Compact(expanded, nil, base, dropContext)
}
