// Package transcode composes negotiation, canonicalization and rewriting
// into the request cycle of the transcoder: parse, canonicalize, optionally
// rewrite, then render.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/geoknoesis/ldproxy/internal/codec"
	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/internal/metric"
	"github.com/geoknoesis/ldproxy/internal/negotiate"
)

// CanonicalMimetype is requested from remote servers by the proxy.
const CanonicalMimetype = "application/ld+json"

// Request is a transcoding request as seen by the service.
type Request struct {
	// ContentType is the declared type of Body, with parameters.
	ContentType string
	Body        []byte
	// Accept is the raw Accept header.
	Accept string
	// Override names the output codec and takes precedence over Accept.
	Override string
	// BaseURL is the effective URL of the request.
	BaseURL string
	// ProxyBase prefixes rewritten identifiers on the proxy path.
	ProxyBase   string
	Prettyprint *bool
	KeepContext bool
	DropContext bool
	RequestID   string
}

// Response is the outcome handed back to the transport.
type Response struct {
	Body        []byte
	ContentType string
	Status      int
}

// Service runs requests through the transcoding cycle. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	negotiator  *negotiate.Negotiator
	pipeline    *jsonld.Pipeline
	fetcher     Fetcher
	logger      *zap.Logger
	metrics     *metric.Metrics
	passthrough []string
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher sets the fetcher used by the proxy path.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records negotiation failures.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPassthroughTypes sets the media types the proxy returns unmodified.
func WithPassthroughTypes(types []string) Option {
	return func(s *Service) { s.passthrough = types }
}

// NewService creates a service.
func NewService(n *negotiate.Negotiator, p *jsonld.Pipeline, opts ...Option) *Service {
	s := &Service{
		negotiator:  n,
		pipeline:    p,
		logger:      zap.NewNop(),
		passthrough: []string{"text/html"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(0, 0)
	}
	return s
}

// Transcode parses the request body, canonicalizes it and renders it in the
// negotiated output format.
func (s *Service) Transcode(ctx context.Context, req Request) (*Response, error) {
	r := newRun(s.logger, req.RequestID)
	base := BaseURLOf(req.BaseURL)

	doc, parser, failure := s.parse(ctx, r, req.Body, req.ContentType, base)
	if failure != nil {
		return nil, failure
	}
	if raw, ok := doc.([]byte); ok {
		// Markup is never canonicalized; echo it back as submitted.
		r.to(StateResponded, zap.String("codec", parser.Name()))
		return &Response{Body: raw, ContentType: req.ContentType, Status: http.StatusOK}, nil
	}

	expanded, failure := s.canonicalize(ctx, r, doc, base)
	if failure != nil {
		return nil, failure
	}
	return s.render(ctx, r, expanded, req)
}

// Proxy fetches target, canonicalizes it, routes its identifiers through
// req.ProxyBase and renders it. Pass-through media types are returned
// exactly as fetched.
func (s *Service) Proxy(ctx context.Context, target string, req Request) (*Response, error) {
	r := newRun(s.logger, req.RequestID)
	r.logger.Debug("Proxy fetch", zap.String("url", target))

	if !isAbsoluteHTTP(target) {
		return nil, r.fail(http.StatusBadRequest,
			errs.WrapInvalid(fmt.Errorf("%w: proxy target %q is not an absolute http(s) URL", errs.ErrMalformedInput, target),
				"Service", "Proxy", "target validation"))
	}

	body, contentType, err := s.fetcher.Fetch(ctx, target, CanonicalMimetype)
	if err != nil {
		return nil, r.fail(http.StatusBadGateway, errs.Mark(err, errs.ErrRemoteFetch))
	}

	if s.isPassthrough(contentType) {
		out := body
		if c, _, err := s.negotiator.SelectForParsing(contentType); err == nil {
			if out, err = c.Render(ctx, body, codec.RenderOptions{Passthrough: true}); err != nil {
				return nil, r.fail(0, err)
			}
		}
		r.to(StateRendered, zap.String("mimetype", contentType))
		r.to(StateResponded)
		return &Response{Body: out, ContentType: contentType, Status: http.StatusOK}, nil
	}

	doc, _, failure := s.parse(ctx, r, body, contentType, target)
	if failure != nil {
		if failure.Status == http.StatusUnsupportedMediaType {
			failure.Status = http.StatusBadGateway
		}
		return nil, failure
	}
	expanded, failure := s.canonicalize(ctx, r, doc, target)
	if failure != nil {
		return nil, failure
	}

	rewritten, failure := r.rewriteIDs(expanded, req.ProxyBase)
	if failure != nil {
		return nil, failure
	}

	return s.render(ctx, r, rewritten, req)
}

// FetchDocument retrieves url as JSON-LD and returns its expanded form.
func (s *Service) FetchDocument(ctx context.Context, url string) (jsonld.Document, error) {
	r := newRun(s.logger, "")
	body, contentType, err := s.fetcher.Fetch(ctx, url, CanonicalMimetype)
	if err != nil {
		return nil, r.fail(http.StatusBadGateway, errs.Mark(err, errs.ErrRemoteFetch))
	}
	doc, _, failure := s.parse(ctx, r, body, contentType, url)
	if failure != nil {
		return nil, failure
	}
	expanded, failure := s.canonicalize(ctx, r, doc, url)
	if failure != nil {
		return nil, failure
	}
	return expanded, nil
}

func (s *Service) parse(ctx context.Context, r *run, body []byte, contentType, base string) (jsonld.Document, codec.Codec, *Failure) {
	c, opts, err := s.negotiator.SelectForParsing(contentType)
	if err != nil {
		s.negotiationFailed(negotiate.SideParse)
		return nil, nil, r.fail(http.StatusUnsupportedMediaType, err)
	}
	opts.Base = base
	doc, err := c.Parse(ctx, body, opts)
	if err != nil {
		return nil, nil, r.fail(0, err)
	}
	r.to(StateParsed, zap.String("codec", c.Name()))
	return doc, c, nil
}

func (s *Service) canonicalize(ctx context.Context, r *run, doc jsonld.Document, base string) (jsonld.Document, *Failure) {
	if err := ctx.Err(); err != nil {
		return nil, r.fail(0, err)
	}
	expanded, err := s.pipeline.Expand(doc, nil, base)
	if err != nil {
		return nil, r.fail(0, err)
	}
	r.to(StateCanonicalized)
	return expanded, nil
}

func (s *Service) render(ctx context.Context, r *run, doc jsonld.Document, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, r.fail(0, err)
	}
	c, mimetype, err := s.negotiator.SelectForRendering(req.Accept, req.Override)
	if err != nil {
		s.negotiationFailed(negotiate.SideRender)
		return nil, r.fail(http.StatusNotAcceptable, err)
	}
	out, err := c.Render(ctx, doc, codec.RenderOptions{
		Prettyprint: req.Prettyprint,
		KeepContext: req.KeepContext,
		DropContext: req.DropContext,
	})
	if err != nil {
		return nil, r.fail(0, err)
	}
	r.to(StateRendered, zap.String("codec", c.Name()), zap.String("mimetype", mimetype))
	r.to(StateResponded)
	return &Response{Body: out, ContentType: mimetype, Status: http.StatusOK}, nil
}

func (s *Service) negotiationFailed(side negotiate.Side) {
	if s.metrics != nil {
		s.metrics.NegotiationFailed(string(side))
	}
}

func (s *Service) isPassthrough(contentType string) bool {
	mediatype, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range s.passthrough {
		if strings.EqualFold(mediatype, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

// BaseURLOf returns the scheme, host and path of rawURL up to and including
// the last slash. Query and fragment are dropped. Unparseable or relative
// input yields "".
func BaseURLOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	dir := u.EscapedPath()
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[:i+1]
	} else {
		dir = "/"
	}
	return u.Scheme + "://" + u.Host + dir
}

func isAbsoluteHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// StatusOf returns the HTTP status for an error returned by the service.
func StatusOf(err error) int {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Status
	}
	return errs.HTTPStatus(err)
}
