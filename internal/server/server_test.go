package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/piprate/json-gold/ld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/ldproxy/internal/codec"
	"github.com/geoknoesis/ldproxy/internal/formats"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/internal/metric"
	"github.com/geoknoesis/ldproxy/internal/negotiate"
	"github.com/geoknoesis/ldproxy/internal/transcode"
)

type offlineLoader struct{}

func (offlineLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return nil, fmt.Errorf("network access to %s", u)
}

type stubFetcher map[string]struct{ body, contentType string }

func (f stubFetcher) Fetch(_ context.Context, url, _ string) ([]byte, string, error) {
	doc, ok := f[url]
	if !ok {
		return nil, "", fmt.Errorf("no document at %s", url)
	}
	return []byte(doc.body), doc.contentType, nil
}

const annotation = `{
  "@context": "http://nlplab.org/ns/restoa-context-20150307.json",
  "@id": "http://example.org/annotations/1",
  "@type": "Annotation",
  "target": "http://example.org/page",
  "exact": "hello"
}`

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	p, err := jsonld.NewPipeline(jsonld.WithDocumentLoader(offlineLoader{}))
	require.NoError(t, err)
	r := codec.NewRegistry()
	r.Discover(formats.Candidates(formats.Deps{Pipeline: p}))
	r.Freeze()
	n, err := negotiate.New(r)
	require.NoError(t, err)

	fetcher := stubFetcher{
		"http://example.org/annotations/1": {annotation, "application/ld+json"},
		"http://example.org/index.html":    {"<p>hi</p>", "text/html"},
	}
	svc := transcode.NewService(n, p, transcode.WithFetcher(fetcher))
	s, err := New(cfg, svc, r, metric.NewRegistry())
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestEchoTranscodes(t *testing.T) {
	s := newServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/echo/", strings.NewReader(annotation))
	req.Header.Set("Content-Type", "application/ld+json")
	req.Header.Set("Accept", "application/n-triples")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/n-triples", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `<http://example.org/annotations/1> <http://www.w3.org/ns/oa#exact> "hello" .`)

	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestEchoFormatOverrideAndRequestID(t *testing.T) {
	s := newServer(t, Config{})
	req := httptest.NewRequest(http.MethodPut, "/echo/?format=json&prettyprint=false", strings.NewReader(annotation))
	req.Header.Set("Content-Type", "application/ld+json")
	req.Header.Set("Accept", "text/turtle")
	req.Header.Set(RequestIDHeader, "abc")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.NotContains(t, rec.Body.String(), "\n  ")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotContains(t, out, "@context")
	assert.Equal(t, "hello", out["exact"])
}

func TestEchoNegotiationFailures(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		accept      string
		status      int
		submitted   string
	}{
		{"unsupported input", "application/pdf", "", http.StatusUnsupportedMediaType, "application/pdf"},
		{"unacceptable output", "application/ld+json", "image/png", http.StatusNotAcceptable, "image/png"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newServer(t, Config{})
			req := httptest.NewRequest(http.MethodPost, "/echo/", strings.NewReader(annotation))
			req.Header.Set("Content-Type", test.contentType)
			if test.accept != "" {
				req.Header.Set("Accept", test.accept)
			}

			rec := serve(s, req)
			assert.Equal(t, test.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var payload struct {
				Error     string   `json:"error"`
				Submitted string   `json:"submitted"`
				Supported []string `json:"supported"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, "No acceptable content type found", payload.Error)
			assert.Equal(t, test.submitted, payload.Submitted)
			assert.Contains(t, payload.Supported, "application/ld+json")
		})
	}
}

func TestEchoBodyLimit(t *testing.T) {
	s := newServer(t, Config{MaxBodyBytes: 10})
	req := httptest.NewRequest(http.MethodPost, "/echo/", strings.NewReader(annotation))
	req.Header.Set("Content-Type", "application/ld+json")

	rec := serve(s, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProxyRewritesThroughForwardedOrigin(t *testing.T) {
	s := newServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/proxy/http%3A//example.org/annotations/1", nil)
	req.Host = "internal:8080"
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "proxy.test")
	req.Header.Set("Accept", "application/ld+json")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "https://proxy.test/proxy/http%3A//example.org/annotations/1", out["@id"])
	assert.Equal(t, "https://proxy.test/proxy/http%3A//example.org/page", out["target"])
}

func TestProxyUsesPublicBaseURL(t *testing.T) {
	s := newServer(t, Config{PublicBaseURL: "http://public.example/ld/"})
	req := httptest.NewRequest(http.MethodGet, "/proxy/http%3A//example.org/annotations/1?format=jsonld", nil)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"http://public.example/ld/proxy/http%3A//example.org/annotations/1"`)
}

func TestProxyPassthroughAndFailures(t *testing.T) {
	s := newServer(t, Config{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/proxy/http%3A//example.org/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>hi</p>", rec.Body.String())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/proxy/http%3A//example.org/missing", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/proxy/not-a-url", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/proxy/http%3A//example.org/annotations/1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFormatsHealthAndMetrics(t *testing.T) {
	s := newServer(t, Config{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/formats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var descriptors []codec.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &descriptors))
	require.Len(t, descriptors, 10)
	assert.Equal(t, formats.NameJSONLD, descriptors[0].Name)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	echo := httptest.NewRequest(http.MethodPost, "/echo/", strings.NewReader("x"))
	echo.Header.Set("Content-Type", "application/pdf")
	serve(s, echo)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ldproxy_requests_total{outcome="not_acceptable",path="echo"} 1`)
}

func TestGzipResponses(t *testing.T) {
	s := newServer(t, Config{Gzip: true})
	var body strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&body, "<http://example.org/s%d> <http://example.org/p> \"value %d\" .\n", i, i)
	}
	req := httptest.NewRequest(http.MethodPost, "/echo/", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", "application/n-triples")
	req.Header.Set("Accept", "application/n-triples")
	req.Header.Set("Accept-Encoding", "gzip")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), `<http://example.org/s42> <http://example.org/p> "value 42" .`)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, metric.OutcomeOK, outcomeOf(http.StatusOK))
	assert.Equal(t, metric.OutcomeNotAcceptable, outcomeOf(http.StatusUnsupportedMediaType))
	assert.Equal(t, metric.OutcomeUpstreamError, outcomeOf(http.StatusBadGateway))
	assert.Equal(t, metric.OutcomeClientError, outcomeOf(http.StatusBadRequest))
	assert.Equal(t, metric.OutcomeServerError, outcomeOf(http.StatusInternalServerError))
}
