package jsonld

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/piprate/json-gold/ld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/rdf"
)

// offlineLoader fails every load and records the URLs it was asked for.
type offlineLoader struct {
	mu   sync.Mutex
	urls []string
}

func (l *offlineLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, u)
	return nil, fmt.Errorf("network access to %s", u)
}

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *offlineLoader) {
	t.Helper()
	loader := &offlineLoader{}
	p, err := NewPipeline(append([]Option{WithDocumentLoader(loader)}, opts...)...)
	require.NoError(t, err)
	return p, loader
}

func firstNode(t *testing.T, doc Document) map[string]interface{} {
	t.Helper()
	list, ok := doc.([]interface{})
	require.True(t, ok, "expected a node list, got %T", doc)
	require.NotEmpty(t, list)
	node, ok := list[0].(map[string]interface{})
	require.True(t, ok)
	return node
}

func TestNewPipelineRejectsUnknownDefault(t *testing.T) {
	_, err := NewPipeline(WithDefaultContext("http://example.org/none.jsonld"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
	assert.True(t, errs.IsFatal(err))
}

func TestExpandWellKnownContextsOffline(t *testing.T) {
	p, loader := newTestPipeline(t)

	for _, url := range p.Contexts().URLs() {
		t.Run(url, func(t *testing.T) {
			doc := map[string]interface{}{
				"@context": url,
				"@id":      "http://example.org/anno1",
				"@type":    "oa:Annotation",
			}
			expanded, err := p.Expand(doc, nil, "")
			require.NoError(t, err)

			node := firstNode(t, expanded)
			assert.Equal(t, "http://example.org/anno1", node["@id"])
			assert.Equal(t, []interface{}{"http://www.w3.org/ns/oa#Annotation"}, node["@type"])
		})
	}
	assert.Empty(t, loader.urls)
}

func TestExpandNestedWellKnownContextOffline(t *testing.T) {
	p, loader := newTestPipeline(t)

	doc := map[string]interface{}{
		"@context": []interface{}{OAContextURL},
		"@id":      "http://example.org/anno1",
		"oa:hasBody": map[string]interface{}{
			"@context": WAContext20141211URL,
			"@id":      "http://example.org/body1",
		},
	}
	expanded, err := p.Expand(doc, nil, "")
	require.NoError(t, err)

	node := firstNode(t, expanded)
	bodies := node["http://www.w3.org/ns/oa#hasBody"].([]interface{})
	require.Len(t, bodies, 1)
	assert.Equal(t, "http://example.org/body1", bodies[0].(map[string]interface{})["@id"])
	assert.Empty(t, loader.urls)
}

func TestExpandUsesDefaultContextAndBase(t *testing.T) {
	p, _ := newTestPipeline(t)

	doc := map[string]interface{}{
		"@id":   "anno1",
		"@type": "Annotation",
		"exact": "hello",
	}
	expanded, err := p.Expand(doc, nil, "http://example.org/annotations/")
	require.NoError(t, err)

	node := firstNode(t, expanded)
	assert.Equal(t, "http://example.org/annotations/anno1", node["@id"])
	assert.Equal(t, []interface{}{"http://www.w3.org/ns/oa#Annotation"}, node["@type"])
	assert.Equal(t, []interface{}{map[string]interface{}{"@value": "hello"}}, node["http://www.w3.org/ns/oa#exact"])
}

func TestExpandUnknownRemoteContextFails(t *testing.T) {
	p, loader := newTestPipeline(t)

	_, err := p.Expand(map[string]interface{}{"@context": "http://example.org/missing.jsonld"}, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCanonicalization)
	assert.True(t, errs.IsInvalid(err))
	assert.Contains(t, loader.urls, "http://example.org/missing.jsonld")
}

func TestCompactReplacesContextWithURL(t *testing.T) {
	p, _ := newTestPipeline(t)

	expanded := []interface{}{map[string]interface{}{
		"@id":                              "http://example.org/anno1",
		"@type":                            []interface{}{"http://www.w3.org/ns/oa#Annotation"},
		"http://www.w3.org/ns/oa#hasTarget": []interface{}{map[string]interface{}{"@id": "http://example.org/page"}},
	}}

	compacted, err := p.Compact(expanded, nil, "", false)
	require.NoError(t, err)
	out := compacted.(map[string]interface{})
	assert.Equal(t, RESTOAContextURL, out["@context"])
	assert.Equal(t, "Annotation", out["@type"])
	assert.Equal(t, "http://example.org/page", out["target"])

	compacted, err = p.Compact(expanded, nil, "", true)
	require.NoError(t, err)
	assert.NotContains(t, compacted.(map[string]interface{}), "@context")

	compacted, err = p.Compact(expanded, OAContextURL, "", false)
	require.NoError(t, err)
	out = compacted.(map[string]interface{})
	assert.Equal(t, OAContext20130208URL, out["@context"])
	assert.Equal(t, "http://example.org/page", out["hasTarget"])
}

func TestFlatten(t *testing.T) {
	p, _ := newTestPipeline(t)

	doc := []interface{}{map[string]interface{}{
		"@id": "http://example.org/anno1",
		"http://www.w3.org/ns/oa#hasBody": []interface{}{map[string]interface{}{
			"@id":                           "http://example.org/body1",
			"http://purl.org/dc/elements/1.1/format": []interface{}{map[string]interface{}{"@value": "text/plain"}},
		}},
	}}
	flat, err := p.Flatten(doc)
	require.NoError(t, err)
	nodes, ok := flat.([]interface{})
	require.True(t, ok)
	assert.Len(t, nodes, 2)
}

func TestGraphSerializationRoundTrip(t *testing.T) {
	p, _ := newTestPipeline(t)

	doc := map[string]interface{}{
		"@context":    RESTOAContextURL,
		"@id":         "http://example.org/anno1",
		"@type":       "Annotation",
		"target":      "http://example.org/page",
		"exact":       "hello",
		"annotatedAt": "2015-03-07T10:00:00Z",
	}

	nquads, err := p.ToGraphSerialization(doc, "")
	require.NoError(t, err)
	assert.Contains(t, nquads, "<http://example.org/anno1> <http://www.w3.org/ns/oa#hasTarget> <http://example.org/page> .")

	back, err := p.FromGraphSerialization(nquads, "", false)
	require.NoError(t, err)
	assert.Equal(t, RESTOAContextURL, back.(map[string]interface{})["@context"])

	compacted, err := p.Compact(doc, nil, "", false)
	require.NoError(t, err)

	left, err := p.Expand(back, nil, "")
	require.NoError(t, err)
	right, err := p.Expand(compacted, nil, "")
	require.NoError(t, err)
	assert.True(t, ld.DeepCompare(left, right, false), "round trip changed the dataset:\n%v\n%v", left, right)
}

func TestFromGraphSerializationRejectsGarbage(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.FromGraphSerialization("this is not nquads", "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestGraphFormatToDocument(t *testing.T) {
	p, _ := newTestPipeline(t)

	turtle := "@prefix ex: <http://example.org/> .\nex:s ex:p \"o\" .\n"
	doc, err := p.GraphFormatToDocument(context.Background(), []byte(turtle), rdf.FormatTurtle, "")
	require.NoError(t, err)

	list := doc.([]interface{})
	require.Len(t, list, 1)
	node := list[0].(map[string]interface{})
	assert.Equal(t, "http://example.org/s", node["@id"])
	assert.Equal(t, []interface{}{map[string]interface{}{"@value": "o"}}, node["http://example.org/p"])
}

func TestGraphFormatToDocumentKeepsLiteralText(t *testing.T) {
	p, _ := newTestPipeline(t)

	for _, value := range []string{"see _:b0 here", "a _:b  c"} {
		turtle := "<http://example.org/s> <http://example.org/p> \"" + value + "\" .\n"
		doc, err := p.GraphFormatToDocument(context.Background(), []byte(turtle), rdf.FormatTurtle, "")
		require.NoError(t, err)

		node := firstNode(t, doc)
		assert.Equal(t, []interface{}{map[string]interface{}{"@value": value}}, node["http://example.org/p"], value)
	}
}

func TestDropBlankGraphLabels(t *testing.T) {
	quads := []rdf.Quad{
		{S: rdf.IRI{Value: "http://a/s"}, P: rdf.IRI{Value: "http://a/p"}, O: rdf.IRI{Value: "http://a/o"}, G: rdf.BlankNode{ID: "g"}},
		{S: rdf.IRI{Value: "http://a/s"}, P: rdf.IRI{Value: "http://a/p"}, O: rdf.IRI{Value: "http://a/o"}, G: rdf.IRI{Value: "http://a/g"}},
	}
	dropBlankGraphLabels(quads)
	assert.Nil(t, quads[0].G)
	assert.Equal(t, rdf.IRI{Value: "http://a/g"}, quads[1].G)
}

func TestGraphFormatToDocumentBlankNodes(t *testing.T) {
	p, _ := newTestPipeline(t)

	nt := "_:node-one <http://example.org/p> _:Other_2 .\n"
	doc, err := p.GraphFormatToDocument(context.Background(), []byte(nt), rdf.FormatNTriples, "")
	require.NoError(t, err)

	node := firstNode(t, doc)
	assert.True(t, strings.HasPrefix(node["@id"].(string), "_:"))
}

func TestGraphFormatToDocumentMalformed(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.GraphFormatToDocument(context.Background(), []byte("ex:s ex:p"), rdf.FormatTurtle, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrMalformedInput)
	assert.True(t, errs.IsInvalid(err))
}

func TestDocumentToGraphFormatDropsGraphNames(t *testing.T) {
	var reported []string
	p, _ := newTestPipeline(t, WithArtifactObserver(func(format string, dropped int) {
		reported = append(reported, fmt.Sprintf("%s:%d", format, dropped))
	}))

	doc := map[string]interface{}{
		"@id": "http://example.org/g",
		"@graph": []interface{}{map[string]interface{}{
			"@id":                  "http://example.org/s",
			"http://example.org/p": "o",
		}},
	}

	out, err := p.DocumentToGraphFormat(context.Background(), doc, rdf.FormatNTriples, rdf.SerializeOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<http://example.org/s> <http://example.org/p> "o" .`)
	assert.NotContains(t, string(out), "<http://example.org/g>")
	assert.Equal(t, []string{"ntriples:1"}, reported)

	reported = nil
	out, err = p.DocumentToGraphFormat(context.Background(), doc, rdf.FormatNQuads, rdf.SerializeOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<http://example.org/s> <http://example.org/p> "o" <http://example.org/g> .`)
	assert.Empty(t, reported)
}

func TestPrefixesFromDefaultContext(t *testing.T) {
	p, _ := newTestPipeline(t)

	prefixes := p.Prefixes()
	assert.Equal(t, "http://www.w3.org/ns/oa#", prefixes["oa"])
	assert.Equal(t, "http://purl.org/dc/elements/1.1/", prefixes["dc"])
	assert.NotContains(t, prefixes, "Annotation")
}
