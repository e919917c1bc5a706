package jsonld

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Well-known context URLs.
const (
	// OAContext20130208URL is the Open Annotation community group final draft context.
	OAContext20130208URL = "http://www.w3.org/ns/oa-context-20130208.json"
	// OAContextURL redirects to the 2013-02-08 context.
	OAContextURL = "http://www.w3.org/ns/oa.jsonld"
	// WAContext20141211URL is the Web Annotation WG first working draft context.
	WAContext20141211URL = "http://www.w3.org/ns/anno.jsonld"
	// RESTOAContextURL is the RESTful Open Annotation API context, the default
	// for expansion and compaction.
	RESTOAContextURL = "http://nlplab.org/ns/restoa-context-20150307.json"
)

//go:embed contexts/*.json
var contextFiles embed.FS

// wellKnown maps each URL to the embedded document it names. Several URLs
// may share one document; the first URL listed for a document is canonical.
var wellKnown = []struct {
	url  string
	file string
}{
	{OAContext20130208URL, "contexts/oa-context-20130208.json"},
	{OAContextURL, "contexts/oa-context-20130208.json"},
	{WAContext20141211URL, "contexts/anno-20141211.json"},
	{RESTOAContextURL, "contexts/restoa-20150307.json"},
}

// ContextTable is an immutable mapping from context URL to context
// document. It is built once at startup and shared by all requests.
type ContextTable struct {
	documents map[string]map[string]interface{}
	canonical map[string]string // JCS form of the context value -> canonical URL
	urls      []string
}

// DefaultContexts returns the table of well-known annotation contexts.
func DefaultContexts() (*ContextTable, error) {
	docs := make(map[string][]byte, len(wellKnown))
	var urls []string
	for _, entry := range wellKnown {
		raw, err := contextFiles.ReadFile(entry.file)
		if err != nil {
			return nil, fmt.Errorf("read context %s: %w", entry.file, err)
		}
		docs[entry.url] = raw
		urls = append(urls, entry.url)
	}
	return NewContextTable(urls, docs)
}

// NewContextTable builds a table from raw JSON documents, each of the form
// {"@context": ...}. urls fixes the order in which canonical URLs are chosen.
func NewContextTable(urls []string, raw map[string][]byte) (*ContextTable, error) {
	table := &ContextTable{
		documents: make(map[string]map[string]interface{}, len(raw)),
		canonical: make(map[string]string, len(raw)),
	}
	for _, url := range urls {
		data, ok := raw[url]
		if !ok {
			return nil, fmt.Errorf("context %s: no document", url)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("context %s: %w", url, err)
		}
		value, ok := doc["@context"]
		if !ok {
			return nil, fmt.Errorf("context %s: document has no @context", url)
		}
		key, err := canonicalKey(value)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", url, err)
		}
		table.documents[url] = doc
		table.urls = append(table.urls, url)
		if _, taken := table.canonical[key]; !taken {
			table.canonical[key] = url
		}
	}
	return table, nil
}

// canonicalKey returns the RFC 8785 canonical JSON of v.
func canonicalKey(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	canon, err := jcs.Transform(data)
	if err != nil {
		return "", err
	}
	return string(canon), nil
}

// URLs returns the known URLs in registration order.
func (t *ContextTable) URLs() []string {
	return append([]string(nil), t.urls...)
}

// Document returns the full {"@context": ...} document for url.
func (t *ContextTable) Document(url string) (map[string]interface{}, bool) {
	doc, ok := t.documents[url]
	return doc, ok
}

// Context returns the value of the @context entry for url.
func (t *ContextTable) Context(url string) (interface{}, bool) {
	doc, ok := t.documents[url]
	if !ok {
		return nil, false
	}
	return doc["@context"], true
}

// URLFor returns the canonical URL of a context value structurally equal to
// ctx. Both the bare value and the {"@context": ...} wrapper are accepted.
func (t *ContextTable) URLFor(ctx interface{}) (string, bool) {
	if wrapper, ok := ctx.(map[string]interface{}); ok && len(wrapper) == 1 {
		if inner, ok := wrapper["@context"]; ok {
			ctx = inner
		}
	}
	key, err := canonicalKey(ctx)
	if err != nil {
		return "", false
	}
	url, ok := t.canonical[key]
	return url, ok
}
