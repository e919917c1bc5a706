package jsonld

import (
	"net/http"

	"github.com/piprate/json-gold/ld"
)

// NewDocumentLoader returns a loader that serves every context in table from
// memory and delegates anything else to next. A nil next falls back to an
// HTTP loader that honours Cache-Control headers of remote contexts.
func NewDocumentLoader(table *ContextTable, next ld.DocumentLoader) *ld.CachingDocumentLoader {
	if next == nil {
		next = ld.NewRFC7324CachingDocumentLoader(http.DefaultClient)
	}
	loader := ld.NewCachingDocumentLoader(next)
	if table == nil {
		return loader
	}
	for _, url := range table.URLs() {
		doc, _ := table.Document(url)
		loader.AddDocument(url, doc)
	}
	return loader
}
