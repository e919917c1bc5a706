package formats

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/geoknoesis/ldproxy/internal/codec"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/rdf"
)

const (
	htmlHeader = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>JSON-LD</title>
  </head>
  <body>
`
	htmlTrailer = `  </body>
</html>
`
	xsdDateTimeStamp = rdf.XSDNamespace + "dateTimeStamp"
)

// HTML renders documents as nested definition lists. It cannot parse
// markup: parsed input is carried through as raw bytes so that proxied
// pages can be passed through unmodified.
type HTML struct{}

// NewHTML creates the HTML codec.
func NewHTML() *HTML { return &HTML{} }

func (*HTML) Name() string { return NameHTML }
func (*HTML) Mimetypes() []string {
	return []string{"text/html", "text/html; charset=UTF-8"}
}

// Parse returns data unchanged.
func (*HTML) Parse(_ context.Context, data []byte, _ codec.ParseOptions) (jsonld.Document, error) {
	return data, nil
}

// Render writes doc, normally in expanded form, as an HTML page.
func (*HTML) Render(_ context.Context, doc jsonld.Document, opts codec.RenderOptions) ([]byte, error) {
	if opts.Passthrough {
		return passthrough(NameHTML, doc)
	}
	var b strings.Builder
	b.WriteString(htmlHeader)
	writeHTMLValue(&b, doc)
	b.WriteString(htmlTrailer)
	return []byte(b.String()), nil
}

func writeHTMLValue(b *strings.Builder, value interface{}) {
	switch v := value.(type) {
	case []interface{}:
		writeHTMLList(b, v)
	case map[string]interface{}:
		writeHTMLNode(b, v)
	case nil:
	default:
		b.WriteString(html.EscapeString(fmt.Sprint(v)))
	}
}

func writeHTMLList(b *strings.Builder, list []interface{}) {
	if len(list) == 1 {
		writeHTMLValue(b, list[0])
		return
	}
	b.WriteString("<ul>\n")
	for _, item := range list {
		b.WriteString("<li>")
		writeHTMLValue(b, item)
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")
}

func writeHTMLNode(b *strings.Builder, node map[string]interface{}) {
	if value, ok := node["@value"]; ok && len(node) == 1 {
		writeHTMLValue(b, value)
		return
	}
	if isDateTimeStamp(node) {
		stamp := html.EscapeString(fmt.Sprint(node["@value"]))
		fmt.Fprintf(b, `<time datetime="%s">%s</time>`, stamp, stamp)
		return
	}
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteString("<dl>\n")
	for _, key := range keys {
		if key == "@id" {
			id := html.EscapeString(fmt.Sprint(node[key]))
			fmt.Fprintf(b, `<a href="%s">%s</a>`, id, id)
			continue
		}
		b.WriteString("<dt>")
		b.WriteString(html.EscapeString(key))
		b.WriteString("</dt><dd>")
		writeHTMLValue(b, node[key])
		b.WriteString("</dd>\n")
	}
	b.WriteString("</dl>\n")
}

func isDateTimeStamp(node map[string]interface{}) bool {
	_, hasValue := node["@value"]
	return len(node) == 2 && hasValue && node["@type"] == xsdDateTimeStamp
}
