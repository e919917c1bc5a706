package jsonld

// Document is a JSON-LD document tree of map[string]interface{},
// []interface{} and JSON scalars, as produced by encoding/json.
type Document = interface{}

const contextKey = "@context"

// ContextShape describes the value of a node's @context entry.
type ContextShape int

const (
	// ContextAbsent means the node has no @context entry or is not a node.
	ContextAbsent ContextShape = iota
	// ContextURL means the context is referenced by a single IRI.
	ContextURL
	// ContextInline means the context is an embedded object.
	ContextInline
	// ContextArray means the context is a list of references and objects.
	ContextArray
	// ContextOther covers null and any value JSON-LD does not allow.
	ContextOther
)

func (s ContextShape) String() string {
	switch s {
	case ContextAbsent:
		return "absent"
	case ContextURL:
		return "url"
	case ContextInline:
		return "inline"
	case ContextArray:
		return "array"
	default:
		return "other"
	}
}

// ClassifyContext reports the shape of node's @context entry together with
// the entry itself.
func ClassifyContext(node Document) (ContextShape, interface{}) {
	m, ok := node.(map[string]interface{})
	if !ok {
		return ContextAbsent, nil
	}
	value, ok := m[contextKey]
	if !ok {
		return ContextAbsent, nil
	}
	switch value.(type) {
	case string:
		return ContextURL, value
	case map[string]interface{}:
		return ContextInline, value
	case []interface{}:
		return ContextArray, value
	default:
		return ContextOther, value
	}
}

// SubstituteKnownContexts replaces context references found in table with
// the context objects they name. Only the top-level @context of a node (or of
// each node of a top-level array) is considered; a reference inside a
// context array is replaced element-wise. The input is not modified: nodes
// that change are shallow copies.
func SubstituteKnownContexts(doc Document, table *ContextTable) Document {
	if table == nil {
		return doc
	}
	if list, ok := doc.([]interface{}); ok {
		out := make([]interface{}, len(list))
		for i, item := range list {
			out[i] = substituteNode(item, table)
		}
		return out
	}
	return substituteNode(doc, table)
}

func substituteNode(node Document, table *ContextTable) Document {
	shape, value := ClassifyContext(node)
	var replaced interface{}
	switch shape {
	case ContextURL:
		ctx, ok := table.Context(value.(string))
		if !ok {
			return node
		}
		replaced = ctx
	case ContextArray:
		items := value.([]interface{})
		out := make([]interface{}, len(items))
		changed := false
		for i, item := range items {
			out[i] = item
			if url, ok := item.(string); ok {
				if ctx, ok := table.Context(url); ok {
					out[i] = ctx
					changed = true
				}
			}
		}
		if !changed {
			return node
		}
		replaced = out
	default:
		return node
	}
	return withContext(node.(map[string]interface{}), replaced)
}

// ReplaceContextObjects is the inverse of SubstituteKnownContexts: context
// objects structurally equal to a table entry are replaced by the entry's
// canonical URL.
func ReplaceContextObjects(doc Document, table *ContextTable) Document {
	if table == nil {
		return doc
	}
	shape, value := ClassifyContext(doc)
	switch shape {
	case ContextInline:
		if url, ok := table.URLFor(value); ok {
			return withContext(doc.(map[string]interface{}), url)
		}
	case ContextArray:
		items := value.([]interface{})
		out := make([]interface{}, len(items))
		changed := false
		for i, item := range items {
			out[i] = item
			if _, isObject := item.(map[string]interface{}); !isObject {
				continue
			}
			if url, ok := table.URLFor(item); ok {
				out[i] = url
				changed = true
			}
		}
		if changed {
			return withContext(doc.(map[string]interface{}), out)
		}
	}
	return doc
}

func withContext(node map[string]interface{}, ctx interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(node))
	for k, v := range node {
		out[k] = v
	}
	out[contextKey] = ctx
	return out
}
