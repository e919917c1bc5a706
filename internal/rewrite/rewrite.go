// Package rewrite routes the identifiers of a document through a proxy.
//
// Rewriting is not idempotent: a second pass prefixes and encodes the
// already rewritten identifiers again. Callers that may reach the rewrite
// step more than once per response guard it with Once.
package rewrite

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/geoknoesis/ldproxy/internal/jsonld"
)

const idKey = "@id"

// ErrAlreadyRewritten is returned by Once.Rewrite after the first pass.
var ErrAlreadyRewritten = errors.New("document already rewritten")

// Rewrite replaces the value of every string "@id" entry in doc with
// proxyBase followed by the percent-encoded original. Maps and slices are
// modified in place; the returned value is the only valid reference to the
// result.
func Rewrite(doc jsonld.Document, proxyBase string) jsonld.Document {
	switch v := doc.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if key == idKey {
				if id, ok := value.(string); ok {
					v[key] = proxyBase + Encode(id)
				}
				continue
			}
			v[key] = Rewrite(value, proxyBase)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = Rewrite(item, proxyBase)
		}
		return v
	default:
		return doc
	}
}

// Encode percent-encodes s for use in a URL path. Letters, digits, "-",
// ".", "_", "~" and "/" are kept; every other byte is escaped.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~', c == '/':
		return true
	default:
		return false
	}
}

// Once allows a single rewrite pass. The zero value is ready to use; use one
// guard per response.
type Once struct {
	done atomic.Bool
}

// Rewrite rewrites doc on the first call and returns ErrAlreadyRewritten on
// every later call, leaving doc untouched.
func (o *Once) Rewrite(doc jsonld.Document, proxyBase string) (jsonld.Document, error) {
	if !o.done.CompareAndSwap(false, true) {
		return doc, ErrAlreadyRewritten
	}
	return Rewrite(doc, proxyBase), nil
}

// Done reports whether the rewrite pass has run.
func (o *Once) Done() bool { return o.done.Load() }
