// Package codec defines the contract every serialization format implements
// and the registry that routes codec names and mimetypes to implementations.
package codec

import (
	"context"
	"strings"

	"github.com/geoknoesis/ldproxy/internal/jsonld"
)

// ParseOptions are passed to a codec's parser.
type ParseOptions struct {
	// Encoding is the charset parameter of the declared content type, if any.
	Encoding string
	// Base resolves relative identifiers in the input.
	Base string
}

// RenderOptions are passed to a codec's renderer.
type RenderOptions struct {
	// Prettyprint selects indented output. Nil means true.
	Prettyprint *bool
	// KeepContext keeps @context in formats that drop it by default.
	KeepContext bool
	// DropContext removes @context from formats that keep it by default.
	DropContext bool
	// Passthrough returns the document bytes unmodified.
	Passthrough bool
	// Base is the base IRI for relative identifiers in the output.
	Base string
}

// Pretty reports whether indented output was requested.
func (o RenderOptions) Pretty() bool {
	return o.Prettyprint == nil || *o.Prettyprint
}

// Candidate is anything offered to the registry. Only candidates that are
// also a Parser and a Renderer pass the capability check.
type Candidate interface {
	// Name is the unique key of the codec, used by the format override.
	Name() string
	// Mimetypes lists the content types the codec handles, preferred first.
	Mimetypes() []string
}

// Parser turns serialized bytes into an expanded document.
type Parser interface {
	Parse(ctx context.Context, data []byte, opts ParseOptions) (jsonld.Document, error)
}

// Renderer serializes an expanded document.
type Renderer interface {
	Render(ctx context.Context, doc jsonld.Document, opts RenderOptions) ([]byte, error)
}

// Codec converts between one wire format and the canonical document form.
type Codec interface {
	Candidate
	Parser
	Renderer
}

// Descriptor is the serializable description of a registered codec.
type Descriptor struct {
	Name      string   `json:"name"`
	Mimetypes []string `json:"mimetypes"`
}

// Describe returns the descriptor of c.
func Describe(c Candidate) Descriptor {
	return Descriptor{Name: c.Name(), Mimetypes: append([]string(nil), c.Mimetypes()...)}
}

// NormalizeMimetype returns the lookup key for a media type: lowercased,
// with parameters kept in their declared order and separated by "; ".
func NormalizeMimetype(mt string) string {
	parts := strings.Split(mt, ";")
	out := parts[:0]
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, '='); i > 0 {
			part = strings.TrimSpace(part[:i]) + "=" + strings.TrimSpace(part[i+1:])
		}
		out = append(out, part)
	}
	return strings.Join(out, "; ")
}
