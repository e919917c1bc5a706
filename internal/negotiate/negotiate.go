// Package negotiate selects the codec that parses a request body and the
// codec that renders the response, independently of each other.
package negotiate

import (
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/munnerz/goautoneg"

	"github.com/geoknoesis/ldproxy/internal/codec"
	errs "github.com/geoknoesis/ldproxy/internal/errors"
)

// Side tells which half of a request a negotiation failure belongs to.
type Side string

const (
	SideParse  Side = "parse"
	SideRender Side = "render"
)

const notAcceptableMessage = "No acceptable content type found"

// NotAcceptable is returned when no codec matches. It carries what the
// client submitted and what the server supports so that the caller can
// render a diagnostic body.
type NotAcceptable struct {
	Message   string   `json:"error"`
	Submitted string   `json:"submitted"`
	Supported []string `json:"supported"`
	Side      Side     `json:"-"`
}

func (e *NotAcceptable) Error() string {
	return fmt.Sprintf("%s: submitted %q, supported %s", e.Message, e.Submitted, strings.Join(e.Supported, ", "))
}

// Unwrap lets errors.Is match errs.ErrUnsupportedFormat.
func (e *NotAcceptable) Unwrap() error { return errs.ErrUnsupportedFormat }

// Negotiator resolves content types against a frozen registry.
type Negotiator struct {
	registry    *codec.Registry
	defaultName string
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithDefault sets the name of the codec used for "*/*" and unknown
// overrides. The default is "jsonld".
func WithDefault(name string) Option {
	return func(n *Negotiator) { n.defaultName = name }
}

// New creates a negotiator over registry. The default codec must be
// registered unless the registry is empty, in which case every negotiation
// fails.
func New(registry *codec.Registry, opts ...Option) (*Negotiator, error) {
	n := &Negotiator{registry: registry, defaultName: "jsonld"}
	for _, opt := range opts {
		opt(n)
	}
	if registry.Len() > 0 {
		if _, err := registry.ResolveByName(n.defaultName); err != nil {
			return nil, errs.WrapFatal(fmt.Errorf("%w: default format %q is not available", errs.ErrInvalidConfig, n.defaultName),
				"Negotiator", "New", "default codec lookup")
		}
	}
	return n, nil
}

// DefaultName returns the name of the default codec.
func (n *Negotiator) DefaultName() string { return n.defaultName }

func (n *Negotiator) notAcceptable(side Side, submitted string) *NotAcceptable {
	supported := n.registry.Mimetypes()
	if supported == nil {
		supported = []string{}
	}
	return &NotAcceptable{
		Message:   notAcceptableMessage,
		Submitted: submitted,
		Supported: supported,
		Side:      side,
	}
}

// SelectForParsing returns the codec for a declared Content-Type. The
// charset parameter is returned as the parse encoding and never affects the
// selection: only the bare media type is looked up, first as registered
// bare, then against the media type of each registered mimetype.
func (n *Negotiator) SelectForParsing(contentType string) (codec.Codec, codec.ParseOptions, error) {
	mediatype, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, codec.ParseOptions{}, n.notAcceptable(SideParse, contentType)
	}
	opts := codec.ParseOptions{Encoding: params["charset"]}
	if c, err := n.registry.ResolveByMimetype(mediatype); err == nil {
		return c, opts, nil
	}
	for _, mt := range n.registry.Mimetypes() {
		if mediaType(mt) == mediatype {
			c, _ := n.registry.ResolveByMimetype(mt)
			return c, opts, nil
		}
	}
	return nil, codec.ParseOptions{}, n.notAcceptable(SideParse, contentType)
}

// SelectForRendering returns the codec for a response and the content type
// to declare. A non-empty override names a codec and bypasses Accept; an
// override naming no codec selects the default. Otherwise the Accept
// preferences are tried by descending quality, in client order among equal
// qualities. An empty Accept header accepts anything.
func (n *Negotiator) SelectForRendering(accept, override string) (codec.Codec, string, error) {
	if override != "" && n.registry.Len() > 0 {
		c, err := n.registry.ResolveByName(override)
		if err != nil {
			c, err = n.registry.ResolveByName(n.defaultName)
			if err != nil {
				return nil, "", n.notAcceptable(SideRender, accept)
			}
		}
		return c, c.Mimetypes()[0], nil
	}

	header := accept
	if strings.TrimSpace(header) == "" {
		header = "*/*"
	}
	for _, pref := range ParseAccept(header) {
		if c, mt, ok := n.match(pref); ok {
			return c, mt, nil
		}
	}
	return nil, "", n.notAcceptable(SideRender, accept)
}

func (n *Negotiator) match(pref goautoneg.Accept) (codec.Codec, string, bool) {
	switch {
	case pref.Type == "*" && pref.SubType == "*":
		c, err := n.registry.ResolveByName(n.defaultName)
		if err != nil {
			return nil, "", false
		}
		return c, c.Mimetypes()[0], true
	case pref.SubType == "*":
		for _, mt := range n.registry.Mimetypes() {
			if strings.HasPrefix(codec.NormalizeMimetype(mt), pref.Type+"/") {
				c, _ := n.registry.ResolveByMimetype(mt)
				return c, mt, true
			}
		}
		return nil, "", false
	}

	bare := pref.Type + "/" + pref.SubType
	for _, candidate := range []string{withParams(bare, pref.Params), bare} {
		if c, err := n.registry.ResolveByMimetype(candidate); err == nil {
			return c, declared(c, candidate), true
		}
	}
	for _, mt := range n.registry.Mimetypes() {
		if mediaType(mt) == bare {
			c, _ := n.registry.ResolveByMimetype(mt)
			return c, mt, true
		}
	}
	return nil, "", false
}

// ParseAccept splits an Accept header into preferences ordered by
// descending quality. Equal qualities keep the order of the header, and
// entries with zero quality are dropped.
func ParseAccept(header string) []goautoneg.Accept {
	var prefs []goautoneg.Accept
	for _, part := range strings.Split(header, ",") {
		for _, pref := range goautoneg.ParseAccept(part) {
			if pref.Q <= 0 {
				continue
			}
			pref.Type = strings.ToLower(pref.Type)
			pref.SubType = strings.ToLower(pref.SubType)
			prefs = append(prefs, pref)
		}
	}
	sort.SliceStable(prefs, func(i, j int) bool { return prefs[i].Q > prefs[j].Q })
	return prefs
}

func withParams(bare string, params map[string]string) string {
	if len(params) == 0 {
		return bare
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{bare}
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "; ")
}

// declared returns the mimetype of c as registered that matches lookup.
func declared(c codec.Codec, lookup string) string {
	key := codec.NormalizeMimetype(lookup)
	for _, mt := range c.Mimetypes() {
		if codec.NormalizeMimetype(mt) == key {
			return mt
		}
	}
	return lookup
}

func mediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
