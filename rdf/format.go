package rdf

import "strings"

// Format identifies RDF serialization formats.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatTriG     Format = "trig"
	FormatN3       Format = "n3"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatRDFXML   Format = "rdfxml"
	FormatTriX     Format = "trix"
)

// ParseFormat normalizes a format string.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "turtle", "ttl":
		return FormatTurtle, true
	case "trig":
		return FormatTriG, true
	case "n3", "notation3":
		return FormatN3, true
	case "ntriples", "nt":
		return FormatNTriples, true
	case "nquads", "nq":
		return FormatNQuads, true
	case "rdfxml", "rdf", "xml":
		return FormatRDFXML, true
	case "trix":
		return FormatTriX, true
	default:
		return "", false
	}
}

// IsQuadFormat reports whether the format can carry graph names.
func (f Format) IsQuadFormat() bool {
	switch f {
	case FormatNQuads, FormatTriG, FormatTriX:
		return true
	default:
		return false
	}
}
