package rdf

import (
	"net/url"
	"strings"
)

// resolveIRI resolves a relative IRI against a base IRI according to RFC 3986.
func resolveIRI(baseStr, relative string) string {
	if baseStr == "" {
		return relative
	}
	relURL, err := url.Parse(relative)
	if err == nil && relURL.Scheme != "" {
		return relative
	}
	baseURL, err := url.Parse(baseStr)
	if err != nil || relURL == nil {
		return naiveJoin(baseStr, relative)
	}
	return baseURL.ResolveReference(relURL).String()
}

func naiveJoin(baseStr, relative string) string {
	if strings.HasSuffix(baseStr, "/") {
		return baseStr + relative
	}
	if lastSlash := strings.LastIndex(baseStr, "/"); lastSlash >= 0 {
		return baseStr[:lastSlash+1] + relative
	}
	return baseStr + "/" + relative
}
