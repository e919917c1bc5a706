// Package jsonld is the canonicalization layer of the transcoder. It wraps
// the JSON-LD processing algorithms of json-gold (expand, compact, flatten,
// toRDF and fromRDF) with a fixed table of well-known contexts, so that
// documents referring to those contexts are processed without a network
// fetch, and bridges the expanded document form to the graph formats of
// the rdf package through N-Quads.
package jsonld
