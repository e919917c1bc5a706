package rdf

import "fmt"

// blankNodeGenerator hands out document-scoped blank node IDs.
type blankNodeGenerator struct {
	counter int
}

func newBlankNodeGenerator() *blankNodeGenerator {
	return &blankNodeGenerator{}
}

// next generates the next blank node ID ("b1", "b2", ...).
func (g *blankNodeGenerator) next() BlankNode {
	g.counter++
	return BlankNode{ID: fmt.Sprintf("b%d", g.counter)}
}
