package jsonld

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripBlankGraphLabels(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"placeholder dropped",
			"<http://a/s> <http://a/p> <http://a/o> _:g0 .",
			"<http://a/s> <http://a/p> <http://a/o> .",
		},
		{
			"triple kept",
			"<http://a/s> <http://a/p> _:b1 .",
			"<http://a/s> <http://a/p> _:b1 .",
		},
		{
			"named graph kept",
			"<http://a/s> <http://a/p> <http://a/o> <http://a/g> .",
			"<http://a/s> <http://a/p> <http://a/o> <http://a/g> .",
		},
		{
			"short line kept",
			"<http://a/s> <http://a/p>",
			"<http://a/s> <http://a/p>",
		},
		{
			"literal with blank label text kept",
			"<http://a/s> <http://a/p> \"see _:b0 here\" .",
			"<http://a/s> <http://a/p> \"see _:b0 here\" .",
		},
		{
			"literal spacing kept",
			"<http://a/s> <http://a/p> \"a _:b  c\" .",
			"<http://a/s> <http://a/p> \"a _:b  c\" .",
		},
		{
			"escaped quote in literal",
			"<http://a/s> <http://a/p> \"say \\\" _:x\"@en _:g .",
			"<http://a/s> <http://a/p> \"say \\\" _:x\"@en .",
		},
		{
			"typed literal then placeholder",
			"<http://a/s> <http://a/p> \"1\"^^<http://www.w3.org/2001/XMLSchema#integer> _:g .",
			"<http://a/s> <http://a/p> \"1\"^^<http://www.w3.org/2001/XMLSchema#integer> .",
		},
		{
			"multiple lines",
			"_:s <http://a/p> \"x\" _:g .\n\n<http://a/s> <http://a/p> \"y\" .\n",
			"_:s <http://a/p> \"x\" .\n\n<http://a/s> <http://a/p> \"y\" .\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, StripBlankGraphLabels(test.input))
		})
	}
}
