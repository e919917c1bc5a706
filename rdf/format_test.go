package rdf

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		input  string
		want   Format
		expect bool
	}{
		{"turtle", FormatTurtle, true},
		{"ttl", FormatTurtle, true},
		{"trig", FormatTriG, true},
		{"N3", FormatN3, true},
		{"ntriples", FormatNTriples, true},
		{"nt", FormatNTriples, true},
		{"nquads", FormatNQuads, true},
		{"nq", FormatNQuads, true},
		{"rdfxml", FormatRDFXML, true},
		{"xml", FormatRDFXML, true},
		{" trix ", FormatTriX, true},
		{"jsonld", "", false},
	}
	for _, c := range cases {
		got, ok := ParseFormat(c.input)
		if ok != c.expect {
			t.Fatalf("input %q ok=%v want %v", c.input, ok, c.expect)
		}
		if got != c.want {
			t.Fatalf("input %q got %v want %v", c.input, got, c.want)
		}
	}
}

func TestIsQuadFormat(t *testing.T) {
	for _, f := range []Format{FormatNQuads, FormatTriG, FormatTriX} {
		if !f.IsQuadFormat() {
			t.Fatalf("%s should carry graph names", f)
		}
	}
	for _, f := range []Format{FormatNTriples, FormatTurtle, FormatN3, FormatRDFXML} {
		if f.IsQuadFormat() {
			t.Fatalf("%s should not carry graph names", f)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := ParseString(context.Background(), "", Format("csv"), ParseOptions{})
	if !errors.Is(err, ErrUnsupportedFormat) || Code(err) != ErrCodeUnsupportedFormat {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if _, err := SerializeString(Format("csv"), nil, SerializeOptions{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestParseHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseQuads(ctx, strings.NewReader("<http://a/s> <http://a/p> <http://a/o> ."), FormatNTriples, ParseOptions{})
	if Code(err) != ErrCodeContextCanceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestParseErrorExcerpt(t *testing.T) {
	err := wrapParseError("turtle", "ex:s ex:p ex:o .", 1, 8, errors.New("unexpected token"))
	msg := err.Error()
	for _, want := range []string{"turtle:1:8", "unexpected token", "ex:s ex:p ex:o .", "       ^"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
	if Code(nil) != "" {
		t.Fatal("nil error must have no code")
	}
}
