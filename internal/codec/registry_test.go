package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
)

type stubCandidate struct {
	name      string
	mimetypes []string
}

func (s stubCandidate) Name() string        { return s.name }
func (s stubCandidate) Mimetypes() []string { return s.mimetypes }

type parseOnly struct{ stubCandidate }

func (parseOnly) Parse(context.Context, []byte, ParseOptions) (jsonld.Document, error) {
	return nil, nil
}

type stubCodec struct{ stubCandidate }

func (stubCodec) Parse(_ context.Context, data []byte, _ ParseOptions) (jsonld.Document, error) {
	return string(data), nil
}

func (s stubCodec) Render(context.Context, jsonld.Document, RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func newStub(name string, mimetypes ...string) stubCodec {
	return stubCodec{stubCandidate{name: name, mimetypes: mimetypes}}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		missing   []string
	}{
		{"complete", newStub("jsonld", "application/ld+json"), nil},
		{"no render", parseOnly{stubCandidate{"half", []string{"text/half"}}}, []string{"render"}},
		{"metadata only", stubCandidate{"bare", []string{"text/bare"}}, []string{"parse", "render"}},
		{"no name", newStub("", "text/x"), []string{"name"}},
		{"no mimetypes", newStub("empty"), []string{"mimetypes"}},
		{"blank mimetype", newStub("blank", " "), []string{"mimetypes"}},
		{"nil", nil, []string{"name", "mimetypes", "parse", "render"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Check(test.candidate)
			assert.Equal(t, test.missing, result.Missing)
			assert.Equal(t, len(test.missing) == 0, result.OK())
		})
	}
	assert.Equal(t, "half: missing render", Check(parseOnly{stubCandidate{"half", []string{"text/half"}}}).String())
}

func TestNormalizeMimetype(t *testing.T) {
	assert.Equal(t, "text/turtle", NormalizeMimetype(" Text/Turtle "))
	assert.Equal(t, "text/turtle; charset=utf-8", NormalizeMimetype("text/turtle;charset=UTF-8"))
	assert.Equal(t, "text/html; charset=utf-8", NormalizeMimetype("text/html ; charset = UTF-8"))
	assert.Equal(t, "", NormalizeMimetype(""))
}

func TestDiscoverSkipsInvalidCandidates(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(WithLogger(zap.New(core)))

	registered := r.Discover([]Candidate{
		newStub("jsonld", "application/ld+json"),
		parseOnly{stubCandidate{"broken", []string{"text/broken"}}},
		newStub("turtle", "text/turtle"),
	})

	assert.Equal(t, []Descriptor{
		{Name: "jsonld", Mimetypes: []string{"application/ld+json"}},
		{Name: "turtle", Mimetypes: []string{"text/turtle"}},
	}, registered)
	assert.Equal(t, []string{"jsonld", "turtle"}, r.Names())
	assert.Equal(t, 1, logs.FilterMessage("Codec candidate rejected").Len())

	_, err := r.ResolveByMimetype("text/broken")
	assert.ErrorIs(t, err, errs.ErrCodecNotFound)
}

func TestDiscoverFirstRegistrationWins(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(WithLogger(zap.New(core)))

	r.Discover([]Candidate{
		newStub("turtle", "text/turtle"),
		newStub("turtle", "text/turtle", "application/x-turtle"),
	})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"text/turtle"}, r.Mimetypes())
	_, err := r.ResolveByMimetype("application/x-turtle")
	assert.ErrorIs(t, err, errs.ErrCodecNotFound, "mimetypes of a dropped duplicate stay unroutable")
	assert.Equal(t, 1, logs.FilterMessage("Codec registration skipped").Len())
}

func TestDiscoverEmpty(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Discover(nil))
	assert.Empty(t, r.Mimetypes())
	assert.Equal(t, 0, r.Len())
}

func TestDiscoverNameFilter(t *testing.T) {
	r := NewRegistry(WithNameFilter("*triples"))
	r.Discover([]Candidate{
		newStub("ntriples", "application/n-triples"),
		newStub("turtle", "text/turtle"),
	})
	assert.Equal(t, []string{"ntriples"}, r.Names())
}

func TestRegisterErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("jsonld", "application/ld+json")))

	err := r.Register(newStub("jsonld", "application/json"))
	assert.ErrorIs(t, err, errs.ErrRegistryConflict)
	assert.True(t, errs.IsInvalid(err))

	err = r.Register(stubCandidate{"meta", []string{"text/meta"}})
	assert.ErrorIs(t, err, errs.ErrInvalidCodec)

	r.Freeze()
	assert.True(t, r.Frozen())
	err = r.Register(newStub("turtle", "text/turtle"))
	assert.ErrorIs(t, err, errs.ErrRegistryFrozen)
}

func TestSharedMimetypeStaysWithFirstOwner(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(WithLogger(zap.New(core)))
	require.NoError(t, r.Register(newStub("jsonld", "application/ld+json", "application/json")))
	require.NoError(t, r.Register(newStub("json", "application/json")))

	c, err := r.ResolveByMimetype("application/json")
	require.NoError(t, err)
	assert.Equal(t, "jsonld", c.Name())
	assert.Equal(t, []string{"application/ld+json", "application/json"}, r.Mimetypes())
	assert.Equal(t, 1, logs.FilterMessage("Mimetype already routed to another codec").Len())
}

func TestResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("turtle", "text/turtle", "text/turtle; charset=utf-8")))

	c, err := r.ResolveByName("turtle")
	require.NoError(t, err)
	assert.Equal(t, "turtle", c.Name())

	c, err = r.ResolveByMimetype("TEXT/TURTLE;charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "turtle", c.Name())

	_, err = r.ResolveByName("rdfxml")
	assert.ErrorIs(t, err, errs.ErrCodecNotFound)

	assert.Equal(t, []Descriptor{{Name: "turtle", Mimetypes: []string{"text/turtle", "text/turtle; charset=utf-8"}}}, r.Codecs())
}

func TestRenderOptionsPretty(t *testing.T) {
	assert.True(t, RenderOptions{}.Pretty())
	off := false
	assert.False(t, RenderOptions{Prettyprint: &off}.Pretty())
}
