package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proxy = "http://local/proxy/"

func TestEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://example.org/a", "http%3A//example.org/a"},
		{"http://example.org/a b?x=1&y=2#frag", "http%3A//example.org/a%20b%3Fx%3D1%26y%3D2%23frag"},
		{"urn:uuid:1234-abcd_x.y~z", "urn%3Auuid%3A1234-abcd_x.y~z"},
		{"http://example.org/café", "http%3A//example.org/caf%C3%A9"},
		{"", ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, Encode(test.in), test.in)
	}
}

func TestRewriteNestedDocument(t *testing.T) {
	doc := []interface{}{
		map[string]interface{}{
			"@id":   "http://example.org/anno1",
			"@type": []interface{}{"http://www.w3.org/ns/oa#Annotation"},
			"http://www.w3.org/ns/oa#hasTarget": []interface{}{
				map[string]interface{}{"@id": "http://example.org/page"},
			},
			"http://www.w3.org/ns/oa#exact": []interface{}{
				map[string]interface{}{"@value": "http://example.org/not-an-id"},
			},
		},
		"scalar",
		42.0,
	}

	out := Rewrite(doc, proxy).([]interface{})
	node := out[0].(map[string]interface{})
	assert.Equal(t, proxy+"http%3A//example.org/anno1", node["@id"])
	assert.Equal(t, []interface{}{"http://www.w3.org/ns/oa#Annotation"}, node["@type"])

	target := node["http://www.w3.org/ns/oa#hasTarget"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, proxy+"http%3A//example.org/page", target["@id"])

	exact := node["http://www.w3.org/ns/oa#exact"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "http://example.org/not-an-id", exact["@value"])
	assert.Equal(t, "scalar", out[1])
	assert.Equal(t, 42.0, out[2])
}

func TestRewriteSkipsNonStringIdentifiers(t *testing.T) {
	doc := map[string]interface{}{"@id": map[string]interface{}{"@id": "http://example.org/inner"}}
	out := Rewrite(doc, proxy).(map[string]interface{})
	inner := out["@id"].(map[string]interface{})
	assert.Equal(t, "http://example.org/inner", inner["@id"], "recursion never enters an @id value")
}

func TestRewriteScalarsPassThrough(t *testing.T) {
	assert.Equal(t, "text", Rewrite("text", proxy))
	assert.Nil(t, Rewrite(nil, proxy))
	assert.Equal(t, true, Rewrite(true, proxy))
}

func TestRewriteIsNotIdempotent(t *testing.T) {
	once := func() map[string]interface{} {
		return map[string]interface{}{"@id": "http://example.org/a"}
	}
	single := Rewrite(once(), proxy).(map[string]interface{})
	double := Rewrite(Rewrite(once(), proxy), proxy).(map[string]interface{})
	assert.NotEqual(t, single["@id"], double["@id"])
	assert.Equal(t, proxy+Encode(proxy+"http%3A//example.org/a"), double["@id"])
}

func TestOnceAllowsSinglePass(t *testing.T) {
	var guard Once
	doc := map[string]interface{}{"@id": "http://example.org/a"}

	out, err := guard.Rewrite(doc, proxy)
	require.NoError(t, err)
	assert.True(t, guard.Done())
	first := out.(map[string]interface{})["@id"]

	out, err = guard.Rewrite(out, proxy)
	assert.ErrorIs(t, err, ErrAlreadyRewritten)
	assert.Equal(t, first, out.(map[string]interface{})["@id"])
}
