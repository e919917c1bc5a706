package jsonld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *ContextTable {
	t.Helper()
	table, err := NewContextTable([]string{"http://example.org/ctx.jsonld"}, map[string][]byte{
		"http://example.org/ctx.jsonld": []byte(`{"@context": {"ex": "http://example.org/ns#", "name": "ex:name"}}`),
	})
	require.NoError(t, err)
	return table
}

func TestClassifyContext(t *testing.T) {
	tests := []struct {
		name  string
		node  Document
		shape ContextShape
	}{
		{"not a node", "plain", ContextAbsent},
		{"absent", map[string]interface{}{"@id": "x"}, ContextAbsent},
		{"url", map[string]interface{}{"@context": "http://example.org/ctx.jsonld"}, ContextURL},
		{"inline", map[string]interface{}{"@context": map[string]interface{}{}}, ContextInline},
		{"array", map[string]interface{}{"@context": []interface{}{"a"}}, ContextArray},
		{"null", map[string]interface{}{"@context": nil}, ContextOther},
		{"number", map[string]interface{}{"@context": 3.0}, ContextOther},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			shape, _ := ClassifyContext(test.node)
			assert.Equal(t, test.shape, shape)
		})
	}
	assert.Equal(t, "url", ContextURL.String())
	assert.Equal(t, "other", ContextOther.String())
}

func TestSubstituteKnownContexts(t *testing.T) {
	table := testTable(t)
	inner, _ := table.Context("http://example.org/ctx.jsonld")

	doc := map[string]interface{}{"@context": "http://example.org/ctx.jsonld", "name": "x"}
	out := SubstituteKnownContexts(doc, table).(map[string]interface{})
	assert.Equal(t, inner, out["@context"])
	assert.Equal(t, "x", out["name"])
	assert.Equal(t, "http://example.org/ctx.jsonld", doc["@context"], "input is not modified")

	unknown := map[string]interface{}{"@context": "http://example.org/other.jsonld"}
	assert.Equal(t, unknown, SubstituteKnownContexts(unknown, table))

	mixed := map[string]interface{}{"@context": []interface{}{
		"http://example.org/ctx.jsonld",
		map[string]interface{}{"v": "http://example.org/v#"},
		"http://example.org/other.jsonld",
	}}
	out = SubstituteKnownContexts(mixed, table).(map[string]interface{})
	items := out["@context"].([]interface{})
	require.Len(t, items, 3)
	assert.Equal(t, inner, items[0])
	assert.Equal(t, map[string]interface{}{"v": "http://example.org/v#"}, items[1])
	assert.Equal(t, "http://example.org/other.jsonld", items[2])

	list := []interface{}{doc, "scalar"}
	outList := SubstituteKnownContexts(list, table).([]interface{})
	assert.Equal(t, inner, outList[0].(map[string]interface{})["@context"])
	assert.Equal(t, "scalar", outList[1])

	inline := map[string]interface{}{"@context": map[string]interface{}{"a": "b"}}
	assert.Equal(t, inline, SubstituteKnownContexts(inline, table))
	assert.Equal(t, doc, SubstituteKnownContexts(doc, nil))
}

func TestReplaceContextObjects(t *testing.T) {
	table := testTable(t)
	inner, _ := table.Context("http://example.org/ctx.jsonld")

	doc := map[string]interface{}{"@context": inner, "name": "x"}
	out := ReplaceContextObjects(doc, table).(map[string]interface{})
	assert.Equal(t, "http://example.org/ctx.jsonld", out["@context"])
	assert.Equal(t, inner, doc["@context"], "input is not modified")

	arr := map[string]interface{}{"@context": []interface{}{inner, "http://example.org/other.jsonld"}}
	out = ReplaceContextObjects(arr, table).(map[string]interface{})
	assert.Equal(t, []interface{}{"http://example.org/ctx.jsonld", "http://example.org/other.jsonld"}, out["@context"])

	other := map[string]interface{}{"@context": map[string]interface{}{"ex": "http://example.com/"}}
	assert.Equal(t, other, ReplaceContextObjects(other, table))
}
