package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSerializer(t *testing.T) {
	m := Manifest{
		"main.js":   "/main.js?a=1&b=2",
		"app.js":    []string{"/a/app.js", "/b/app.js"},
		"style.css": "/style.css",
	}

	out, err := JSONSerializer{}.Serialize(m)
	require.NoError(t, err)

	expected := "{\n" +
		"  \"app.js\": [\n" +
		"    \"/a/app.js\",\n" +
		"    \"/b/app.js\"\n" +
		"  ],\n" +
		"  \"main.js\": \"/main.js?a=1&b=2\",\n" +
		"  \"style.css\": \"/style.css\"\n" +
		"}"
	assert.Equal(t, expected, string(out))
}

func TestJSONSerializer_CustomIndent(t *testing.T) {
	out, err := JSONSerializer{Indent: "\t"}.Serialize(Manifest{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"a\": \"b\"\n}", string(out))
}

func TestJSONSerializer_Nil(t *testing.T) {
	out, err := JSONSerializer{}.Serialize(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestJSONSerializer_Unsupported(t *testing.T) {
	_, err := JSONSerializer{}.Serialize(Manifest{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestYAMLSerializer(t *testing.T) {
	out, err := YAMLSerializer{}.Serialize(Manifest{
		"main.js": "/main.js",
		"app.js":  []string{"/a/app.js", "/b/app.js"},
	})
	require.NoError(t, err)

	assert.Equal(t, "app.js:\n  - /a/app.js\n  - /b/app.js\nmain.js: /main.js\n", string(out))
}

func TestJSONSerializer_Ordered(t *testing.T) {
	m := Manifest{
		"main.js": "/main.js?a=1&b=2",
		"app.js":  []string{"/a/app.js", "/b/app.js"},
	}

	out, err := JSONSerializer{}.SerializeOrdered(m, []string{"main.js", "gone.js", "app.js"})
	require.NoError(t, err)

	expected := "{\n" +
		"  \"main.js\": \"/main.js?a=1&b=2\",\n" +
		"  \"app.js\": [\n" +
		"    \"/a/app.js\",\n" +
		"    \"/b/app.js\"\n" +
		"  ]\n" +
		"}"
	assert.Equal(t, expected, string(out))

	out, err = JSONSerializer{}.SerializeOrdered(m, []string{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestYAMLSerializer_Ordered(t *testing.T) {
	out, err := YAMLSerializer{}.SerializeOrdered(Manifest{
		"main.js": "/main.js",
		"app.js":  []string{"/a/app.js", "/b/app.js"},
	}, []string{"main.js", "app.js"})
	require.NoError(t, err)

	assert.Equal(t, "main.js: /main.js\napp.js:\n  - /a/app.js\n  - /b/app.js\n", string(out))
}

func TestSerialize_KeyOrder(t *testing.T) {
	m := Manifest{"a.js": "/a.js", "b.js": "/b.js"}

	out, err := serialize(JSONSerializer{}, m, []string{"b.js", "a.js"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b.js\": \"/b.js\",\n  \"a.js\": \"/a.js\"\n}", string(out))

	out, err = serialize(JSONSerializer{}, m, nil)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a.js\": \"/a.js\",\n  \"b.js\": \"/b.js\"\n}", string(out), "sorted without an order")

	plain := SerializeFunc(func(Manifest) ([]byte, error) { return []byte("plain"), nil })
	out, err = serialize(plain, m, []string{"b.js", "a.js"})
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))
}

func TestSerializeFunc(t *testing.T) {
	boom := errors.New("boom")
	_, err := SerializeFunc(func(Manifest) ([]byte, error) { return nil, boom }).Serialize(Manifest{})
	assert.ErrorIs(t, err, boom)
}

func TestManifest_Clone(t *testing.T) {
	orig := Manifest{
		"list":   []string{"a"},
		"nested": map[string]interface{}{"x": []interface{}{"y"}},
	}

	c := orig.Clone()
	c["list"] = append(c["list"].([]string), "b")
	c["nested"].(map[string]interface{})["x"] = "changed"

	assert.Equal(t, []string{"a"}, orig["list"])
	assert.Equal(t, []interface{}{"y"}, orig["nested"].(map[string]interface{})["x"])
	assert.NotNil(t, Manifest(nil).Clone())
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.WithDefaults()

	assert.Equal(t, DefaultFileName, o.FileName)
	assert.NotNil(t, o.Serialize)
	assert.Equal(t, DefaultRemoveKeyHash, o.keyHashPattern())
	assert.NoError(t, o.Validate())

	o.DisableKeyHashRemoval = true
	assert.Nil(t, o.keyHashPattern())
}
