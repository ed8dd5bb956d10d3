package esbuild

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
)

const testMetafile = `{
  "inputs": {
    "src/main.ts": {"bytes": 120, "imports": []},
    "src/main.css": {"bytes": 40, "imports": []},
    "src/logo.png": {"bytes": 900, "imports": []}
  },
  "outputs": {
    "dist/main-AAAA1111.js": {
      "bytes": 300,
      "inputs": {"src/main.ts": {"bytesInOutput": 100}},
      "imports": [],
      "exports": [],
      "entryPoint": "src/main.ts",
      "cssBundle": "dist/main-BBBB2222.css"
    },
    "dist/main-AAAA1111.js.map": {"bytes": 500, "inputs": {}, "imports": [], "exports": []},
    "dist/main-BBBB2222.css": {
      "bytes": 40,
      "inputs": {"src/main.css": {"bytesInOutput": 40}},
      "imports": [],
      "exports": []
    },
    "dist/chunk-CCCC3333.js": {"bytes": 80, "inputs": {}, "imports": [], "exports": []},
    "dist/assets/logo-DDDD4444.png": {
      "bytes": 900,
      "inputs": {"src/logo.png": {"bytesInOutput": 900}},
      "imports": [],
      "exports": []
    }
  }
}`

func testBuildOptions() api.BuildOptions {
	return api.BuildOptions{
		AbsWorkingDir: "/work",
		Outdir:        "dist",
		PublicPath:    "/static",
		EntryPointsAdvanced: []api.EntryPoint{
			{InputPath: "./src/main.ts", OutputPath: "app"},
		},
	}
}

func TestParseMetafile(t *testing.T) {
	meta, err := ParseMetafile(testMetafile)
	require.NoError(t, err)

	assert.Len(t, meta.Outputs, 5)
	assert.Equal(t, "src/main.ts", meta.Outputs["dist/main-AAAA1111.js"].EntryPoint)
	assert.Equal(t, "dist/main-BBBB2222.css", meta.Outputs["dist/main-AAAA1111.js"].CSSBundle)

	_, err = ParseMetafile("")
	assert.Error(t, err)

	_, err = ParseMetafile("{not json")
	assert.Error(t, err)
}

func TestNewCompilation(t *testing.T) {
	meta, err := ParseMetafile(testMetafile)
	require.NoError(t, err)

	c, err := NewCompilation(meta, testBuildOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID())
	assert.Equal(t, "/work/dist", c.OutputPath())
	assert.Equal(t, "/static/", c.PublicPath())

	assert.Equal(t, []manifest.Chunk{
		{ID: "chunk-CCCC3333.js", Files: []string{"chunk-CCCC3333.js"}},
		{
			ID:             "main-AAAA1111.js",
			Name:           "app",
			Files:          []string{"main-AAAA1111.js", "main-BBBB2222.css"},
			AuxiliaryFiles: []string{"main-AAAA1111.js.map"},
			Initial:        true,
		},
	}, c.Chunks())

	assert.Equal(t, manifest.Entrypoints{
		"app": {"main-AAAA1111.js", "main-BBBB2222.css", "main-AAAA1111.js.map"},
	}, c.Entrypoints())

	assert.Equal(t, []manifest.Asset{
		{Name: "chunk-CCCC3333.js", Chunks: []string{"chunk-CCCC3333.js"}},
		{Name: "main-AAAA1111.js", Chunks: []string{"main-AAAA1111.js"}},
		{Name: "main-BBBB2222.css", Chunks: []string{"main-AAAA1111.js"}},
		{Name: "main-AAAA1111.js.map", Chunks: []string{"main-AAAA1111.js"}},
		{Name: "assets/logo-DDDD4444.png"},
	}, c.Assets())

	assert.Equal(t, map[string]string{"assets/logo-DDDD4444.png": "src/logo.png"}, c.ModuleAssets())
}

func TestNewCompilation_UniqueIDs(t *testing.T) {
	meta, err := ParseMetafile(testMetafile)
	require.NoError(t, err)

	a, err := NewCompilation(meta, testBuildOptions())
	require.NoError(t, err)
	b, err := NewCompilation(meta, testBuildOptions())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNewCompilation_EntryNameFallbacks(t *testing.T) {
	meta := &Metafile{Outputs: map[string]MetafileOutput{
		"out/index.js": {EntryPoint: "src/pages/index.tsx"},
		"out/admin.js": {EntryPoint: "src/admin.ts"},
	}}

	opts := api.BuildOptions{
		AbsWorkingDir: "/work",
		Outfile:       "out/index.js",
		EntryPoints:   []string{"src/admin.ts"},
	}
	c, err := NewCompilation(meta, opts)
	require.NoError(t, err)

	assert.Equal(t, "/work/out", c.OutputPath())
	assert.Equal(t, "", c.PublicPath())

	names := make(map[string]string)
	for _, ch := range c.Chunks() {
		names[ch.ID] = ch.Name
	}
	assert.Equal(t, map[string]string{"index.js": "index", "admin.js": "admin"}, names)
}

func TestNewCompilation_UnownedSourceMapIsPlainAsset(t *testing.T) {
	meta := &Metafile{Outputs: map[string]MetafileOutput{
		"dist/vendor.js.map": {},
	}}

	c, err := NewCompilation(meta, api.BuildOptions{AbsWorkingDir: "/work", Outdir: "dist"})
	require.NoError(t, err)

	assert.Empty(t, c.Chunks())
	assert.Equal(t, []manifest.Asset{{Name: "vendor.js.map"}}, c.Assets())
}

func TestStem(t *testing.T) {
	assert.Equal(t, "main", stem("./src/main.ts"))
	assert.Equal(t, "index.page", stem("pages/index.page.tsx"))
	assert.Equal(t, "README", stem("README"))
}
