package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/assetmanifest/internal/config"
)

func TestManifestTable(t *testing.T) {
	m := map[string]interface{}{
		"main.js": "/static/main-AAAA1111.js",
		"app.js":  []interface{}{"/a/app.js", "/b/app.js"},
		"entrypoints": map[string]interface{}{
			"main": []interface{}{"/static/main-AAAA1111.js", "/static/main.css"},
		},
		"version": 2,
	}

	table := manifestTable(m)
	assert.Equal(t, []string{"KEY", "PATH"}, table.Headers)
	assert.Equal(t, [][]string{
		{"app.js", "/a/app.js"},
		{"app.js", "/b/app.js"},
		{"entrypoints.main", "/static/main-AAAA1111.js"},
		{"entrypoints.main", "/static/main.css"},
		{"main.js", "/static/main-AAAA1111.js"},
		{"version", "2"},
	}, table.Rows)
}

func TestReadManifestFile(t *testing.T) {
	dir := t.TempDir()

	jsonFile := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"main.js": "/main.js"}`), 0644))
	m, err := readManifestFile(jsonFile)
	require.NoError(t, err)
	assert.Equal(t, "/main.js", m["main.js"])

	yamlFile := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("main.js: /main.js\n"), 0644))
	m, err = readManifestFile(yamlFile)
	require.NoError(t, err)
	assert.Equal(t, "/main.js", m["main.js"])

	_, err = readManifestFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/abs/out", outputPath(config.BuildConfig{Outdir: "/abs/out", WorkingDir: "/work"}))
	assert.Equal(t, "/work/dist", outputPath(config.BuildConfig{Outdir: "dist", WorkingDir: "/work"}))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "dist"), outputPath(config.BuildConfig{Outdir: "dist"}))
}

func TestNewStorage(t *testing.T) {
	store, bucket, err := newStorage(config.StorageConfig{Provider: "local"})
	require.NoError(t, err)
	assert.Nil(t, store, "the emitter writes next to the build output")
	assert.Empty(t, bucket)

	store, _, err = newStorage(config.StorageConfig{Provider: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, store)

	store, bucket, err = newStorage(config.StorageConfig{
		Provider:   "s3",
		S3Endpoint: "localhost:9000",
		S3Access:   "minioadmin",
		S3Secret:   "minioadmin",
		S3Bucket:   "assets",
	})
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Equal(t, "assets", bucket)
}

func TestBuildAndInspectCommands(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"src/main.js":  "import './main.css'\nconsole.log('main')\n",
		"src/main.css": "body { margin: 0 }\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	cfgPath := filepath.Join(dir, "assetmanifest.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
build:
  working_dir: `+dir+`
  entry_points: [src/main.js]
  public_path: /static
  entry_names: "[name]-[hash]"
manifest:
  remove_key_hash: "-[A-Z2-7]{8}"
`), 0644))

	rootCmd.SetArgs([]string{"--config", cfgPath, "--quiet", "build"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "dist", "manifest.json"))
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Regexp(t, `^/static/main-[A-Z2-7]{8}\.js$`, m["main.js"])
	assert.Regexp(t, `^/static/main-[A-Z2-7]{8}\.css$`, m["main.css"])

	rootCmd.SetArgs([]string{"--config", cfgPath, "--quiet", "inspect"})
	assert.NoError(t, rootCmd.Execute())
}
