package config

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// BuildConfig contains the esbuild settings the CLI builds with
type BuildConfig struct {
	EntryPoints []string          `mapstructure:"entry_points"`
	Outdir      string            `mapstructure:"outdir"`
	PublicPath  string            `mapstructure:"public_path"`
	WorkingDir  string            `mapstructure:"working_dir"` // defaults to the current directory
	Bundle      bool              `mapstructure:"bundle"`
	Minify      bool              `mapstructure:"minify"`
	Splitting   bool              `mapstructure:"splitting"`
	Sourcemap   bool              `mapstructure:"sourcemap"`
	Format      string            `mapstructure:"format"`   // esm, cjs or iife
	Platform    string            `mapstructure:"platform"` // browser, node or neutral
	EntryNames  string            `mapstructure:"entry_names"`
	ChunkNames  string            `mapstructure:"chunk_names"`
	AssetNames  string            `mapstructure:"asset_names"`
	Loaders     map[string]string `mapstructure:"loaders"` // extension without the dot to loader, e.g. png: file
	Write       bool              `mapstructure:"write"`
}

var formats = map[string]api.Format{
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
	"iife": api.FormatIIFE,
}

var platforms = map[string]api.Platform{
	"browser": api.PlatformBrowser,
	"node":    api.PlatformNode,
	"neutral": api.PlatformNeutral,
}

var loaders = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"base64":  api.LoaderBase64,
	"dataurl": api.LoaderDataURL,
	"file":    api.LoaderFile,
	"copy":    api.LoaderCopy,
	"binary":  api.LoaderBinary,
	"empty":   api.LoaderEmpty,
}

// Validate validates build configuration
func (bc *BuildConfig) Validate() error {
	if bc.Outdir == "" {
		return fmt.Errorf("outdir cannot be empty")
	}
	if _, ok := formats[bc.Format]; !ok && bc.Format != "" {
		return fmt.Errorf("format must be one of: esm, cjs, iife, got: %s", bc.Format)
	}
	if _, ok := platforms[bc.Platform]; !ok && bc.Platform != "" {
		return fmt.Errorf("platform must be one of: browser, node, neutral, got: %s", bc.Platform)
	}
	if bc.Splitting && bc.Format != "" && bc.Format != "esm" {
		return fmt.Errorf("splitting requires the esm format")
	}
	for ext, name := range bc.Loaders {
		if ext == "" || strings.Contains(ext, ".") {
			return fmt.Errorf("loader extension %q must be given without dots", ext)
		}
		if _, ok := loaders[name]; !ok {
			return fmt.Errorf("unknown loader %q for %s", name, ext)
		}
	}
	return nil
}

// EsbuildOptions converts the configuration into esbuild build options.
// Validate must have succeeded.
func (bc *BuildConfig) EsbuildOptions() api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:       bc.EntryPoints,
		Outdir:            bc.Outdir,
		PublicPath:        bc.PublicPath,
		AbsWorkingDir:     bc.WorkingDir,
		Bundle:            bc.Bundle,
		MinifyWhitespace:  bc.Minify,
		MinifyIdentifiers: bc.Minify,
		MinifySyntax:      bc.Minify,
		Splitting:         bc.Splitting,
		Format:            formats[bc.Format],
		Platform:          platforms[bc.Platform],
		EntryNames:        bc.EntryNames,
		ChunkNames:        bc.ChunkNames,
		AssetNames:        bc.AssetNames,
		Write:             bc.Write,
		Metafile:          true,
		LogLevel:          api.LogLevelWarning,
	}
	if bc.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if len(bc.Loaders) > 0 {
		opts.Loader = make(map[string]api.Loader, len(bc.Loaders))
		for ext, name := range bc.Loaders {
			opts.Loader["."+ext] = loaders[name]
		}
	}
	return opts
}

// publicPath returns the build public path the way manifest paths use it.
func (bc *BuildConfig) publicPath() string {
	if bc.PublicPath != "" && !strings.HasSuffix(bc.PublicPath, "/") {
		return bc.PublicPath + "/"
	}
	return bc.PublicPath
}
