package esbuild

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"

	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
)

// Compilation is one finished esbuild pass seen through its metafile.
type Compilation struct {
	id         string
	outputPath string
	publicPath string
	chunks     []manifest.Chunk
	assets     []manifest.Asset
	entries    manifest.Entrypoints

	// moduleAssets maps assets copied from a single source file, such as
	// file loader outputs, to that file
	moduleAssets map[string]string
}

var _ manifest.Compilation = (*Compilation)(nil)

func (c *Compilation) ID() string { return c.id }
func (c *Compilation) OutputPath() string { return c.outputPath }
func (c *Compilation) PublicPath() string { return c.publicPath }
func (c *Compilation) Chunks() []manifest.Chunk { return c.chunks }
func (c *Compilation) Assets() []manifest.Asset { return c.assets }
func (c *Compilation) Entrypoints() manifest.Entrypoints { return c.entries }

// ModuleAssets returns the assets emitted from a single source file, keyed
// by asset name.
func (c *Compilation) ModuleAssets() map[string]string { return c.moduleAssets }

// NewCompilation reduces meta into a compilation. opts must be the options
// the build ran with; they locate the output directory and name entries.
//
// Entry point outputs become named initial chunks together with their CSS
// bundle. Other JS outputs are code split chunks. Source maps are auxiliary
// files of the output they map. Everything else is a plain asset.
func NewCompilation(meta *Metafile, opts api.BuildOptions) (*Compilation, error) {
	workDir := opts.AbsWorkingDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		workDir = wd
	}

	outDir := opts.Outdir
	if outDir == "" && opts.Outfile != "" {
		outDir = filepath.Dir(opts.Outfile)
	}
	if outDir == "" {
		outDir = workDir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(workDir, outDir)
	}

	c := &Compilation{
		id:           uuid.NewString(),
		outputPath:   outDir,
		publicPath:   publicPath(opts.PublicPath),
		entries:      make(manifest.Entrypoints),
		moduleAssets: make(map[string]string),
	}

	names := entryNames(opts, workDir)

	keys := make([]string, 0, len(meta.Outputs))
	bundles := make(map[string]bool)
	for key, out := range meta.Outputs {
		keys = append(keys, key)
		if out.CSSBundle != "" {
			bundles[out.CSSBundle] = true
		}
	}
	sort.Strings(keys)

	rel := func(key string) (string, error) {
		p := filepath.FromSlash(key)
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		r, err := filepath.Rel(outDir, p)
		if err != nil {
			return "", fmt.Errorf("output %s is outside %s: %w", key, outDir, err)
		}
		return filepath.ToSlash(r), nil
	}

	owner := make(map[string]int)
	var maps, plain []string

	for _, key := range keys {
		out := meta.Outputs[key]
		name, err := rel(key)
		if err != nil {
			return nil, err
		}

		switch ext := path.Ext(name); {
		case ext == ".map":
			maps = append(maps, name)
		case bundles[key]:
			// listed with the entry that imports it
			continue
		case out.EntryPoint != "":
			entry := names[normalizeInput(out.EntryPoint, workDir)]
			if entry == "" {
				entry = stem(out.EntryPoint)
			}
			ch := manifest.Chunk{ID: name, Name: entry, Files: []string{name}, Initial: true}
			if out.CSSBundle != "" {
				bundle, err := rel(out.CSSBundle)
				if err != nil {
					return nil, err
				}
				ch.Files = append(ch.Files, bundle)
			}
			c.addChunk(ch, owner)
		case ext == ".js" || ext == ".mjs" || ext == ".cjs":
			c.addChunk(manifest.Chunk{ID: name, Files: []string{name}}, owner)
		default:
			plain = append(plain, name)
			if len(out.Inputs) == 1 {
				for input := range out.Inputs {
					c.moduleAssets[name] = input
				}
			}
		}
	}

	var auxAssets []string
	for _, name := range maps {
		i, ok := owner[strings.TrimSuffix(name, ".map")]
		if !ok {
			plain = append(plain, name)
			continue
		}
		c.chunks[i].AuxiliaryFiles = append(c.chunks[i].AuxiliaryFiles, name)
		owner[name] = i
		auxAssets = append(auxAssets, name)
	}

	for _, ch := range c.chunks {
		for _, f := range ch.Files {
			c.assets = append(c.assets, manifest.Asset{Name: f, Chunks: []string{ch.ID}})
		}
		if ch.Name != "" && ch.Initial {
			files := append(append([]string(nil), ch.Files...), ch.AuxiliaryFiles...)
			c.entries[ch.Name] = append(c.entries[ch.Name], files...)
		}
	}
	for _, name := range auxAssets {
		c.assets = append(c.assets, manifest.Asset{Name: name, Chunks: []string{c.chunks[owner[name]].ID}})
	}
	for _, name := range plain {
		c.assets = append(c.assets, manifest.Asset{Name: name})
	}

	return c, nil
}

func (c *Compilation) addChunk(ch manifest.Chunk, owner map[string]int) {
	c.chunks = append(c.chunks, ch)
	for _, f := range ch.Files {
		owner[f] = len(c.chunks) - 1
	}
}

// entryNames maps each entry input, relative to workDir, to its entry name.
func entryNames(opts api.BuildOptions, workDir string) map[string]string {
	names := make(map[string]string)
	for _, ep := range opts.EntryPoints {
		names[normalizeInput(ep, workDir)] = stem(ep)
	}
	for _, ep := range opts.EntryPointsAdvanced {
		name := ep.OutputPath
		if name == "" {
			name = stem(ep.InputPath)
		}
		names[normalizeInput(ep.InputPath, workDir)] = name
	}
	return names
}

func normalizeInput(p, workDir string) string {
	if strings.Contains(p, ":") && !filepath.IsAbs(p) && filepath.VolumeName(p) == "" {
		// namespaced path such as "virtual:config"
		return p
	}
	fp := filepath.FromSlash(p)
	if !filepath.IsAbs(fp) {
		fp = filepath.Join(workDir, fp)
	}
	if r, err := filepath.Rel(workDir, fp); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(fp)
}

// stem returns the base name of p without its extension.
func stem(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

func publicPath(p string) string {
	if p != "" && !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}
