package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Result is the output of one Builder pass.
type Result struct {
	// Files are the descriptors in the order they were generated
	Files    []FileDescriptor
	Manifest Manifest
	// Keys is the order manifest keys are written in when a Sorter is set.
	// nil leaves the order to the serializer.
	Keys []string
}

// Builder reduces a compilation into a manifest.
type Builder struct {
	opts    Options
	tracker *Tracker
	ledger  *Ledger
}

// NewBuilder creates a builder. tracker and ledger may be nil.
func NewBuilder(opts Options, tracker *Tracker, ledger *Ledger) *Builder {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Builder{
		opts:    opts.WithDefaults(),
		tracker: tracker,
		ledger:  ledger,
	}
}

// candidate is a descriptor still carrying the raw asset name.
type candidate struct {
	asset string
	desc  FileDescriptor
}

type collection struct {
	items []candidate
	index map[string]int
}

func (c *collection) add(item candidate) {
	c.index[item.asset] = len(c.items)
	c.items = append(c.items, item)
}

func (c *collection) lookup(asset string) (*candidate, bool) {
	i, ok := c.index[asset]
	if !ok {
		return nil, false
	}
	return &c.items[i], true
}

// Build runs collect, classify, normalize, filter, map, sort and generate
// against c. seed is handed to the generator as is; callers own copying it.
func (b *Builder) Build(c Compilation, seed Manifest) (*Result, error) {
	if seed == nil {
		seed = Manifest{}
	}

	publicPath := c.PublicPath()
	if b.opts.PublicPath != nil {
		publicPath = *b.opts.PublicPath
	}

	files := b.normalize(b.collect(c), publicPath)

	files, err := b.transform(files)
	if err != nil {
		return nil, err
	}

	var seedKeys []string
	if b.opts.Sort != nil {
		seedKeys = sortedKeys(seed)
	}

	gen := b.opts.Generate
	if gen == nil {
		gen = DefaultGenerator{}
	}
	m, err := gen.Generate(seed, files, c.Entrypoints())
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if m == nil {
		m = Manifest{}
	}

	res := &Result{Files: files, Manifest: m}
	if b.opts.Sort != nil {
		names := make([]string, 0, len(seedKeys)+len(files))
		names = append(names, seedKeys...)
		for _, f := range files {
			names = append(names, f.Name)
		}
		res.Keys = orderKeys(names, m)
	}
	return res, nil
}

// orderKeys returns the keys of m in the order they first appear in names,
// followed by the remaining keys of m sorted.
func orderKeys(names []string, m Manifest) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range names {
		if _, ok := m[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func sortedKeys(m Manifest) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Builder) collect(c Compilation) []candidate {
	owners := entryOwners(c.Entrypoints())

	files := &collection{index: make(map[string]int)}
	aux := &collection{index: make(map[string]int)}

	for _, ch := range c.Chunks() {
		ref := &ChunkRef{ID: ch.ID, Name: ch.Name}

		for _, a := range ch.AuxiliaryFiles {
			if _, seen := aux.lookup(a); seen {
				continue
			}
			aux.add(candidate{asset: a, desc: FileDescriptor{
				Name:          lastSegment(a),
				IsAsset:       true,
				IsModuleAsset: true,
			}})
		}

		for _, f := range ch.Files {
			if existing, ok := files.lookup(f); ok {
				existing.desc.IsInitial = existing.desc.IsInitial || ch.Initial
				continue
			}
			files.add(candidate{asset: f, desc: FileDescriptor{
				Name:         b.chunkFileName(ch, f, owners),
				Chunk:        ref,
				IsInitial:    ch.Initial,
				IsChunkAsset: true,
				IsAsset:      true,
			}})
		}
	}

	for _, a := range c.Assets() {
		req, tracked := b.tracker.Lookup(a.Name)
		if existing, ok := files.lookup(a.Name); ok {
			existing.desc.IsModuleAsset = existing.desc.IsModuleAsset || tracked
			continue
		}

		var name string
		module := true
		switch {
		case tracked:
			name = moduleKey(a.Name, req)
		case a.SourceFilename != "":
			name = moduleKey(a.Name, a.SourceFilename)
		case len(a.Chunks) > 0:
			// owned by a chunk that did not list it; the chunk is authoritative
			continue
		default:
			name = lastSegment(a.Name)
			module = false
		}
		files.add(candidate{asset: a.Name, desc: FileDescriptor{
			Name:          name,
			IsModuleAsset: module,
			IsAsset:       true,
		}})
	}

	for _, item := range aux.items {
		if _, ok := files.lookup(item.asset); !ok {
			files.add(item)
		}
	}

	out := files.items[:0]
	for _, item := range files.items {
		if b.excluded(c, item.asset) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// excluded drops hot update files and manifests written by other emitters.
func (b *Builder) excluded(c Compilation, asset string) bool {
	if strings.Contains(asset, "hot-update") {
		return true
	}
	if b.ledger == nil {
		return false
	}
	return b.ledger.Tracked(filepath.Join(c.OutputPath(), filepath.FromSlash(asset)))
}

func (b *Builder) chunkFileName(ch Chunk, file string, owners map[string]string) string {
	tx := b.opts.TransformExtensions
	if ch.Name != "" {
		return chunkKey(ch.Name, file, tx)
	}
	if b.opts.UseEntryKeys {
		if entry, ok := owners[file]; ok {
			return chunkKey(entry, file, tx)
		}
	}
	return lastSegment(file)
}

// entryOwners maps each entry file to the first entry, by name, listing it.
func entryOwners(entries Entrypoints) map[string]string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	owners := make(map[string]string)
	for _, name := range names {
		for _, f := range entries[name] {
			if _, ok := owners[f]; !ok {
				owners[f] = name
			}
		}
	}
	return owners
}

func (b *Builder) normalize(items []candidate, publicPath string) []FileDescriptor {
	hash := b.opts.keyHashPattern()
	files := make([]FileDescriptor, 0, len(items))
	for _, item := range items {
		d := item.desc
		key := normalizeKey(d.Name, b.opts.BasePath, hash)
		if key == "" {
			key = normalizeKey(d.Name, b.opts.BasePath, nil)
		}
		d.Name = key
		d.Path = publicPath + item.asset
		files = append(files, d)
	}
	return files
}

// transform applies filter, map and sort in that order.
func (b *Builder) transform(files []FileDescriptor) ([]FileDescriptor, error) {
	if b.opts.Filter != nil {
		kept := files[:0]
		for _, f := range files {
			if b.opts.Filter.Keep(f) {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	if b.opts.Map != nil {
		for i, f := range files {
			mapped, err := b.opts.Map.Map(f)
			if err != nil {
				return nil, fmt.Errorf("map %s: %w", f.Path, err)
			}
			files[i] = mapped
		}
	}

	for _, f := range files {
		if f.Name == "" {
			return nil, fmt.Errorf("%w (path %q)", ErrEmptyName, f.Path)
		}
	}

	if b.opts.Sort != nil {
		sort.SliceStable(files, func(i, j int) bool {
			return b.opts.Sort.Compare(files[i], files[j]) < 0
		})
	}

	return files, nil
}
