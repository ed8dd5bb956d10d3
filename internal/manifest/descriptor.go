package manifest

// ChunkRef identifies the build unit that owns a file.
type ChunkRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// FileDescriptor describes one emitted output file.
type FileDescriptor struct {
	// Name is the manifest key after normalization
	Name string `json:"name"`
	// Path is the public path the file is served at
	Path string `json:"path"`
	// Chunk is nil for files that are not owned by a chunk
	Chunk *ChunkRef `json:"chunk,omitempty"`

	IsInitial     bool `json:"isInitial"`
	IsChunkAsset  bool `json:"isChunk"`
	IsModuleAsset bool `json:"isModuleAsset"`
	IsAsset       bool `json:"isAsset"`
}

// Manifest is the final mapping produced by a Generator. The default
// generator stores a string per key, or a []string when several files share
// a key.
type Manifest map[string]interface{}

// Clone returns a deep copy of m. Nested maps and slices produced by JSON or
// YAML decoding are copied as well so a pass never mutates the configured seed.
func (m Manifest) Clone() Manifest {
	if m == nil {
		return Manifest{}
	}
	out := make(Manifest, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Manifest:
		return t.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Manifest(t).Clone())
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
