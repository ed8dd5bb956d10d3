package manifest

// DefaultGenerator folds files into the seed keyed by name. The first file
// for a key stores its path; further files turn the value into a list of
// paths in file order.
type DefaultGenerator struct{}

// Generate implements Generator.
func (DefaultGenerator) Generate(seed Manifest, files []FileDescriptor, _ Entrypoints) (Manifest, error) {
	m := seed
	if m == nil {
		m = Manifest{}
	}
	for _, f := range files {
		switch cur := m[f.Name].(type) {
		case string:
			m[f.Name] = []string{cur, f.Path}
		case []string:
			m[f.Name] = append(cur, f.Path)
		case []interface{}:
			m[f.Name] = append(cur, f.Path)
		default:
			m[f.Name] = f.Path
		}
	}
	return m, nil
}

// EntrypointGenerator keys the manifest by file like DefaultGenerator and
// adds an "entrypoints" object listing the public paths of each entry's
// files.
type EntrypointGenerator struct {
	// PublicPath is prefixed to entry files
	PublicPath string
}

// Generate implements Generator.
func (g EntrypointGenerator) Generate(seed Manifest, files []FileDescriptor, entries Entrypoints) (Manifest, error) {
	m, err := DefaultGenerator{}.Generate(seed, files, entries)
	if err != nil {
		return nil, err
	}
	eps := make(map[string]interface{}, len(entries))
	for name, list := range entries {
		paths := make([]string, 0, len(list))
		for _, f := range list {
			if fileType(f, nil) == "map" {
				continue
			}
			paths = append(paths, g.PublicPath+f)
		}
		eps[name] = paths
	}
	m["entrypoints"] = eps
	return m, nil
}
