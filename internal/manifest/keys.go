package manifest

import (
	"path"
	"regexp"
	"strings"
)

// fileType returns the extension used when keying file. Extensions matched
// by transform are keyed together with the one before them, so "a.js.map"
// has type "js.map" rather than "map".
func fileType(file string, transform *regexp.Regexp) string {
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	split := strings.Split(path.Base(file), ".")
	ext := split[len(split)-1]
	if transform != nil && len(split) > 2 && transform.MatchString(ext) {
		return split[len(split)-2] + "." + ext
	}
	return ext
}

// lastSegment returns the final path segment of an asset name.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// chunkKey names a file owned by a chunk called name.
func chunkKey(name, file string, transform *regexp.Regexp) string {
	return name + "." + fileType(file, transform)
}

// moduleKey names a module asset after its source request, keeping the
// directory the asset was emitted into.
func moduleKey(assetName, request string) string {
	base := path.Base(strings.ReplaceAll(request, "\\", "/"))
	dir := path.Dir(assetName)
	if dir == "." {
		return base
	}
	return path.Join(dir, base)
}

// normalizeKey applies basePath and strips the content hash.
func normalizeKey(name, basePath string, hash *regexp.Regexp) string {
	if basePath != "" {
		name = basePath + name
	}
	if hash != nil {
		name = hash.ReplaceAllString(name, "")
	}
	return name
}
