package manifest

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrEmptyName is returned when a descriptor reaches generation without a key
	ErrEmptyName = errors.New("manifest: file descriptor has an empty name")
	// ErrInvalidFileName is returned for a manifest file name that is empty
	// or escapes the output directory
	ErrInvalidFileName = errors.New("manifest: invalid manifest file name")
	// ErrAborted is returned by Emit when the pass was cancelled before the
	// manifest could be persisted
	ErrAborted = errors.New("manifest: pass aborted")
	// ErrMergeWithoutWrite is returned for Merge without WriteToFileEmit.
	// Only persisted writes warm the ledger, so such a merge never happens.
	ErrMergeWithoutWrite = errors.New("manifest: merge requires writing the manifest")
)

// DefaultFileName is the manifest file written when Options.FileName is empty.
const DefaultFileName = "manifest.json"

var (
	// DefaultRemoveKeyHash strips 16 to 32 character hex content hashes.
	DefaultRemoveKeyHash = regexp.MustCompile(`(?i)([a-f0-9]{16,32}\.?)`)
	// DefaultTransformExtensions names extensions that are keyed together
	// with the extension before them.
	DefaultTransformExtensions = regexp.MustCompile(`(?i)^(gz|map)$`)
)

// Filter decides whether a file is kept in the manifest.
type Filter interface {
	Keep(file FileDescriptor) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(file FileDescriptor) bool

// Keep calls f(file).
func (f FilterFunc) Keep(file FileDescriptor) bool { return f(file) }

// Mapper replaces a file with its mapped counterpart.
type Mapper interface {
	Map(file FileDescriptor) (FileDescriptor, error)
}

// MapFunc adapts a function to Mapper.
type MapFunc func(file FileDescriptor) (FileDescriptor, error)

// Map calls f(file).
func (f MapFunc) Map(file FileDescriptor) (FileDescriptor, error) { return f(file) }

// Sorter orders files. Compare returns a negative number when a sorts before
// b, zero when they are equal and a positive number otherwise.
type Sorter interface {
	Compare(a, b FileDescriptor) int
}

// SortFunc adapts a function to Sorter.
type SortFunc func(a, b FileDescriptor) int

// Compare calls f(a, b).
func (f SortFunc) Compare(a, b FileDescriptor) int { return f(a, b) }

// Generator produces the manifest from a seed, the final files and the
// compilation entrypoints.
type Generator interface {
	Generate(seed Manifest, files []FileDescriptor, entries Entrypoints) (Manifest, error)
}

// GenerateFunc adapts a function to Generator.
type GenerateFunc func(seed Manifest, files []FileDescriptor, entries Entrypoints) (Manifest, error)

// Generate calls f(seed, files, entries).
func (f GenerateFunc) Generate(seed Manifest, files []FileDescriptor, entries Entrypoints) (Manifest, error) {
	return f(seed, files, entries)
}

// Serializer turns a manifest into the bytes that are emitted.
type Serializer interface {
	Serialize(m Manifest) ([]byte, error)
}

// SerializeFunc adapts a function to Serializer.
type SerializeFunc func(m Manifest) ([]byte, error)

// Serialize calls f(m).
func (f SerializeFunc) Serialize(m Manifest) ([]byte, error) { return f(m) }

// Options configures manifest assembly and emission.
type Options struct {
	// AssetHookStage orders the plugin relative to other observers. Negative
	// stages run before them, others after.
	AssetHookStage int
	// BasePath is prefixed to every key
	BasePath string
	// PublicPath is prefixed to every path. nil falls back to the host's
	// public path.
	PublicPath *string
	// FileName is the manifest location relative to the output directory
	FileName string

	Filter    Filter
	Map       Mapper
	Sort      Sorter
	Generate  Generator
	Serialize Serializer

	// Seed is copied at the start of every pass and never mutated
	Seed Manifest

	RemoveKeyHash         *regexp.Regexp
	DisableKeyHashRemoval bool
	TransformExtensions   *regexp.Regexp

	// UseEntryKeys keys files of unnamed chunks by their owning entry
	UseEntryKeys bool
	// UseLegacyEmit emits once the host hands over the finished build instead
	// of from inside the build lifecycle
	UseLegacyEmit bool
	// WriteToFileEmit persists the manifest through the storage backend
	WriteToFileEmit bool
	// Merge overlays each warm pass onto the previous pass's manifest, so
	// keys dropped by an incremental rebuild survive. Without it every pass,
	// including the second write in a process, starts from a fresh copy of
	// Seed. Requires WriteToFileEmit.
	Merge bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		AssetHookStage:      math.MaxInt32,
		FileName:            DefaultFileName,
		Serialize:           JSONSerializer{},
		RemoveKeyHash:       DefaultRemoveKeyHash,
		TransformExtensions: DefaultTransformExtensions,
	}
}

// WithDefaults returns a copy of o with unset fields filled from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.FileName == "" {
		o.FileName = d.FileName
	}
	if o.Serialize == nil {
		o.Serialize = d.Serialize
	}
	if o.RemoveKeyHash == nil {
		o.RemoveKeyHash = d.RemoveKeyHash
	}
	if o.TransformExtensions == nil {
		o.TransformExtensions = d.TransformExtensions
	}
	return o
}

// Validate checks o for configuration errors.
func (o Options) Validate() error {
	name := strings.TrimSpace(o.FileName)
	if name == "" {
		return fmt.Errorf("%w: file name is empty", ErrInvalidFileName)
	}
	if !filepath.IsAbs(name) {
		clean := filepath.Clean(name)
		if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %q escapes the output directory", ErrInvalidFileName, o.FileName)
		}
	}
	if o.Merge && !o.WriteToFileEmit {
		return ErrMergeWithoutWrite
	}
	return nil
}

// keyHashPattern returns the regexp stripped from keys, or nil when disabled.
func (o Options) keyHashPattern() *regexp.Regexp {
	if o.DisableKeyHashRemoval {
		return nil
	}
	if o.RemoveKeyHash == nil {
		return DefaultRemoveKeyHash
	}
	return o.RemoveKeyHash
}

// StringPtr returns a pointer to s, for Options.PublicPath.
func StringPtr(s string) *string { return &s }
