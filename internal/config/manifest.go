package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
)

// Sort presets for ManifestConfig.Sort
const (
	SortNone = "none"
	SortName = "name"
	SortPath = "path"
)

// Serializers for ManifestConfig.Serializer
const (
	SerializerJSON = "json"
	SerializerYAML = "yaml"
)

// ManifestConfig contains manifest assembly settings
type ManifestConfig struct {
	FileName              string       `mapstructure:"file_name"`
	BasePath              string       `mapstructure:"base_path"`
	PublicPath            string       `mapstructure:"public_path"` // overrides build.public_path when set
	AssetHookStage        int          `mapstructure:"asset_hook_stage"`
	RemoveKeyHash         string       `mapstructure:"remove_key_hash"` // regexp, empty keeps the default
	DisableKeyHashRemoval bool         `mapstructure:"disable_key_hash_removal"`
	TransformExtensions   string       `mapstructure:"transform_extensions"` // regexp, empty keeps the default
	UseEntryKeys          bool         `mapstructure:"use_entry_keys"`
	UseLegacyEmit         bool         `mapstructure:"use_legacy_emit"`
	WriteToFileEmit       bool         `mapstructure:"write_to_file_emit"`
	Merge                 bool         `mapstructure:"merge"`
	Sort                  string       `mapstructure:"sort"`       // none, name or path
	Serializer            string       `mapstructure:"serializer"` // json or yaml
	Indent                string       `mapstructure:"indent"`
	Entrypoints           bool         `mapstructure:"entrypoints"` // see Config.ManifestOptions
	Filter                FilterConfig `mapstructure:"filter"`
	SeedFile              string       `mapstructure:"seed_file"` // JSON or YAML object the manifest starts from

	publicPathSet bool
}

// FilterConfig selects files by manifest key using path.Match globs
type FilterConfig struct {
	Include     []string `mapstructure:"include"`
	Exclude     []string `mapstructure:"exclude"`
	InitialOnly bool     `mapstructure:"initial_only"`
}

// SetPublicPath overrides the public path the build reports.
func (mc *ManifestConfig) SetPublicPath(p string) {
	mc.PublicPath = p
	mc.publicPathSet = true
}

// Validate validates manifest configuration
func (mc *ManifestConfig) Validate() error {
	switch mc.Sort {
	case SortNone, SortName, SortPath, "":
	default:
		return fmt.Errorf("sort must be one of: %s, %s, %s, got: %s", SortNone, SortName, SortPath, mc.Sort)
	}

	switch mc.Serializer {
	case SerializerJSON, SerializerYAML, "":
	default:
		return fmt.Errorf("serializer must be %s or %s, got: %s", SerializerJSON, SerializerYAML, mc.Serializer)
	}

	for _, pattern := range append(append([]string(nil), mc.Filter.Include...), mc.Filter.Exclude...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
		}
	}

	_, err := mc.Options()
	return err
}

// Options converts the configuration into manifest options. Regular
// expressions are compiled here, so invalid ones are reported as
// configuration errors.
func (mc *ManifestConfig) Options() (manifest.Options, error) {
	opts := manifest.Options{
		AssetHookStage:        mc.AssetHookStage,
		BasePath:              mc.BasePath,
		FileName:              mc.FileName,
		DisableKeyHashRemoval: mc.DisableKeyHashRemoval,
		UseEntryKeys:          mc.UseEntryKeys,
		UseLegacyEmit:         mc.UseLegacyEmit,
		WriteToFileEmit:       mc.WriteToFileEmit,
		Merge:                 mc.Merge,
	}
	if mc.publicPathSet {
		opts.PublicPath = manifest.StringPtr(mc.PublicPath)
	}
	if mc.SeedFile != "" {
		seed, err := readSeed(mc.SeedFile)
		if err != nil {
			return manifest.Options{}, err
		}
		opts.Seed = seed
	}

	if mc.RemoveKeyHash != "" {
		re, err := regexp.Compile(mc.RemoveKeyHash)
		if err != nil {
			return manifest.Options{}, fmt.Errorf("invalid remove_key_hash: %w", err)
		}
		opts.RemoveKeyHash = re
	}
	if mc.TransformExtensions != "" {
		re, err := regexp.Compile(mc.TransformExtensions)
		if err != nil {
			return manifest.Options{}, fmt.Errorf("invalid transform_extensions: %w", err)
		}
		opts.TransformExtensions = re
	}

	if filter := mc.Filter.build(); filter != nil {
		opts.Filter = filter
	}

	switch mc.Sort {
	case SortName:
		opts.Sort = manifest.SortFunc(func(a, b manifest.FileDescriptor) int {
			return strings.Compare(a.Name, b.Name)
		})
	case SortPath:
		opts.Sort = manifest.SortFunc(func(a, b manifest.FileDescriptor) int {
			return strings.Compare(a.Path, b.Path)
		})
	}

	switch mc.Serializer {
	case SerializerYAML:
		opts.Serialize = manifest.YAMLSerializer{}
	default:
		opts.Serialize = manifest.JSONSerializer{Indent: mc.Indent}
	}

	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return manifest.Options{}, err
	}
	return opts, nil
}

// readSeed reads a seed manifest. JSON documents are valid YAML, so one
// decoder serves both.
func readSeed(file string) (manifest.Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed map[string]interface{}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", file, err)
	}
	return manifest.Manifest(seed), nil
}

func (fc FilterConfig) build() manifest.Filter {
	if len(fc.Include) == 0 && len(fc.Exclude) == 0 && !fc.InitialOnly {
		return nil
	}
	return manifest.FilterFunc(func(f manifest.FileDescriptor) bool {
		if fc.InitialOnly && !f.IsInitial {
			return false
		}
		if len(fc.Include) > 0 && !matchAny(fc.Include, f.Name) {
			return false
		}
		return !matchAny(fc.Exclude, f.Name)
	})
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
