package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/assetmanifest/cli/output"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [manifest file]",
	Short: "List the entries of a written manifest",
	Long: `Read a JSON or YAML manifest and list its keys and paths.

Without an argument the manifest configured by build.outdir and
manifest.file_name is read.

Examples:
  assetmanifest inspect
  assetmanifest inspect public/build/manifest.json -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	var file string
	if len(args) == 1 {
		file = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		file = cfg.Manifest.FileName
		if !filepath.IsAbs(file) {
			file = filepath.Join(outputPath(cfg.Build), file)
		}
	}

	m, err := readManifestFile(file)
	if err != nil {
		return err
	}

	if formatter.Format != output.FormatTable {
		return formatter.Print(m)
	}
	return formatter.PrintTable(manifestTable(m))
}

// readManifestFile parses a JSON or YAML manifest. JSON is a subset of YAML.
func readManifestFile(file string) (map[string]interface{}, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", file, err)
	}
	return m, nil
}

// manifestTable flattens a manifest into KEY/PATH rows. Nested objects, such
// as entrypoints, are keyed by their dotted path, and lists produce one row
// per element.
func manifestTable(m map[string]interface{}) output.TableData {
	var rows [][]string
	flatten("", m, &rows)
	return output.TableData{Headers: []string{"KEY", "PATH"}, Rows: rows}
}

func flatten(prefix string, m map[string]interface{}, rows *[][]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]interface{}:
			flatten(key, v, rows)
		case []interface{}:
			for _, item := range v {
				*rows = append(*rows, []string{key, fmt.Sprint(item)})
			}
		default:
			*rows = append(*rows, []string{key, strings.TrimSpace(fmt.Sprint(v))})
		}
	}
}
