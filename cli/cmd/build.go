package cmd

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"
)

var (
	buildOutdir     string
	buildPublicPath string
	buildNoWrite    bool
)

var buildCmd = &cobra.Command{
	Use:   "build [entry points...]",
	Short: "Run esbuild once and emit the manifest",
	Long: `Run a single esbuild build and emit the asset manifest for it.

Entry points given as arguments replace build.entry_points. The manifest is
written through the configured storage unless manifest.write_to_file_emit is
false, in which case it is printed to stdout.

Examples:
  assetmanifest build src/main.ts src/admin.ts
  assetmanifest build --outdir public/build --public-path /build/`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOutdir, "outdir", "", "output directory (overrides build.outdir)")
	buildCmd.Flags().StringVar(&buildPublicPath, "public-path", "", "public path (overrides build.public_path)")
	buildCmd.Flags().BoolVar(&buildNoWrite, "no-write", false, "do not write bundles, only the manifest")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Build.EntryPoints = args
	}
	if buildOutdir != "" {
		cfg.Build.Outdir = buildOutdir
	}
	if buildPublicPath != "" {
		cfg.Build.PublicPath = buildPublicPath
	}
	if buildNoWrite {
		cfg.Build.Write = false
	}

	ctx := cmd.Context()
	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.close(ctx)

	result := api.Build(p.opts)
	logMessages(result)
	if len(result.Errors) > 0 {
		return fmt.Errorf("build failed with %d errors", len(result.Errors))
	}

	if cfg.Manifest.UseLegacyEmit {
		art, err := p.plugin.EmitResult(ctx, &result)
		if err != nil {
			return err
		}
		return report(art)
	}

	art, ok := p.emitter.Latest()
	if !ok {
		return fmt.Errorf("build finished without emitting a manifest")
	}
	return report(art)
}
