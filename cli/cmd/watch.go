package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/assetmanifest/internal/devserver"
	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
)

var (
	watchServe   bool
	watchAddress string
)

var watchCmd = &cobra.Command{
	Use:   "watch [entry points...]",
	Short: "Rebuild on change and emit a manifest after every build",
	Long: `Start esbuild in watch mode. Every successful rebuild emits a new manifest;
the first pass is cold and overwrites whatever manifest is on disk.

With --serve (or dev_server.enabled) the latest manifest is available over
HTTP at /manifest, together with /health and /metrics.

manifest.use_legacy_emit has no effect here because watch builds never hand
their result back to the caller.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "serve the latest manifest over HTTP")
	watchCmd.Flags().StringVar(&watchAddress, "address", "", "dev server address (overrides dev_server.address)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Build.EntryPoints = args
	}
	if watchServe {
		cfg.DevServer.Enabled = true
	}
	if watchAddress != "" {
		cfg.DevServer.Address = watchAddress
	}
	if cfg.Manifest.UseLegacyEmit {
		formatter.PrintWarning("manifest.use_legacy_emit is ignored in watch mode")
		cfg.Manifest.UseLegacyEmit = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.close(context.Background())

	buildCtx, ctxErr := api.Context(p.opts)
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			log.Error().Msg(msg.Text)
		}
		return fmt.Errorf("failed to create build context")
	}
	defer buildCtx.Dispose()

	p.emitter.Hooks().TapAfterEmit("watch-log", 0, func(m manifest.Manifest) {
		log.Info().Int("entries", len(m)).Str("manifest", p.emitter.AssetID()).Msg("Manifest emitted")
	})

	var server *devserver.Server
	if cfg.DevServer.Enabled {
		server = devserver.New(devserver.Config{
			Address: cfg.DevServer.Address,
			Tracing: cfg.Tracing.Enabled,
			Debug:   cfg.Debug,
		}, p.emitter, p.metrics)

		go func() {
			log.Info().Str("address", cfg.DevServer.Address).Msg("Starting dev server")
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("Dev server stopped")
				stop()
			}
		}()
	}

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}
	log.Info().Strs("entry_points", cfg.Build.EntryPoints).Str("manifest", p.emitter.FileName()).Msg("Watching for changes")

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Dev server forced to shutdown")
		}
	}
	return nil
}
