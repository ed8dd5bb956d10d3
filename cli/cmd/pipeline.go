package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/assetmanifest/internal/config"
	"github.com/fluxbase-eu/assetmanifest/internal/esbuild"
	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
	"github.com/fluxbase-eu/assetmanifest/internal/observability"
	"github.com/fluxbase-eu/assetmanifest/internal/storage"
)

// pipeline wires a configured build to its manifest emitter
type pipeline struct {
	opts    api.BuildOptions
	emitter *manifest.Emitter
	plugin  *esbuild.Plugin
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// ledger counts manifest writes for every pipeline in this process.
var ledger = manifest.NewLedger()

func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	if len(cfg.Build.EntryPoints) == 0 {
		return nil, fmt.Errorf("no entry points given; pass them as arguments or set build.entry_points")
	}

	manifestOpts, err := cfg.ManifestOptions()
	if err != nil {
		return nil, err
	}

	store, bucket, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	tracingCfg := cfg.Tracing
	tracingCfg.ServiceVersion = Version
	tracer, err := observability.NewTracer(ctx, tracingCfg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	emitter, err := manifest.NewEmitter(manifest.EmitterConfig{
		Options:    manifestOpts,
		OutputPath: outputPath(cfg.Build),
		Storage:    store,
		Bucket:     bucket,
		Metrics:    metrics,
		Ledger:     ledger,
	})
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	p := &pipeline{
		opts:    cfg.Build.EsbuildOptions(),
		emitter: emitter,
		plugin:  esbuild.New(emitter).WithContext(ctx).WithMetrics(metrics),
		metrics: metrics,
		tracer:  tracer,
	}
	p.plugin.Install(&p.opts)

	log.Debug().
		Str("manifest", emitter.FileName()).
		Bool("persist", manifestOpts.WriteToFileEmit).
		Bool("legacy_emit", manifestOpts.UseLegacyEmit).
		Msg("Manifest pipeline ready")

	return p, nil
}

func (p *pipeline) close(ctx context.Context) {
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down tracer")
	}
}

// newStorage returns nil for local storage without an explicit path, which
// lets the emitter write next to the build output.
func newStorage(cfg config.StorageConfig) (storage.Storage, string, error) {
	switch cfg.Provider {
	case "s3":
		s3, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3Access,
			SecretKey: cfg.S3Secret,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, "", err
		}
		return s3, cfg.S3Bucket, nil
	default:
		if cfg.LocalPath == "" {
			return nil, "", nil
		}
		local, err := storage.NewLocalStorage(cfg.LocalPath)
		if err != nil {
			return nil, "", err
		}
		return local, "", nil
	}
}

// outputPath resolves build.outdir against build.working_dir
func outputPath(bc config.BuildConfig) string {
	if filepath.IsAbs(bc.Outdir) {
		return bc.Outdir
	}
	base := bc.WorkingDir
	if base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		}
	}
	return filepath.Join(base, bc.Outdir)
}

// logMessages reports esbuild diagnostics through zerolog
func logMessages(result api.BuildResult) {
	for _, msg := range result.Warnings {
		event := log.Warn()
		if msg.Location != nil {
			event = event.Str("file", msg.Location.File).Int("line", msg.Location.Line)
		}
		event.Msg(msg.Text)
	}
	for _, msg := range result.Errors {
		event := log.Error()
		if msg.Location != nil {
			event = event.Str("file", msg.Location.File).Int("line", msg.Location.Line)
		}
		event.Msg(msg.Text)
	}
}

// report prints the outcome of a pass
func report(art *manifest.Artifact) error {
	switch art.State {
	case manifest.StatePersisted:
		formatter.PrintSuccess("Wrote %s (%d files)", art.AssetID, len(art.Files))
		return nil
	default:
		return formatter.Raw(art.Output)
	}
}
