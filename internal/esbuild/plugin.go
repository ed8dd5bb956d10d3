package esbuild

import (
	"context"
	"fmt"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
)

// PluginName is the name the plugin registers with esbuild.
const PluginName = "asset-manifest"

// TrackerMetrics receives the number of tracked module assets after each pass.
type TrackerMetrics interface {
	SetTrackedModuleAssets(n int)
}

// Plugin feeds esbuild builds into a manifest emitter.
type Plugin struct {
	emitter *manifest.Emitter
	trigger trigger
	metrics TrackerMetrics

	mu      sync.Mutex
	ctx     context.Context
	options api.BuildOptions
}

// New creates a plugin for emitter. With Options.UseLegacyEmit the manifest
// is only emitted when the caller passes the build result to EmitResult.
func New(emitter *manifest.Emitter) *Plugin {
	var t trigger = onEndTrigger{}
	if emitter.Options().UseLegacyEmit {
		t = resultTrigger{}
	}
	return &Plugin{
		emitter: emitter,
		trigger: t,
		ctx:     context.Background(),
	}
}

// WithContext sets the context passes run under. Cancelling it aborts a pass
// before the manifest is persisted.
func (p *Plugin) WithContext(ctx context.Context) *Plugin {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	return p
}

// WithMetrics reports tracker size to m.
func (p *Plugin) WithMetrics(m TrackerMetrics) *Plugin {
	p.metrics = m
	return p
}

// Emitter returns the emitter the plugin drives.
func (p *Plugin) Emitter() *manifest.Emitter { return p.emitter }

// Plugin returns the esbuild plugin.
func (p *Plugin) Plugin() api.Plugin {
	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			build.InitialOptions.Metafile = true

			p.mu.Lock()
			p.options = *build.InitialOptions
			p.mu.Unlock()

			build.OnStart(func() (api.OnStartResult, error) {
				return api.OnStartResult{}, p.emitter.BeforeRun(p.context())
			})
			p.trigger.register(build, p)
			build.OnDispose(func() {
				p.emitter.Abort()
			})
		},
	}
}

// Install adds the plugin to opts and enables the metafile. A negative
// AssetHookStage puts the plugin before the plugins already configured.
func (p *Plugin) Install(opts *api.BuildOptions) {
	opts.Metafile = true
	if p.emitter.Options().AssetHookStage < 0 {
		opts.Plugins = append([]api.Plugin{p.Plugin()}, opts.Plugins...)
		return
	}
	opts.Plugins = append(opts.Plugins, p.Plugin())
}

// EmitResult emits the manifest for a build that already returned. It is the
// emission point when Options.UseLegacyEmit is set.
func (p *Plugin) EmitResult(ctx context.Context, result *api.BuildResult) (*manifest.Artifact, error) {
	if len(result.Errors) > 0 {
		p.emitter.Abort()
		return nil, fmt.Errorf("build failed with %d errors", len(result.Errors))
	}
	return p.emit(ctx, result)
}

func (p *Plugin) emit(ctx context.Context, result *api.BuildResult) (*manifest.Artifact, error) {
	if len(result.Errors) > 0 {
		log.Debug().Int("errors", len(result.Errors)).Msg("Build failed, skipping manifest")
		p.emitter.Abort()
		return nil, nil
	}

	meta, err := ParseMetafile(result.Metafile)
	if err != nil {
		p.emitter.Abort()
		return nil, err
	}

	p.mu.Lock()
	opts := p.options
	p.mu.Unlock()

	comp, err := NewCompilation(meta, opts)
	if err != nil {
		p.emitter.Abort()
		return nil, err
	}

	tracker := p.emitter.Tracker()
	for asset, input := range comp.ModuleAssets() {
		tracker.Record(asset, input)
	}
	if p.metrics != nil {
		p.metrics.SetTrackedModuleAssets(tracker.Len())
	}

	art, err := p.emitter.Emit(ctx, comp)
	if err != nil {
		log.Error().Err(err).Str("manifest", p.emitter.AssetID()).Msg("Failed to emit manifest")
		return nil, err
	}

	if art.State == manifest.StateExposedOnly {
		result.OutputFiles = append(result.OutputFiles, api.OutputFile{
			Path:     art.FileName,
			Contents: art.Output,
		})
	}

	return art, nil
}

func (p *Plugin) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}
