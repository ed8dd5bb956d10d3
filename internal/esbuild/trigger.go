package esbuild

import (
	"github.com/evanw/esbuild/pkg/api"
)

// trigger decides when a finished build is handed to the emitter.
type trigger interface {
	register(build api.PluginBuild, p *Plugin)
}

// onEndTrigger emits from inside the build, so the manifest is part of the
// result of api.Build and of every watch rebuild.
type onEndTrigger struct{}

func (onEndTrigger) register(build api.PluginBuild, p *Plugin) {
	build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
		_, err := p.emit(p.context(), result)
		return api.OnEndResult{}, err
	})
}

// resultTrigger leaves emission to the caller, who hands the finished result
// to Plugin.EmitResult once the build returned.
type resultTrigger struct{}

func (resultTrigger) register(build api.PluginBuild, p *Plugin) {
	build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
		if len(result.Errors) > 0 {
			p.emitter.Abort()
		}
		return api.OnEndResult{}, nil
	})
}
