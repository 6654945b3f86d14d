package osrevk

import (
	"log/slog"
	"runtime"

	"github.com/andewx/osrevk/hal"
)

const (
	surfaceExtension     = "VK_KHR_surface"
	debugReportExtension = "VK_EXT_debug_report"
	portabilityExtension = "VK_KHR_portability_enumeration"
)

// graphicsInstance is the created instance together with what it enabled.
type graphicsInstance struct {
	handle     hal.Instance
	extensions []string
	layers     []string
}

// createInstance enumerates instance extensions, checks that the surface
// extensions the window needs are present and creates the instance.
func createInstance(d hal.Driver, cfg *Config, w hal.Window, log *slog.Logger) (*graphicsInstance, error) {
	const stage = "instance"

	available, err := d.InstanceExtensions()
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	log.Debug("instance extensions enumerated", "count", len(available))

	required := []string{surfaceExtension}
	required = append(required, w.GetRequiredInstanceExtensions()...)
	required = append(required, cfg.InstanceExtensions...)

	var wanted []string
	if cfg.Validation {
		wanted = append(wanted, debugReportExtension)
	}
	portability := runtime.GOOS == "darwin" && contains(available, portabilityExtension)
	if portability {
		wanted = append(wanted, portabilityExtension)
	}

	exts := newExtensionSet(available, required, wanted)
	if miss := exts.missingRequired(); len(miss) > 0 {
		return nil, stageErrorf(CapabilityUnsupportedError, stage, "missing instance extensions %v", miss)
	}
	if miss := exts.missingWanted(); len(miss) > 0 {
		log.Warn("optional instance extensions unavailable", "missing", miss)
	}

	var layers []string
	if cfg.Validation {
		actual, err := d.InstanceLayers()
		if err != nil {
			return nil, stageError(ResourceCreationError, stage, err)
		}
		set := newExtensionSet(actual, nil, cfg.ValidationLayers)
		if miss := set.missingWanted(); len(miss) > 0 {
			log.Warn("validation layers unavailable", "missing", miss)
		}
		layers = set.enabled()
	}

	apiVersion, err := cfg.apiVersion()
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	appVersion, err := parseVersion("app_version", cfg.AppVersion)
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	engineVersion, err := parseVersion("engine_version", cfg.EngineVersion)
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	enabled := exts.enabled()
	inst, err := d.CreateInstance(&hal.InstanceDescriptor{
		AppName:       cfg.AppName,
		EngineName:    cfg.EngineName,
		AppVersion:    appVersion,
		EngineVersion: engineVersion,
		APIVersion:    apiVersion,
		Extensions:    enabled,
		Layers:        layers,
		Portability:   portability,
		DebugReport:   contains(enabled, debugReportExtension),
	})
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	log.Info("instance created", "extensions", enabled, "layers", layers)
	return &graphicsInstance{
		handle:     inst,
		extensions: enabled,
		layers:     layers,
	}, nil
}

func (gi *graphicsInstance) destroy() {
	if gi == nil || gi.handle == nil {
		return
	}
	gi.handle.Destroy()
	gi.handle = nil
}
