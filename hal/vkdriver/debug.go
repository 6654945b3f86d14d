package vkdriver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// debugLog receives validation messages. The callback is process wide, so is
// its logger.
var debugLog atomic.Pointer[slog.Logger]

func debugLevel(flags vk.DebugReportFlags) slog.Level {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func debugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	log := debugLog.Load()
	if log == nil {
		log = slog.Default()
	}
	perf := flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0
	log.Log(context.Background(), debugLevel(flags), pMessage,
		"layer", pLayerPrefix, "code", messageCode, "object_type", objectType, "performance", perf)
	return vk.Bool32(vk.False)
}

func createDebugCallback(inst vk.Instance) (vk.DebugReportCallback, error) {
	var cb vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(inst, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit),
		PfnCallback: debugCallback,
	}, nil, &cb)
	if err := newError(ret); err != nil {
		return vk.NullDebugReportCallback, err
	}
	return cb, nil
}
