// Package vkdriver implements hal on top of vulkan-go. The loader library is
// opened through the loader package, which also checks that every entry
// point a tier needs is present before the tier is used.
package vkdriver

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
	"github.com/andewx/osrevk/loader"
)

// instanceCreateEnumeratePortability is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR.
const instanceCreateEnumeratePortability = 0x00000001

var (
	errNotLoaded   = errors.New("vkdriver: library not loaded")
	errNoSwapchain = errors.New("vkdriver: present without a swapchain")
)

type Option func(*Driver)

// WithLibraries overrides the loader library names tried by Load.
func WithLibraries(names ...string) Option {
	return func(d *Driver) { d.libraries = names }
}

// WithProcAddr makes Load use an already resolved vkGetInstanceProcAddr, such
// as the one the windowing library exposes, instead of opening a library.
func WithProcAddr(addr unsafe.Pointer) Option {
	return func(d *Driver) { d.procAddr = addr }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// Driver implements hal.Driver.
type Driver struct {
	libraries []string
	procAddr  unsafe.Pointer
	log       *slog.Logger
	table     *loader.Table
}

var _ hal.Driver = (*Driver)(nil)

func New(opts ...Option) *Driver {
	d := &Driver{}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	d.log = d.log.With("component", "vkdriver")
	return d
}

// Table returns the entry point table, nil before Load.
func (d *Driver) Table() *loader.Table { return d.table }

func (d *Driver) Load() error {
	if d.table != nil {
		return nil
	}
	var t *loader.Table
	if d.procAddr != nil {
		t = loader.FromProcAddr(d.procAddr)
	} else {
		var err error
		if t, err = loader.Open(d.libraries...); err != nil {
			return err
		}
	}
	if err := t.Resolve(loader.Exported, 0); err != nil {
		t.Close()
		return err
	}
	addr, _ := t.Addr("vkGetInstanceProcAddr")
	vk.SetGetInstanceProcAddr(unsafe.Pointer(addr))
	if err := vk.Init(); err != nil {
		t.Close()
		return fmt.Errorf("vkdriver: init: %w", err)
	}
	if err := t.Resolve(loader.Global, 0); err != nil {
		t.Close()
		return err
	}
	d.table = t
	d.log.Info("vulkan library loaded")
	return nil
}

func (d *Driver) Unload() error {
	if d.table == nil {
		return nil
	}
	err := d.table.Close()
	d.table = nil
	return err
}

func (d *Driver) InstanceExtensions() ([]string, error) {
	if d.table == nil {
		return nil, errNotLoaded
	}
	return instanceExtensions()
}

func (d *Driver) InstanceLayers() ([]string, error) {
	if d.table == nil {
		return nil, errNotLoaded
	}
	return instanceLayers()
}

func (d *Driver) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	if d.table == nil {
		return nil, errNotLoaded
	}
	info := &vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(desc.AppName),
			ApplicationVersion: desc.AppVersion,
			PEngineName:        safeString(desc.EngineName),
			EngineVersion:      desc.EngineVersion,
			ApiVersion:         desc.APIVersion,
		},
		EnabledExtensionCount:   uint32(len(desc.Extensions)),
		PpEnabledExtensionNames: safeStrings(desc.Extensions),
		EnabledLayerCount:       uint32(len(desc.Layers)),
		PpEnabledLayerNames:     safeStrings(desc.Layers),
	}
	if desc.Portability {
		info.Flags = vk.InstanceCreateFlags(instanceCreateEnumeratePortability)
	}
	var handle vk.Instance
	if err := newError(vk.CreateInstance(info, nil, &handle)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(handle); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, fmt.Errorf("vkdriver: init instance: %w", err)
	}
	if err := d.table.Resolve(loader.Instance, uintptr(unsafe.Pointer(handle))); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, err
	}

	inst := &Instance{d: d, handle: handle, debug: vk.NullDebugReportCallback}
	if _, ok := d.table.Addr("vkCreateDebugReportCallbackEXT"); desc.DebugReport && ok {
		debugLog.Store(d.log)
		cb, err := createDebugCallback(handle)
		if err != nil {
			d.log.Warn("debug report callback unavailable", "err", err)
		} else {
			inst.debug = cb
			d.log.Info("debug report callback enabled")
		}
	}
	return inst, nil
}
