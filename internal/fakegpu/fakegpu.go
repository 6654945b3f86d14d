// Package fakegpu is an in-memory hal.Driver. It counts live objects, keeps an
// ordered event log and records every command written to a command buffer so
// tests can check the backend without a GPU.
package fakegpu

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("fakegpu: injected failure")

// GPU describes one fake physical device.
type GPU struct {
	Props          hal.DeviceProperties
	Extensions     []string
	Families       []hal.QueueFamily
	PresentSupport []bool
	Caps           vk.SurfaceCapabilities
	Formats        []vk.SurfaceFormat
	PresentModes   []vk.PresentMode
}

// DefaultGPU is a discrete GPU with one combined graphics and present family.
func DefaultGPU() *GPU {
	return &GPU{
		Props: hal.DeviceProperties{
			Name:                "fake discrete",
			Type:                vk.PhysicalDeviceTypeDiscreteGpu,
			APIVersion:          uint32(vk.MakeVersion(1, 2, 0)),
			MaxImageDimension2D: 16384,
		},
		Extensions: []string{"VK_KHR_swapchain"},
		Families: []hal.QueueFamily{
			{Flags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit), Count: 4},
		},
		PresentSupport: []bool{true},
		Caps:           DefaultCaps(),
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
}

// DefaultCaps reports a fixed 800x600 surface accepting 2 to 8 images.
func DefaultCaps() vk.SurfaceCapabilities {
	return vk.SurfaceCapabilities{
		MinImageCount:           2,
		MaxImageCount:           8,
		CurrentExtent:           vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:          vk.Extent2D{Width: 4096, Height: 4096},
		MaxImageArrayLayers:     1,
		SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
		CurrentTransform:        vk.SurfaceTransformIdentityBit,
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		SupportedUsageFlags:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
	}
}

// Driver implements hal.Driver.
type Driver struct {
	Extensions []string
	Layers     []string
	GPUs       []*GPU

	// Fail makes the named operation fail on every call.
	Fail map[string]error
	// AcquireStatuses and PresentStatuses are consumed one per call; an empty
	// queue reports hal.PresentOK.
	AcquireStatuses []hal.PresentStatus
	PresentStatuses []hal.PresentStatus

	mu       sync.Mutex
	failNext map[string]error
	failOn   map[string]*scheduledFailure
	nextID   int
	loaded   bool
	live     map[string]int
	calls    map[string]int
	events   []string
	doubles  int

	InstanceDesc *hal.InstanceDescriptor
	DeviceDesc   *hal.DeviceDescriptor
	Swapchains   []*Swapchain
	Pipelines    []*Pipeline
	Buffers      []*CommandBuffer
	Submits      []hal.SubmitDescriptor
	Presents     []hal.PresentDescriptor
}

// New returns a driver exposing one DefaultGPU and the surface extensions.
func New() *Driver {
	return &Driver{
		Extensions: []string{"VK_KHR_surface", "VK_KHR_xcb_surface", "VK_EXT_debug_report"},
		Layers:     []string{"VK_LAYER_KHRONOS_validation"},
		GPUs:       []*GPU{DefaultGPU()},
		Fail:       map[string]error{},
		failNext:   map[string]error{},
		failOn:     map[string]*scheduledFailure{},
		live:       map[string]int{},
		calls:      map[string]int{},
	}
}

// FailNext makes only the next call of op fail.
func (d *Driver) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.failNext[op] = err
}

type scheduledFailure struct {
	remaining int
	err       error
}

// FailOn makes the n-th call of op from now fail, counting from 1. Earlier
// calls succeed.
func (d *Driver) FailOn(op string, n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.failOn[op] = &scheduledFailure{remaining: n, err: err}
}

func (d *Driver) check(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[op]++
	if f, ok := d.failOn[op]; ok {
		f.remaining--
		if f.remaining <= 0 {
			delete(d.failOn, op)
			d.events = append(d.events, "fail "+op)
			return fmt.Errorf("%s: %w", op, f.err)
		}
	}
	if err, ok := d.failNext[op]; ok {
		delete(d.failNext, op)
		d.events = append(d.events, "fail "+op)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err, ok := d.Fail[op]; ok {
		if err == nil {
			err = ErrInjected
		}
		d.events = append(d.events, "fail "+op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *Driver) event(format string, args ...any) {
	d.mu.Lock()
	d.events = append(d.events, fmt.Sprintf(format, args...))
	d.mu.Unlock()
}

func (d *Driver) newObject(kind string) *Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.live[kind]++
	o := &Object{d: d, Kind: kind, ID: d.nextID}
	d.events = append(d.events, "create "+o.String())
	return o
}

// Live returns the number of objects not yet destroyed, across all kinds.
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.live {
		n += c
	}
	return n
}

// LiveKind returns the number of live objects of one kind.
func (d *Driver) LiveKind(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live[kind]
}

// Calls returns how often op was invoked.
func (d *Driver) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Events returns a copy of the ordered event log.
func (d *Driver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

// DoubleDestroys counts Destroy calls on already destroyed objects.
func (d *Driver) DoubleDestroys() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doubles
}

// Loaded reports whether Load was called without a matching Unload.
func (d *Driver) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *Driver) Load() error {
	if err := d.check("Load"); err != nil {
		return err
	}
	d.mu.Lock()
	d.loaded = true
	d.mu.Unlock()
	return nil
}

func (d *Driver) Unload() error {
	d.mu.Lock()
	d.loaded = false
	d.mu.Unlock()
	return nil
}

func (d *Driver) InstanceExtensions() ([]string, error) {
	if err := d.check("InstanceExtensions"); err != nil {
		return nil, err
	}
	return append([]string(nil), d.Extensions...), nil
}

func (d *Driver) InstanceLayers() ([]string, error) {
	if err := d.check("InstanceLayers"); err != nil {
		return nil, err
	}
	return append([]string(nil), d.Layers...), nil
}

func (d *Driver) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	if err := d.check("CreateInstance"); err != nil {
		return nil, err
	}
	cp := *desc
	d.InstanceDesc = &cp
	return &Instance{Object: d.newObject("instance")}, nil
}

// Object is the common part of every fake resource.
type Object struct {
	d         *Driver
	Kind      string
	ID        int
	Destroyed bool
}

func (o *Object) String() string {
	return fmt.Sprintf("%s#%d", o.Kind, o.ID)
}

func (o *Object) Destroy() {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	if o.Destroyed {
		o.d.doubles++
		return
	}
	o.Destroyed = true
	o.d.live[o.Kind]--
	o.d.events = append(o.d.events, "destroy "+o.String())
}

type Instance struct {
	*Object
}

func (i *Instance) EnumeratePhysicalDevices() ([]hal.PhysicalDevice, error) {
	if err := i.d.check("EnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	out := make([]hal.PhysicalDevice, len(i.d.GPUs))
	for n, g := range i.d.GPUs {
		out[n] = &PhysicalDevice{d: i.d, GPU: g}
	}
	return out, nil
}

func (i *Instance) CreateSurface(w hal.Window) (hal.Surface, error) {
	if err := i.d.check("CreateSurface"); err != nil {
		return nil, err
	}
	if _, err := w.CreateWindowSurface(i, nil); err != nil {
		return nil, err
	}
	return i.d.newObject("surface"), nil
}

// Window is a fake hal.Window.
type Window struct {
	Width, Height int
	Extensions    []string
	SurfaceErr    error
}

func (w *Window) GetFramebufferSize() (int, int) { return w.Width, w.Height }

func (w *Window) GetRequiredInstanceExtensions() []string { return w.Extensions }

func (w *Window) CreateWindowSurface(instance interface{}, _ unsafe.Pointer) (uintptr, error) {
	if w.SurfaceErr != nil {
		return 0, w.SurfaceErr
	}
	return 1, nil
}
