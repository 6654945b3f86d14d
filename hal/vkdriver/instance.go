package vkdriver

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
	"github.com/andewx/osrevk/loader"
)

type Instance struct {
	d      *Driver
	handle vk.Instance
	debug  vk.DebugReportCallback
}

func (i *Instance) Destroy() {
	if i.handle == nil {
		return
	}
	if i.debug != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.handle, i.debug, nil)
		i.debug = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.handle, nil)
	i.handle = nil
}

func (i *Instance) EnumeratePhysicalDevices() ([]hal.PhysicalDevice, error) {
	var count uint32
	if err := newError(vk.EnumeratePhysicalDevices(i.handle, &count, nil)); err != nil {
		return nil, err
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := newError(vk.EnumeratePhysicalDevices(i.handle, &count, gpus)); err != nil {
		return nil, err
	}
	out := make([]hal.PhysicalDevice, 0, count)
	for _, gpu := range gpus[:count] {
		out = append(out, &PhysicalDevice{d: i.d, gpu: gpu})
	}
	return out, nil
}

// CreateSurface asks the window for a presentation surface on this instance.
func (i *Instance) CreateSurface(w hal.Window) (hal.Surface, error) {
	ptr, err := w.CreateWindowSurface(i.handle, nil)
	if err != nil {
		return nil, fmt.Errorf("vkdriver: window surface: %w", err)
	}
	return &Surface{inst: i.handle, handle: vk.SurfaceFromPointer(ptr)}, nil
}

type Surface struct {
	inst   vk.Instance
	handle vk.Surface
}

func (s *Surface) Destroy() {
	if s.handle == vk.NullSurface {
		return
	}
	vk.DestroySurface(s.inst, s.handle, nil)
	s.handle = vk.NullSurface
}

func surfaceHandle(s hal.Surface) vk.Surface {
	if vs, ok := s.(*Surface); ok && vs != nil {
		return vs.handle
	}
	return vk.NullSurface
}

type PhysicalDevice struct {
	d   *Driver
	gpu vk.PhysicalDevice
}

func (p *PhysicalDevice) Properties() hal.DeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(p.gpu, &props)
	props.Deref()
	props.Limits.Deref()
	return hal.DeviceProperties{
		Name:                vk.ToString(props.DeviceName[:]),
		Type:                props.DeviceType,
		APIVersion:          props.ApiVersion,
		DriverVersion:       props.DriverVersion,
		MaxImageDimension2D: props.Limits.MaxImageDimension2D,
	}
}

func (p *PhysicalDevice) Extensions() ([]string, error) {
	return deviceExtensions(p.gpu)
}

func (p *PhysicalDevice) QueueFamilies() []hal.QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.gpu, &count, props)
	out := make([]hal.QueueFamily, 0, count)
	for _, f := range props[:count] {
		f.Deref()
		out = append(out, hal.QueueFamily{Flags: f.QueueFlags, Count: f.QueueCount})
	}
	return out
}

func (p *PhysicalDevice) SurfaceSupport(family uint32, s hal.Surface) (bool, error) {
	var supported vk.Bool32
	if err := newError(vk.GetPhysicalDeviceSurfaceSupport(p.gpu, family, surfaceHandle(s), &supported)); err != nil {
		return false, err
	}
	return supported.B(), nil
}

func (p *PhysicalDevice) SurfaceCapabilities(s hal.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := newError(vk.GetPhysicalDeviceSurfaceCapabilities(p.gpu, surfaceHandle(s), &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (p *PhysicalDevice) SurfaceFormats(s hal.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := newError(vk.GetPhysicalDeviceSurfaceFormats(p.gpu, surfaceHandle(s), &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := newError(vk.GetPhysicalDeviceSurfaceFormats(p.gpu, surfaceHandle(s), &count, formats)); err != nil {
		return nil, err
	}
	formats = formats[:count]
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func (p *PhysicalDevice) PresentModes(s hal.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := newError(vk.GetPhysicalDeviceSurfacePresentModes(p.gpu, surfaceHandle(s), &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := newError(vk.GetPhysicalDeviceSurfacePresentModes(p.gpu, surfaceHandle(s), &count, modes)); err != nil {
		return nil, err
	}
	return modes[:count], nil
}

func (p *PhysicalDevice) CreateDevice(desc *hal.DeviceDescriptor) (hal.Device, error) {
	queues := make([]vk.DeviceQueueCreateInfo, 0, len(desc.Queues))
	for _, q := range desc.Queues {
		queues = append(queues, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: q.Family,
			QueueCount:       uint32(len(q.Priorities)),
			PQueuePriorities: q.Priorities,
		})
	}
	var handle vk.Device
	ret := vk.CreateDevice(p.gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queues)),
		PQueueCreateInfos:       queues,
		EnabledExtensionCount:   uint32(len(desc.Extensions)),
		PpEnabledExtensionNames: safeStrings(desc.Extensions),
		EnabledLayerCount:       uint32(len(desc.Layers)),
		PpEnabledLayerNames:     safeStrings(desc.Layers),
	}, nil, &handle)
	if err := newError(ret); err != nil {
		return nil, err
	}
	if err := p.d.table.Resolve(loader.Device, uintptr(unsafe.Pointer(handle))); err != nil {
		vk.DestroyDevice(handle, nil)
		return nil, err
	}
	return &Device{handle: handle}, nil
}
