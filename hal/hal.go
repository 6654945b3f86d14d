// Package hal is the hardware abstraction the render backend drives. A Driver
// hands out opaque resources; value types such as formats, flags and surface
// capabilities are the Vulkan types themselves.
//
// Resources are released through their own Destroy method. Images returned
// by a swapchain are owned by it and are never destroyed individually.
package hal

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Driver is the entry point of a backend implementation.
type Driver interface {
	// Load opens the runtime library and resolves the global entry points.
	Load() error
	// Unload releases the runtime library.
	Unload() error
	InstanceExtensions() ([]string, error)
	InstanceLayers() ([]string, error)
	CreateInstance(desc *InstanceDescriptor) (Instance, error)
}

// Window is the surface contract the backend needs from the windowing layer.
// *glfw.Window satisfies it.
type Window interface {
	GetFramebufferSize() (width, height int)
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

// Resource is anything that must be released explicitly.
type Resource interface {
	Destroy()
}

type Instance interface {
	Resource
	EnumeratePhysicalDevices() ([]PhysicalDevice, error)
	CreateSurface(w Window) (Surface, error)
}

type Surface interface {
	Resource
}

type PhysicalDevice interface {
	Properties() DeviceProperties
	Extensions() ([]string, error)
	QueueFamilies() []QueueFamily
	SurfaceSupport(family uint32, s Surface) (bool, error)
	SurfaceCapabilities(s Surface) (vk.SurfaceCapabilities, error)
	SurfaceFormats(s Surface) ([]vk.SurfaceFormat, error)
	PresentModes(s Surface) ([]vk.PresentMode, error)
	CreateDevice(desc *DeviceDescriptor) (Device, error)
}

type Device interface {
	Resource
	Queue(family uint32) (Queue, error)
	WaitIdle() error

	CreateSwapchain(desc *SwapchainDescriptor) (Swapchain, error)
	CreateImageView(img Image, format vk.Format) (ImageView, error)
	CreateRenderPass(desc *RenderPassDescriptor) (RenderPass, error)
	CreateFramebuffer(desc *FramebufferDescriptor) (Framebuffer, error)
	CreateShaderModule(code []uint32) (ShaderModule, error)
	CreatePipelineLayout() (PipelineLayout, error)
	CreateGraphicsPipeline(desc *PipelineDescriptor) (Pipeline, error)
	CreateCommandPool(family uint32) (CommandPool, error)

	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)
	WaitForFence(f Fence) error
	ResetFence(f Fence) error

	// AcquireNextImage blocks until an image is available and arranges for
	// signal to be signalled once it can be rendered to.
	AcquireNextImage(sc Swapchain, signal Semaphore) (uint32, PresentStatus, error)
}

type Queue interface {
	Family() uint32
	Submit(desc *SubmitDescriptor) error
	WaitIdle() error
	Present(desc *PresentDescriptor) (PresentStatus, error)
}

type Swapchain interface {
	Resource
	Images() ([]Image, error)
}

// Image is a swapchain-owned image.
type Image interface{}

type ImageView interface{ Resource }

type RenderPass interface{ Resource }

type Framebuffer interface{ Resource }

type ShaderModule interface{ Resource }

type PipelineLayout interface{ Resource }

type Pipeline interface{ Resource }

type Semaphore interface{ Resource }

type Fence interface{ Resource }

type CommandPool interface {
	Resource
	Allocate(count int) ([]CommandBuffer, error)
	Free(bufs ...CommandBuffer)
}

type CommandBuffer interface {
	Begin(flags vk.CommandBufferUsageFlags) error
	End() error
	Reset() error
	PipelineBarrier(b *ImageBarrier)
	BeginRenderPass(desc *RenderPassBeginDescriptor)
	BindPipeline(p Pipeline)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	EndRenderPass()
}

// PresentStatus reports whether the swapchain still matches the surface.
type PresentStatus int

const (
	PresentOK PresentStatus = iota
	PresentSuboptimal
	PresentOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case PresentOK:
		return "ok"
	case PresentSuboptimal:
		return "suboptimal"
	case PresentOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// Stale reports whether the swapchain must be rebuilt.
func (s PresentStatus) Stale() bool {
	return s != PresentOK
}
