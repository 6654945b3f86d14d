package hal

import vk "github.com/vulkan-go/vulkan"

// QueueIgnored marks a barrier that does not transfer queue ownership.
const QueueIgnored = vk.QueueFamilyIgnored

type InstanceDescriptor struct {
	AppName       string
	EngineName    string
	AppVersion    uint32
	EngineVersion uint32
	APIVersion    uint32
	Extensions    []string
	Layers        []string
	// Portability enables enumeration of portability-subset devices.
	Portability bool
	// DebugReport registers a validation message callback.
	DebugReport bool
}

// DeviceProperties is the subset of physical device properties the selector
// inspects.
type DeviceProperties struct {
	Name                string
	Type                vk.PhysicalDeviceType
	APIVersion          uint32
	DriverVersion       uint32
	MaxImageDimension2D uint32
}

// APIMajor returns the major component of the reported API version.
func (p DeviceProperties) APIMajor() uint32 {
	return p.APIVersion >> 22
}

type QueueFamily struct {
	Flags vk.QueueFlags
	Count uint32
}

// Graphics reports whether the family accepts graphics work.
func (f QueueFamily) Graphics() bool {
	return f.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 && f.Count > 0
}

type QueueDescriptor struct {
	Family     uint32
	Priorities []float32
}

type DeviceDescriptor struct {
	Queues     []QueueDescriptor
	Extensions []string
	Layers     []string
}

type SwapchainDescriptor struct {
	Surface        Surface
	MinImageCount  uint32
	Format         vk.Format
	ColorSpace     vk.ColorSpace
	Extent         vk.Extent2D
	Usage          vk.ImageUsageFlags
	Transform      vk.SurfaceTransformFlagBits
	CompositeAlpha vk.CompositeAlphaFlagBits
	PresentMode    vk.PresentMode
	// Old is passed to the driver as the retired swapchain, may be nil.
	Old Swapchain
}

type AttachmentDescriptor struct {
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
}

type RenderPassDescriptor struct {
	ColorAttachments []AttachmentDescriptor
	// ExternalDependency adds a subpass dependency on color attachment
	// output from outside the pass.
	ExternalDependency bool
}

type FramebufferDescriptor struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      vk.Extent2D
}

type ShaderStage struct {
	Stage  vk.ShaderStageFlagBits
	Module ShaderModule
	Entry  string
}

type PipelineDescriptor struct {
	Stages         []ShaderStage
	Topology       vk.PrimitiveTopology
	Viewport       vk.Viewport
	Scissor        vk.Rect2D
	PolygonMode    vk.PolygonMode
	CullMode       vk.CullModeFlags
	FrontFace      vk.FrontFace
	LineWidth      float32
	Samples        vk.SampleCountFlagBits
	BlendEnable    bool
	ColorWriteMask vk.ColorComponentFlags
	Layout         PipelineLayout
	RenderPass     RenderPass
	Subpass        uint32
}

// ImageBarrier is a single color image memory barrier, optionally
// transferring queue family ownership.
type ImageBarrier struct {
	Image          Image
	SrcStage       vk.PipelineStageFlags
	DstStage       vk.PipelineStageFlags
	SrcAccess      vk.AccessFlags
	DstAccess      vk.AccessFlags
	OldLayout      vk.ImageLayout
	NewLayout      vk.ImageLayout
	SrcQueueFamily uint32
	DstQueueFamily uint32
}

type RenderPassBeginDescriptor struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Area        vk.Rect2D
	ClearColor  [4]float32
}

type SubmitDescriptor struct {
	Buffers    []CommandBuffer
	Wait       []Semaphore
	WaitStages []vk.PipelineStageFlags
	Signal     []Semaphore
	Fence      Fence
}

type PresentDescriptor struct {
	Swapchain  Swapchain
	ImageIndex uint32
	Wait       []Semaphore
}
