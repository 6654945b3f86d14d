package vkdriver

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// handle is a device-owned object released with its vkDestroy* function.
type handle[T comparable] struct {
	dev     vk.Device
	h       T
	destroy func(vk.Device, T, *vk.AllocationCallbacks)
	done    bool
}

func (r *handle[T]) Destroy() {
	if r.done {
		return
	}
	r.destroy(r.dev, r.h, nil)
	r.done = true
}

func newHandle[T comparable](dev vk.Device, h T, destroy func(vk.Device, T, *vk.AllocationCallbacks)) *handle[T] {
	return &handle[T]{dev: dev, h: h, destroy: destroy}
}

// unwrap returns the Vulkan handle behind a resource created here, the zero
// handle for nil or foreign values.
func unwrap[T comparable](r any) T {
	if h, ok := r.(*handle[T]); ok && h != nil {
		return h.h
	}
	var zero T
	return zero
}

func unwrapAll[T comparable, R any](list []R) []T {
	out := make([]T, len(list))
	for i, r := range list {
		out[i] = unwrap[T](r)
	}
	return out
}

type Device struct {
	handle vk.Device
}

var _ hal.Device = (*Device)(nil)

func (d *Device) Destroy() {
	if d.handle == nil {
		return
	}
	vk.DestroyDevice(d.handle, nil)
	d.handle = nil
}

func (d *Device) Queue(family uint32) (hal.Queue, error) {
	var q vk.Queue
	vk.GetDeviceQueue(d.handle, family, 0, &q)
	if q == nil {
		return nil, fmt.Errorf("vkdriver: no queue in family %d", family)
	}
	return &Queue{handle: q, family: family}, nil
}

func (d *Device) WaitIdle() error {
	return newError(vk.DeviceWaitIdle(d.handle))
}

type Swapchain struct {
	dev    vk.Device
	handle vk.Swapchain
}

func (s *Swapchain) Destroy() {
	if s.handle == vk.NullSwapchain {
		return
	}
	vk.DestroySwapchain(s.dev, s.handle, nil)
	s.handle = vk.NullSwapchain
}

func (s *Swapchain) Images() ([]hal.Image, error) {
	var count uint32
	if err := newError(vk.GetSwapchainImages(s.dev, s.handle, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := newError(vk.GetSwapchainImages(s.dev, s.handle, &count, images)); err != nil {
		return nil, err
	}
	out := make([]hal.Image, 0, count)
	for _, img := range images[:count] {
		out = append(out, img)
	}
	return out, nil
}

func (d *Device) CreateSwapchain(desc *hal.SwapchainDescriptor) (hal.Swapchain, error) {
	info := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surfaceHandle(desc.Surface),
		MinImageCount:    desc.MinImageCount,
		ImageFormat:      desc.Format,
		ImageColorSpace:  desc.ColorSpace,
		ImageExtent:      desc.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       desc.Usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     desc.Transform,
		CompositeAlpha:   desc.CompositeAlpha,
		PresentMode:      desc.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if old, ok := desc.Old.(*Swapchain); ok && old != nil {
		info.OldSwapchain = old.handle
	}
	var sc vk.Swapchain
	if err := newError(vk.CreateSwapchain(d.handle, info, nil, &sc)); err != nil {
		return nil, err
	}
	return &Swapchain{dev: d.handle, handle: sc}, nil
}

func (d *Device) CreateImageView(img hal.Image, format vk.Format) (hal.ImageView, error) {
	image, ok := img.(vk.Image)
	if !ok {
		return nil, fmt.Errorf("vkdriver: image view of %T", img)
	}
	var view vk.ImageView
	ret := vk.CreateImageView(d.handle, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorRange,
	}, nil, &view)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return newHandle(d.handle, view, vk.DestroyImageView), nil
}

var colorRange = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

func (d *Device) CreateRenderPass(desc *hal.RenderPassDescriptor) (hal.RenderPass, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.ColorAttachments))
	refs := make([]vk.AttachmentReference, len(desc.ColorAttachments))
	for i, a := range desc.ColorAttachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        a.Samples,
			LoadOp:         a.LoadOp,
			StoreOp:        a.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  a.InitialLayout,
			FinalLayout:    a.FinalLayout,
		}
		refs[i] = vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
	}
	info := &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(refs)),
			PColorAttachments:    refs,
		}},
	}
	if desc.ExternalDependency {
		info.DependencyCount = 1
		info.PDependencies = []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}}
	}
	var rp vk.RenderPass
	if err := newError(vk.CreateRenderPass(d.handle, info, nil, &rp)); err != nil {
		return nil, err
	}
	return newHandle(d.handle, rp, vk.DestroyRenderPass), nil
}

func (d *Device) CreateFramebuffer(desc *hal.FramebufferDescriptor) (hal.Framebuffer, error) {
	views := unwrapAll[vk.ImageView](desc.Attachments)
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(d.handle, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      unwrap[vk.RenderPass](desc.RenderPass),
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          1,
	}, nil, &fb)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return newHandle(d.handle, fb, vk.DestroyFramebuffer), nil
}

func (d *Device) CreateShaderModule(code []uint32) (hal.ShaderModule, error) {
	var m vk.ShaderModule
	ret := vk.CreateShaderModule(d.handle, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}, nil, &m)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return newHandle(d.handle, m, vk.DestroyShaderModule), nil
}

func (d *Device) CreatePipelineLayout() (hal.PipelineLayout, error) {
	var l vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.handle, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}, nil, &l)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return newHandle(d.handle, l, vk.DestroyPipelineLayout), nil
}

func (d *Device) CreateGraphicsPipeline(desc *hal.PipelineDescriptor) (hal.Pipeline, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, len(desc.Stages))
	for i, s := range desc.Stages {
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  s.Stage,
			Module: unwrap[vk.ShaderModule](s.Module),
			PName:  safeString(s.Entry),
		}
	}
	blend := vk.False
	if desc.BlendEnable {
		blend = vk.True
	}
	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: desc.Topology,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			PViewports:    []vk.Viewport{desc.Viewport},
			ScissorCount:  1,
			PScissors:     []vk.Rect2D{desc.Scissor},
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: desc.PolygonMode,
			CullMode:    desc.CullMode,
			FrontFace:   desc.FrontFace,
			LineWidth:   desc.LineWidth,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: desc.Samples,
			MinSampleShading:     1,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOp:         vk.LogicOpCopy,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.Bool32(blend),
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorZero,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      desc.ColorWriteMask,
			}},
		},
		Layout:            unwrap[vk.PipelineLayout](desc.Layout),
		RenderPass:        unwrap[vk.RenderPass](desc.RenderPass),
		Subpass:           desc.Subpass,
		BasePipelineIndex: -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(d.handle, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return newHandle(d.handle, pipelines[0], vk.DestroyPipeline), nil
}

func (d *Device) CreateSemaphore() (hal.Semaphore, error) {
	var s vk.Semaphore
	ret := vk.CreateSemaphore(d.handle, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &s)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return newHandle(d.handle, s, vk.DestroySemaphore), nil
}

func (d *Device) CreateFence(signaled bool) (hal.Fence, error) {
	info := &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := newError(vk.CreateFence(d.handle, info, nil, &f)); err != nil {
		return nil, err
	}
	return newHandle(d.handle, f, vk.DestroyFence), nil
}

func (d *Device) WaitForFence(f hal.Fence) error {
	fences := []vk.Fence{unwrap[vk.Fence](f)}
	return newError(vk.WaitForFences(d.handle, 1, fences, vk.True, math.MaxUint64))
}

func (d *Device) ResetFence(f hal.Fence) error {
	fences := []vk.Fence{unwrap[vk.Fence](f)}
	return newError(vk.ResetFences(d.handle, 1, fences))
}

func (d *Device) AcquireNextImage(sc hal.Swapchain, signal hal.Semaphore) (uint32, hal.PresentStatus, error) {
	s, ok := sc.(*Swapchain)
	if !ok || s == nil {
		return 0, hal.PresentOK, fmt.Errorf("vkdriver: acquire from %T", sc)
	}
	var idx uint32
	ret := vk.AcquireNextImage(d.handle, s.handle, math.MaxUint64,
		unwrap[vk.Semaphore](signal), vk.NullFence, &idx)
	return idx, presentStatus(ret), statusError(ret)
}

// presentStatus classifies the results acquire and present may return.
func presentStatus(ret vk.Result) hal.PresentStatus {
	switch ret {
	case vk.Suboptimal:
		return hal.PresentSuboptimal
	case vk.ErrorOutOfDate:
		return hal.PresentOutOfDate
	}
	return hal.PresentOK
}

func statusError(ret vk.Result) error {
	switch ret {
	case vk.Success, vk.Suboptimal, vk.ErrorOutOfDate:
		return nil
	}
	return newError(ret)
}
