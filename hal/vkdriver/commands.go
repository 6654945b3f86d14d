package vkdriver

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

type CommandPool struct {
	dev    vk.Device
	handle vk.CommandPool
}

func (d *Device) CreateCommandPool(family uint32) (hal.CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(d.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}, nil, &pool)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return &CommandPool{dev: d.handle, handle: pool}, nil
}

func (p *CommandPool) Destroy() {
	if p.handle == vk.CommandPool(vk.NullHandle) {
		return
	}
	vk.DestroyCommandPool(p.dev, p.handle, nil)
	p.handle = vk.CommandPool(vk.NullHandle)
}

func (p *CommandPool) Allocate(count int) ([]hal.CommandBuffer, error) {
	if count == 0 {
		return nil, nil
	}
	bufs := make([]vk.CommandBuffer, count)
	ret := vk.AllocateCommandBuffers(p.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, bufs)
	if err := newError(ret); err != nil {
		return nil, err
	}
	out := make([]hal.CommandBuffer, count)
	for i, b := range bufs {
		out[i] = &CommandBuffer{handle: b}
	}
	return out, nil
}

func (p *CommandPool) Free(bufs ...hal.CommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(bufs))
	for _, b := range bufs {
		if cb, ok := b.(*CommandBuffer); ok && cb != nil && cb.handle != nil {
			handles = append(handles, cb.handle)
			cb.handle = nil
		}
	}
	if len(handles) > 0 {
		vk.FreeCommandBuffers(p.dev, p.handle, uint32(len(handles)), handles)
	}
}

type CommandBuffer struct {
	handle vk.CommandBuffer
}

func (c *CommandBuffer) Begin(flags vk.CommandBufferUsageFlags) error {
	return newError(vk.BeginCommandBuffer(c.handle, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}))
}

func (c *CommandBuffer) End() error {
	return newError(vk.EndCommandBuffer(c.handle))
}

func (c *CommandBuffer) Reset() error {
	return newError(vk.ResetCommandBuffer(c.handle, 0))
}

func (c *CommandBuffer) PipelineBarrier(b *hal.ImageBarrier) {
	image, _ := b.Image.(vk.Image)
	vk.CmdPipelineBarrier(c.handle, b.SrcStage, b.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		OldLayout:           b.OldLayout,
		NewLayout:           b.NewLayout,
		SrcQueueFamilyIndex: b.SrcQueueFamily,
		DstQueueFamilyIndex: b.DstQueueFamily,
		Image:               image,
		SubresourceRange:    colorRange,
	}})
}

func (c *CommandBuffer) BeginRenderPass(desc *hal.RenderPassBeginDescriptor) {
	vk.CmdBeginRenderPass(c.handle, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      unwrap[vk.RenderPass](desc.RenderPass),
		Framebuffer:     unwrap[vk.Framebuffer](desc.Framebuffer),
		RenderArea:      desc.Area,
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(desc.ClearColor[:])},
	}, vk.SubpassContentsInline)
}

func (c *CommandBuffer) BindPipeline(p hal.Pipeline) {
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointGraphics, unwrap[vk.Pipeline](p))
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(c.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.handle)
}

type Queue struct {
	handle vk.Queue
	family uint32
}

func (q *Queue) Family() uint32 { return q.family }

func (q *Queue) Submit(desc *hal.SubmitDescriptor) error {
	bufs := make([]vk.CommandBuffer, 0, len(desc.Buffers))
	for _, b := range desc.Buffers {
		if cb, ok := b.(*CommandBuffer); ok && cb != nil {
			bufs = append(bufs, cb.handle)
		}
	}
	wait := unwrapAll[vk.Semaphore](desc.Wait)
	signal := unwrapAll[vk.Semaphore](desc.Signal)
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    desc.WaitStages,
		CommandBufferCount:   uint32(len(bufs)),
		PCommandBuffers:      bufs,
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}
	fence := vk.NullFence
	if desc.Fence != nil {
		fence = unwrap[vk.Fence](desc.Fence)
	}
	return newError(vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{info}, fence))
}

func (q *Queue) WaitIdle() error {
	return newError(vk.QueueWaitIdle(q.handle))
}

func (q *Queue) Present(desc *hal.PresentDescriptor) (hal.PresentStatus, error) {
	sc, _ := desc.Swapchain.(*Swapchain)
	if sc == nil {
		return hal.PresentOK, errNoSwapchain
	}
	wait := unwrapAll[vk.Semaphore](desc.Wait)
	ret := vk.QueuePresent(q.handle, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{desc.ImageIndex},
	})
	return presentStatus(ret), statusError(ret)
}
