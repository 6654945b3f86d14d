package osrevk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// CommandRecorder owns the command pool on the graphics family and one
// primary command buffer per swapchain image.
type CommandRecorder struct {
	pool     hal.CommandPool
	buffers  []hal.CommandBuffer
	families QueueFamilySelection
}

func newCommandRecorder(dev *LogicalDevice) (*CommandRecorder, error) {
	pool, err := dev.Handle.CreateCommandPool(dev.Families.Graphics)
	if err != nil {
		return nil, stageError(ResourceCreationError, "command pool", err)
	}
	return &CommandRecorder{pool: pool, families: dev.Families}, nil
}

// recordAll replaces every command buffer with a fresh one per image and
// records the frame into each. The current buffers stay untouched if
// recording fails.
func (r *CommandRecorder) recordAll(sc *Swapchain, t *frameTargets, clear [4]float32) error {
	bufs, err := r.recordNew(sc, t, clear)
	if err != nil {
		return err
	}
	r.adopt(bufs)
	return nil
}

// recordNew allocates one buffer per image of sc and records the frame into
// each. On failure the new buffers are returned to the pool.
func (r *CommandRecorder) recordNew(sc *Swapchain, t *frameTargets, clear [4]float32) ([]hal.CommandBuffer, error) {
	bufs, err := r.pool.Allocate(sc.Len())
	if err != nil {
		return nil, stageError(ResourceCreationError, "command buffers", err)
	}
	for i, buf := range bufs {
		if err := r.record(buf, i, sc, t, clear); err != nil {
			r.pool.Free(bufs...)
			return nil, err
		}
	}
	return bufs, nil
}

// adopt frees the current buffers and replaces them with bufs.
func (r *CommandRecorder) adopt(bufs []hal.CommandBuffer) {
	r.free()
	r.buffers = bufs
}

func (r *CommandRecorder) record(buf hal.CommandBuffer, i int, sc *Swapchain, t *frameTargets, clear [4]float32) error {
	const stage = "command buffers"

	img := sc.images[i].Image
	if err := buf.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)); err != nil {
		return stageError(ResourceCreationError, stage, err)
	}
	if !r.families.Combined() {
		buf.PipelineBarrier(&hal.ImageBarrier{
			Image:          img,
			SrcStage:       vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStage:       vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccess:      vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccess:      vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			OldLayout:      vk.ImageLayoutPresentSrc,
			NewLayout:      vk.ImageLayoutPresentSrc,
			SrcQueueFamily: r.families.Present,
			DstQueueFamily: r.families.Graphics,
		})
	}
	buf.BeginRenderPass(&hal.RenderPassBeginDescriptor{
		RenderPass:  t.renderPass,
		Framebuffer: t.framebuffers[i],
		Area:        vk.Rect2D{Extent: sc.config.Extent},
		ClearColor:  clear,
	})
	buf.BindPipeline(t.pipeline)
	buf.Draw(3, 1, 0, 0)
	buf.EndRenderPass()
	if !r.families.Combined() {
		buf.PipelineBarrier(&hal.ImageBarrier{
			Image:          img,
			SrcStage:       vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStage:       vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccess:      vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccess:      vk.AccessFlags(vk.AccessMemoryReadBit),
			OldLayout:      vk.ImageLayoutPresentSrc,
			NewLayout:      vk.ImageLayoutPresentSrc,
			SrcQueueFamily: r.families.Graphics,
			DstQueueFamily: r.families.Present,
		})
	}
	if err := buf.End(); err != nil {
		return stageError(ResourceCreationError, stage, err)
	}
	return nil
}

// beginOneShot allocates a buffer for one-off work and starts recording.
func (r *CommandRecorder) beginOneShot() (hal.CommandBuffer, error) {
	bufs, err := r.pool.Allocate(1)
	if err != nil {
		return nil, stageError(ResourceCreationError, "command buffers", err)
	}
	if err := bufs[0].Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)); err != nil {
		r.pool.Free(bufs[0])
		return nil, stageError(ResourceCreationError, "command buffers", err)
	}
	return bufs[0], nil
}

// flush ends buf, submits it and waits for q to go idle. With free set the
// buffer is returned to the pool afterwards.
func (r *CommandRecorder) flush(buf hal.CommandBuffer, q hal.Queue, free bool) error {
	if free {
		defer r.pool.Free(buf)
	}
	if err := buf.End(); err != nil {
		return stageError(ResourceCreationError, "flush", err)
	}
	if err := q.Submit(&hal.SubmitDescriptor{Buffers: []hal.CommandBuffer{buf}}); err != nil {
		return stageError(SynchronizationError, "flush", err)
	}
	if err := q.WaitIdle(); err != nil {
		return stageError(SynchronizationError, "flush", err)
	}
	return nil
}

// primeImages moves freshly created swapchain images into the presentable
// layout so every recorded frame starts from the same layout.
func (r *CommandRecorder) primeImages(sc *Swapchain, q hal.Queue) error {
	buf, err := r.beginOneShot()
	if err != nil {
		return err
	}
	for _, img := range sc.images {
		buf.PipelineBarrier(&hal.ImageBarrier{
			Image:          img.Image,
			SrcStage:       vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:       vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstAccess:      vk.AccessFlags(vk.AccessMemoryReadBit),
			OldLayout:      vk.ImageLayoutUndefined,
			NewLayout:      vk.ImageLayoutPresentSrc,
			SrcQueueFamily: hal.QueueIgnored,
			DstQueueFamily: hal.QueueIgnored,
		})
	}
	return r.flush(buf, q, true)
}

func (r *CommandRecorder) free() {
	if len(r.buffers) > 0 {
		r.pool.Free(r.buffers...)
	}
	r.buffers = nil
}

func (r *CommandRecorder) destroy() {
	if r == nil || r.pool == nil {
		return
	}
	r.free()
	r.pool.Destroy()
	r.pool = nil
}
