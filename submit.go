package osrevk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// submitAndPresent renders one frame with the pre-recorded buffer of the
// acquired image. stale reports that the swapchain no longer matches the
// surface; when acquire already reports it nothing is submitted.
func (b *Backend) submitAndPresent() (stale bool, err error) {
	const stage = "present"

	dev := b.device.Handle
	if err := dev.WaitForFence(b.sync.inFlight); err != nil {
		return false, stageError(SynchronizationError, stage, err)
	}
	idx, acquired, err := dev.AcquireNextImage(b.swapchain.handle, b.sync.imageAvailable)
	if err != nil {
		return false, stageError(SynchronizationError, stage, err)
	}
	if acquired == hal.PresentOutOfDate {
		return true, nil
	}
	if int(idx) >= len(b.commands.buffers) {
		return false, stageErrorf(SynchronizationError, stage, "acquired image %d of %d", idx, len(b.commands.buffers))
	}
	// only reset once a submit that signals it is certain
	if err := dev.ResetFence(b.sync.inFlight); err != nil {
		return false, stageError(SynchronizationError, stage, err)
	}

	err = b.device.Graphics.Submit(&hal.SubmitDescriptor{
		Buffers:    []hal.CommandBuffer{b.commands.buffers[idx]},
		Wait:       []hal.Semaphore{b.sync.imageAvailable},
		WaitStages: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		Signal:     []hal.Semaphore{b.sync.renderingFinished},
		Fence:      b.sync.inFlight,
	})
	if err != nil {
		return false, stageError(SynchronizationError, stage, err)
	}
	b.frames++

	presented, err := b.device.Present.Present(&hal.PresentDescriptor{
		Swapchain:  b.swapchain.handle,
		ImageIndex: idx,
		Wait:       []hal.Semaphore{b.sync.renderingFinished},
	})
	if err != nil {
		return false, stageError(SynchronizationError, stage, err)
	}
	return acquired.Stale() || presented.Stale(), nil
}
