package osrevk

import (
	"github.com/andewx/osrevk/hal"
)

// SyncPrimitives orders one frame: imageAvailable is signalled by acquire and
// waited on by the submit, renderingFinished is signalled by the submit and
// waited on by present, inFlight keeps the CPU at most one frame ahead.
type SyncPrimitives struct {
	imageAvailable    hal.Semaphore
	renderingFinished hal.Semaphore
	inFlight          hal.Fence
}

func newSyncPrimitives(dev hal.Device) (*SyncPrimitives, error) {
	const stage = "semaphores"

	s := &SyncPrimitives{}
	var err error
	if s.imageAvailable, err = dev.CreateSemaphore(); err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	if s.renderingFinished, err = dev.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, stageError(ResourceCreationError, stage, err)
	}
	if s.inFlight, err = dev.CreateFence(true); err != nil {
		s.destroy()
		return nil, stageError(ResourceCreationError, stage, err)
	}
	return s, nil
}

func (s *SyncPrimitives) destroy() {
	if s == nil {
		return
	}
	if s.imageAvailable != nil {
		s.imageAvailable.Destroy()
		s.imageAvailable = nil
	}
	if s.renderingFinished != nil {
		s.renderingFinished.Destroy()
		s.renderingFinished = nil
	}
	if s.inFlight != nil {
		s.inFlight.Destroy()
		s.inFlight = nil
	}
}
