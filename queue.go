package osrevk

import (
	"github.com/andewx/osrevk/hal"
)

// NoQueueFamily marks an unset queue family index.
const NoQueueFamily = ^uint32(0)

// QueueFamilySelection is the pair of families the device is created with.
type QueueFamilySelection struct {
	Graphics uint32
	Present  uint32
}

// Valid reports whether both roles are assigned.
func (q QueueFamilySelection) Valid() bool {
	return q.Graphics != NoQueueFamily && q.Present != NoQueueFamily
}

// Combined reports whether one family serves both roles.
func (q QueueFamilySelection) Combined() bool {
	return q.Graphics == q.Present
}

func (q QueueFamilySelection) queueDescriptors() []hal.QueueDescriptor {
	descs := []hal.QueueDescriptor{{Family: q.Graphics, Priorities: []float32{1.0}}}
	if !q.Combined() {
		descs = append(descs, hal.QueueDescriptor{Family: q.Present, Priorities: []float32{1.0}})
	}
	return descs
}

// LogicalDevice is the created device with its graphics and present queues.
// When the families are combined both queues are the same.
type LogicalDevice struct {
	Handle   hal.Device
	Graphics hal.Queue
	Present  hal.Queue
	Families QueueFamilySelection
}

func createLogicalDevice(c *PhysicalDeviceCandidate, sel QueueFamilySelection, extensions, layers []string) (*LogicalDevice, error) {
	const stage = "logical device"

	dev, err := c.Handle.CreateDevice(&hal.DeviceDescriptor{
		Queues:     sel.queueDescriptors(),
		Extensions: extensions,
		Layers:     layers,
	})
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	ld := &LogicalDevice{Handle: dev, Families: sel}
	if ld.Graphics, err = dev.Queue(sel.Graphics); err != nil {
		dev.Destroy()
		return nil, stageError(ResourceCreationError, stage, err)
	}
	ld.Present = ld.Graphics
	if !sel.Combined() {
		if ld.Present, err = dev.Queue(sel.Present); err != nil {
			dev.Destroy()
			return nil, stageError(ResourceCreationError, stage, err)
		}
	}
	return ld, nil
}

func (d *LogicalDevice) waitIdle() error {
	if d == nil || d.Handle == nil {
		return nil
	}
	if err := d.Handle.WaitIdle(); err != nil {
		return stageError(SynchronizationError, "device idle", err)
	}
	return nil
}

func (d *LogicalDevice) destroy() {
	if d == nil || d.Handle == nil {
		return
	}
	d.Handle.Destroy()
	d.Handle, d.Graphics, d.Present = nil, nil, nil
}
