package osrevk

import (
	"fmt"
	"log/slog"

	"github.com/andewx/osrevk/hal"
)

// minImageDimension2D is accepted in place of a 1.x API version.
const minImageDimension2D = 4096

// PhysicalDeviceCandidate is a GPU with the capabilities the selector looked
// at. It is never modified after inspection.
type PhysicalDeviceCandidate struct {
	Handle         hal.PhysicalDevice
	Properties     hal.DeviceProperties
	Extensions     []string
	Families       []hal.QueueFamily
	PresentSupport []bool
}

func inspectCandidate(pd hal.PhysicalDevice, surface hal.Surface) (*PhysicalDeviceCandidate, error) {
	exts, err := pd.Extensions()
	if err != nil {
		return nil, err
	}
	c := &PhysicalDeviceCandidate{
		Handle:     pd,
		Properties: pd.Properties(),
		Extensions: exts,
		Families:   pd.QueueFamilies(),
	}
	c.PresentSupport = make([]bool, len(c.Families))
	for i := range c.Families {
		ok, err := pd.SurfaceSupport(uint32(i), surface)
		if err != nil {
			return nil, err
		}
		c.PresentSupport[i] = ok
	}
	return c, nil
}

// check returns why the candidate cannot be used, or nil.
func (c *PhysicalDeviceCandidate) check(required []string) error {
	if miss := missing(c.Extensions, required); len(miss) > 0 {
		return fmt.Errorf("missing device extensions %v", miss)
	}
	if c.Properties.APIMajor() < 1 && c.Properties.MaxImageDimension2D < minImageDimension2D {
		return fmt.Errorf("api version %d.x with max image dimension %d",
			c.Properties.APIMajor(), c.Properties.MaxImageDimension2D)
	}
	graphics := false
	for _, f := range c.Families {
		if f.Graphics() {
			graphics = true
			break
		}
	}
	if !graphics {
		return fmt.Errorf("no graphics queue family")
	}
	return nil
}

// SelectQueueFamilies picks the graphics and present families. The first
// family able to do both wins; otherwise the first graphics family is paired
// with the first family that can present.
func SelectQueueFamilies(families []hal.QueueFamily, present []bool) QueueFamilySelection {
	sel := QueueFamilySelection{Graphics: NoQueueFamily, Present: NoQueueFamily}
	for i, f := range families {
		if !f.Graphics() {
			continue
		}
		if sel.Graphics == NoQueueFamily {
			sel.Graphics = uint32(i)
		}
		if i < len(present) && present[i] {
			return QueueFamilySelection{Graphics: uint32(i), Present: uint32(i)}
		}
	}
	for i := range families {
		if i < len(present) && present[i] {
			sel.Present = uint32(i)
			break
		}
	}
	return sel
}

// SelectDevice returns the first physical device that has the required
// extensions, a graphics family and a family that can present to surface.
func SelectDevice(inst hal.Instance, surface hal.Surface, required []string, log *slog.Logger) (*PhysicalDeviceCandidate, QueueFamilySelection, error) {
	const stage = "device selection"
	none := QueueFamilySelection{Graphics: NoQueueFamily, Present: NoQueueFamily}

	gpus, err := inst.EnumeratePhysicalDevices()
	if err != nil {
		return nil, none, stageError(DeviceSelectionError, stage, err)
	}
	if len(gpus) == 0 {
		return nil, none, stageErrorf(DeviceSelectionError, stage, "no physical devices")
	}

	var queryErr error
	for _, pd := range gpus {
		props := pd.Properties()
		c, err := inspectCandidate(pd, surface)
		if err != nil {
			log.Debug("device rejected", "device", props.Name, "reason", err)
			queryErr = err
			continue
		}
		if err := c.check(required); err != nil {
			log.Debug("device rejected", "device", props.Name, "reason", err)
			continue
		}
		sel := SelectQueueFamilies(c.Families, c.PresentSupport)
		if !sel.Valid() {
			log.Debug("device rejected", "device", props.Name, "reason", "no graphics and present family pair")
			continue
		}
		log.Info("device selected", "device", props.Name, "type", props.Type,
			"graphics", sel.Graphics, "present", sel.Present)
		return c, sel, nil
	}
	if queryErr != nil {
		return nil, none, stageErrorf(DeviceSelectionError, stage, "none of %d devices is suitable: %w", len(gpus), queryErr)
	}
	return nil, none, stageErrorf(DeviceSelectionError, stage, "none of %d devices is suitable", len(gpus))
}
