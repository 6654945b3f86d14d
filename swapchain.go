package osrevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// undefinedExtent is reported as the current extent when the surface lets
// the swapchain decide its size.
const undefinedExtent = ^uint32(0)

// SwapchainConfig is the negotiated swapchain setup. It is recomputed on
// every rebuild.
type SwapchainConfig struct {
	ImageCount     uint32
	Format         vk.Format
	ColorSpace     vk.ColorSpace
	Extent         vk.Extent2D
	Usage          vk.ImageUsageFlags
	Transform      vk.SurfaceTransformFlagBits
	CompositeAlpha vk.CompositeAlphaFlagBits
	PresentMode    vk.PresentMode
}

// ChooseImageCount asks for one image more than the minimum, capped by the
// maximum when the surface reports one.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

// ChooseSurfaceFormat prefers R8G8B8A8_UNORM. A single undefined entry means
// the surface accepts anything.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, stageErrorf(CapabilityUnsupportedError, "swapchain", "surface reports no formats")
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}, nil
	}
	for _, f := range formats {
		if f.Format == vk.FormatR8g8b8a8Unorm {
			return f, nil
		}
	}
	return formats[0], nil
}

// ChooseExtent uses the current extent unless the surface leaves it
// undefined, in which case fallback is clamped into the allowed range.
func ChooseExtent(caps vk.SurfaceCapabilities, fallback vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(fallback.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(fallback.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// ChooseUsage requires color attachment usage.
func ChooseUsage(caps vk.SurfaceCapabilities) (vk.ImageUsageFlags, error) {
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	if caps.SupportedUsageFlags&usage == 0 {
		return 0, stageErrorf(CapabilityUnsupportedError, "swapchain", "surface images cannot be color attachments")
	}
	return usage, nil
}

// ChooseTransform keeps images unrotated when the surface allows it.
func ChooseTransform(caps vk.SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	identity := vk.SurfaceTransformIdentityBit
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&identity != 0 {
		return identity
	}
	return caps.CurrentTransform
}

// ChooseCompositeAlpha takes the first supported mode in order of
// preference, opaque when none is reported.
func ChooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	for _, bit := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(bit) != 0 {
			return bit
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// ChoosePresentMode prefers mailbox and falls back to FIFO. With preferFIFO
// mailbox is never chosen.
func ChoosePresentMode(modes []vk.PresentMode, preferFIFO bool) (vk.PresentMode, error) {
	if !preferFIFO {
		for _, m := range modes {
			if m == vk.PresentModeMailbox {
				return m, nil
			}
		}
	}
	for _, m := range modes {
		if m == vk.PresentModeFifo {
			return m, nil
		}
	}
	return 0, stageErrorf(CapabilityUnsupportedError, "swapchain", "neither mailbox nor fifo present mode in %v", modes)
}

// NegotiateSwapchain queries the surface and applies every Choose rule.
func NegotiateSwapchain(pd hal.PhysicalDevice, surface hal.Surface, fallback vk.Extent2D, preferFIFO bool) (SwapchainConfig, error) {
	const stage = "swapchain"

	caps, err := pd.SurfaceCapabilities(surface)
	if err != nil {
		return SwapchainConfig{}, stageError(ResourceCreationError, stage, err)
	}
	formats, err := pd.SurfaceFormats(surface)
	if err != nil {
		return SwapchainConfig{}, stageError(ResourceCreationError, stage, err)
	}
	modes, err := pd.PresentModes(surface)
	if err != nil {
		return SwapchainConfig{}, stageError(ResourceCreationError, stage, err)
	}

	format, err := ChooseSurfaceFormat(formats)
	if err != nil {
		return SwapchainConfig{}, err
	}
	usage, err := ChooseUsage(caps)
	if err != nil {
		return SwapchainConfig{}, err
	}
	mode, err := ChoosePresentMode(modes, preferFIFO)
	if err != nil {
		return SwapchainConfig{}, err
	}
	return SwapchainConfig{
		ImageCount:     ChooseImageCount(caps),
		Format:         format.Format,
		ColorSpace:     format.ColorSpace,
		Extent:         ChooseExtent(caps, fallback),
		Usage:          usage,
		Transform:      ChooseTransform(caps),
		CompositeAlpha: ChooseCompositeAlpha(caps),
		PresentMode:    mode,
	}, nil
}

// SwapchainImage pairs a presentable image with its view.
type SwapchainImage struct {
	Image hal.Image
	View  hal.ImageView
}

// Swapchain is one generation of presentable images.
type Swapchain struct {
	handle     hal.Swapchain
	config     SwapchainConfig
	images     []SwapchainImage
	generation uint64
}

// createSwapchain builds a swapchain for cfg. When old is non-nil its handle
// is handed to the driver as the retired swapchain; old itself is left for
// the caller to destroy once the new one exists.
func createSwapchain(dev hal.Device, surface hal.Surface, cfg SwapchainConfig, old *Swapchain) (*Swapchain, error) {
	const stage = "swapchain"

	desc := &hal.SwapchainDescriptor{
		Surface:        surface,
		MinImageCount:  cfg.ImageCount,
		Format:         cfg.Format,
		ColorSpace:     cfg.ColorSpace,
		Extent:         cfg.Extent,
		Usage:          cfg.Usage,
		Transform:      cfg.Transform,
		CompositeAlpha: cfg.CompositeAlpha,
		PresentMode:    cfg.PresentMode,
	}
	var generation uint64 = 1
	if old != nil {
		desc.Old = old.handle
		generation = old.generation + 1
	}
	handle, err := dev.CreateSwapchain(desc)
	if err != nil {
		return nil, stageError(ResourceCreationError, stage, err)
	}
	sc := &Swapchain{handle: handle, config: cfg, generation: generation}

	images, err := handle.Images()
	if err != nil {
		sc.destroy()
		return nil, stageError(ResourceCreationError, stage, err)
	}
	if len(images) == 0 {
		sc.destroy()
		return nil, stageErrorf(ResourceCreationError, stage, "swapchain has no images")
	}
	for i, img := range images {
		view, err := dev.CreateImageView(img, cfg.Format)
		if err != nil {
			sc.destroy()
			return nil, stageError(ResourceCreationError, stage, fmt.Errorf("image view %d: %w", i, err))
		}
		sc.images = append(sc.images, SwapchainImage{Image: img, View: view})
	}
	return sc, nil
}

// Len returns the number of images.
func (s *Swapchain) Len() int { return len(s.images) }

func (s *Swapchain) destroy() {
	if s == nil {
		return
	}
	for i := range s.images {
		if s.images[i].View != nil {
			s.images[i].View.Destroy()
		}
	}
	s.images = nil
	if s.handle != nil {
		s.handle.Destroy()
		s.handle = nil
	}
}
