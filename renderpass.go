package osrevk

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// RenderPassBuilder assembles a render pass descriptor. Modifiers apply to
// the most recently added attachment.
type RenderPassBuilder struct {
	desc hal.RenderPassDescriptor
	err  error
}

func NewRenderPassBuilder() *RenderPassBuilder {
	return &RenderPassBuilder{desc: hal.RenderPassDescriptor{ExternalDependency: true}}
}

// ColorAttachment adds a single-sampled color attachment that is cleared,
// stored and left ready for presentation.
func (b *RenderPassBuilder) ColorAttachment(format vk.Format) *RenderPassBuilder {
	b.desc.ColorAttachments = append(b.desc.ColorAttachments, hal.AttachmentDescriptor{
		Format:        format,
		Samples:       vk.SampleCount1Bit,
		LoadOp:        vk.AttachmentLoadOpClear,
		StoreOp:       vk.AttachmentStoreOpStore,
		InitialLayout: vk.ImageLayoutUndefined,
		FinalLayout:   vk.ImageLayoutPresentSrc,
	})
	return b
}

func (b *RenderPassBuilder) last(op string) *hal.AttachmentDescriptor {
	if len(b.desc.ColorAttachments) == 0 {
		if b.err == nil {
			b.err = fmt.Errorf("render pass: %s before any attachment", op)
		}
		return nil
	}
	return &b.desc.ColorAttachments[len(b.desc.ColorAttachments)-1]
}

func (b *RenderPassBuilder) Samples(s vk.SampleCountFlagBits) *RenderPassBuilder {
	if a := b.last("Samples"); a != nil {
		a.Samples = s
	}
	return b
}

func (b *RenderPassBuilder) Ops(load vk.AttachmentLoadOp, store vk.AttachmentStoreOp) *RenderPassBuilder {
	if a := b.last("Ops"); a != nil {
		a.LoadOp, a.StoreOp = load, store
	}
	return b
}

func (b *RenderPassBuilder) Layouts(initial, final vk.ImageLayout) *RenderPassBuilder {
	if a := b.last("Layouts"); a != nil {
		a.InitialLayout, a.FinalLayout = initial, final
	}
	return b
}

func (b *RenderPassBuilder) ExternalDependency(on bool) *RenderPassBuilder {
	b.desc.ExternalDependency = on
	return b
}

// Descriptor validates and returns the assembled descriptor.
func (b *RenderPassBuilder) Descriptor() (*hal.RenderPassDescriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.desc.ColorAttachments) == 0 {
		return nil, errors.New("render pass: no color attachment")
	}
	for i, a := range b.desc.ColorAttachments {
		if a.Format == vk.FormatUndefined {
			return nil, fmt.Errorf("render pass: attachment %d has no format", i)
		}
		if a.FinalLayout == vk.ImageLayoutUndefined {
			return nil, fmt.Errorf("render pass: attachment %d has no final layout", i)
		}
		if a.Samples == 0 {
			return nil, fmt.Errorf("render pass: attachment %d has no sample count", i)
		}
	}
	desc := b.desc
	desc.ColorAttachments = append([]hal.AttachmentDescriptor(nil), b.desc.ColorAttachments...)
	return &desc, nil
}

func (b *RenderPassBuilder) Build(dev hal.Device) (hal.RenderPass, error) {
	desc, err := b.Descriptor()
	if err != nil {
		return nil, stageError(ResourceCreationError, "render pass", err)
	}
	rp, err := dev.CreateRenderPass(desc)
	if err != nil {
		return nil, stageError(ResourceCreationError, "render pass", err)
	}
	return rp, nil
}

// createFramebuffers makes one framebuffer per swapchain image view.
func createFramebuffers(dev hal.Device, pass hal.RenderPass, sc *Swapchain) ([]hal.Framebuffer, error) {
	fbs := make([]hal.Framebuffer, 0, sc.Len())
	for i, img := range sc.images {
		fb, err := dev.CreateFramebuffer(&hal.FramebufferDescriptor{
			RenderPass:  pass,
			Attachments: []hal.ImageView{img.View},
			Extent:      sc.config.Extent,
		})
		if err != nil {
			destroyAll(fbs)
			return nil, stageError(ResourceCreationError, "framebuffer", fmt.Errorf("image %d: %w", i, err))
		}
		fbs = append(fbs, fb)
	}
	return fbs, nil
}

func destroyAll[T hal.Resource](list []T) {
	for _, r := range list {
		r.Destroy()
	}
}
