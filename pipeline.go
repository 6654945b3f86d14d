package osrevk

import (
	"errors"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// PipelineBuilder assembles a graphics pipeline. The defaults draw filled
// triangle lists, cull back faces wound counter-clockwise and write all four
// color channels without blending.
type PipelineBuilder struct {
	desc hal.PipelineDescriptor
}

func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{desc: hal.PipelineDescriptor{
		Topology:    vk.PrimitiveTopologyTriangleList,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
		Samples:     vk.SampleCount1Bit,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}}
}

// Stage adds a shader stage with entry point "main".
func (b *PipelineBuilder) Stage(stage vk.ShaderStageFlagBits, m hal.ShaderModule) *PipelineBuilder {
	b.desc.Stages = append(b.desc.Stages, hal.ShaderStage{Stage: stage, Module: m, Entry: "main"})
	return b
}

func (b *PipelineBuilder) Topology(t vk.PrimitiveTopology) *PipelineBuilder {
	b.desc.Topology = t
	return b
}

// Extent sets a full viewport and scissor of the given size.
func (b *PipelineBuilder) Extent(e vk.Extent2D) *PipelineBuilder {
	b.desc.Viewport = vk.Viewport{
		Width:    float32(e.Width),
		Height:   float32(e.Height),
		MaxDepth: 1.0,
	}
	b.desc.Scissor = vk.Rect2D{Extent: e}
	return b
}

func (b *PipelineBuilder) Rasterizer(mode vk.PolygonMode, cull vk.CullModeFlags, front vk.FrontFace) *PipelineBuilder {
	b.desc.PolygonMode, b.desc.CullMode, b.desc.FrontFace = mode, cull, front
	return b
}

func (b *PipelineBuilder) Blend(enable bool) *PipelineBuilder {
	b.desc.BlendEnable = enable
	return b
}

func (b *PipelineBuilder) Layout(l hal.PipelineLayout) *PipelineBuilder {
	b.desc.Layout = l
	return b
}

func (b *PipelineBuilder) RenderPass(rp hal.RenderPass, subpass uint32) *PipelineBuilder {
	b.desc.RenderPass, b.desc.Subpass = rp, subpass
	return b
}

// Validate reports the first missing piece of state.
func (b *PipelineBuilder) Validate() error {
	var vertex, fragment bool
	for _, s := range b.desc.Stages {
		if s.Module == nil {
			return errors.New("pipeline: shader stage without module")
		}
		switch s.Stage {
		case vk.ShaderStageVertexBit:
			vertex = true
		case vk.ShaderStageFragmentBit:
			fragment = true
		}
	}
	switch {
	case !vertex:
		return errors.New("pipeline: no vertex stage")
	case !fragment:
		return errors.New("pipeline: no fragment stage")
	case b.desc.Layout == nil:
		return errors.New("pipeline: no layout")
	case b.desc.RenderPass == nil:
		return errors.New("pipeline: no render pass")
	case b.desc.Scissor.Extent.Width == 0 || b.desc.Scissor.Extent.Height == 0:
		return errors.New("pipeline: empty viewport")
	}
	return nil
}

// Build validates the state and creates the pipeline. A nil error means the
// pipeline was created.
func (b *PipelineBuilder) Build(dev hal.Device) (hal.Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, stageError(ResourceCreationError, "pipeline", err)
	}
	desc := b.desc
	desc.Stages = append([]hal.ShaderStage(nil), b.desc.Stages...)
	p, err := dev.CreateGraphicsPipeline(&desc)
	if err != nil {
		return nil, stageError(ResourceCreationError, "pipeline", err)
	}
	return p, nil
}
