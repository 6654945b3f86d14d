package fakegpu

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

type CommandPool struct {
	*Object
	Family uint32
}

func (dev *Device) CreateCommandPool(family uint32) (hal.CommandPool, error) {
	if err := dev.d.check("CreateCommandPool"); err != nil {
		return nil, err
	}
	return &CommandPool{Object: dev.d.newObject("commandpool"), Family: family}, nil
}

func (p *CommandPool) Allocate(count int) ([]hal.CommandBuffer, error) {
	if err := p.d.check("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	out := make([]hal.CommandBuffer, count)
	for i := range out {
		cb := &CommandBuffer{Object: p.d.newObject("commandbuffer"), Pool: p}
		p.d.mu.Lock()
		p.d.Buffers = append(p.d.Buffers, cb)
		p.d.mu.Unlock()
		out[i] = cb
	}
	return out, nil
}

func (p *CommandPool) Free(bufs ...hal.CommandBuffer) {
	for _, b := range bufs {
		if cb, ok := b.(*CommandBuffer); ok && cb != nil {
			cb.Object.Destroy()
		}
	}
}

// CommandBuffer keeps a textual trace of the commands recorded since the last
// Begin or Reset.
type CommandBuffer struct {
	*Object
	Pool      *CommandPool
	Trace     []string
	Recording bool
	Recorded  int
}

func (c *CommandBuffer) Begin(flags vk.CommandBufferUsageFlags) error {
	if err := c.d.check("BeginCommandBuffer"); err != nil {
		return err
	}
	if c.Recording {
		return errors.New("fakegpu: begin on a recording command buffer")
	}
	c.Recording = true
	c.Trace = []string{fmt.Sprintf("begin %d", flags)}
	return nil
}

func (c *CommandBuffer) End() error {
	if err := c.d.check("EndCommandBuffer"); err != nil {
		return err
	}
	if !c.Recording {
		return errors.New("fakegpu: end on a command buffer that is not recording")
	}
	c.Recording = false
	c.Recorded++
	c.Trace = append(c.Trace, "end")
	return nil
}

func (c *CommandBuffer) Reset() error {
	if err := c.d.check("ResetCommandBuffer"); err != nil {
		return err
	}
	c.Recording = false
	c.Trace = nil
	return nil
}

func (c *CommandBuffer) PipelineBarrier(b *hal.ImageBarrier) {
	c.Trace = append(c.Trace, fmt.Sprintf("barrier q%d->q%d", b.SrcQueueFamily, b.DstQueueFamily))
}

func (c *CommandBuffer) BeginRenderPass(desc *hal.RenderPassBeginDescriptor) {
	c.Trace = append(c.Trace, fmt.Sprintf("beginpass %dx%d", desc.Area.Extent.Width, desc.Area.Extent.Height))
}

func (c *CommandBuffer) BindPipeline(p hal.Pipeline) {
	name := "<nil>"
	if pp, ok := p.(*Pipeline); ok && pp != nil {
		name = pp.String()
	}
	c.Trace = append(c.Trace, "bind "+name)
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.Trace = append(c.Trace, fmt.Sprintf("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance))
}

func (c *CommandBuffer) EndRenderPass() {
	c.Trace = append(c.Trace, "endpass")
}
