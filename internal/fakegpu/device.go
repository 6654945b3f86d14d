package fakegpu

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
)

// ErrFenceNeverSignaled is returned when waiting on a fence that no
// submission will ever signal.
var ErrFenceNeverSignaled = errors.New("fakegpu: wait on fence that is never signaled")

type PhysicalDevice struct {
	d   *Driver
	GPU *GPU
}

func (p *PhysicalDevice) Properties() hal.DeviceProperties { return p.GPU.Props }

func (p *PhysicalDevice) Extensions() ([]string, error) {
	if err := p.d.check("DeviceExtensions"); err != nil {
		return nil, err
	}
	return append([]string(nil), p.GPU.Extensions...), nil
}

func (p *PhysicalDevice) QueueFamilies() []hal.QueueFamily {
	return append([]hal.QueueFamily(nil), p.GPU.Families...)
}

func (p *PhysicalDevice) SurfaceSupport(family uint32, _ hal.Surface) (bool, error) {
	if err := p.d.check("SurfaceSupport"); err != nil {
		return false, err
	}
	if int(family) >= len(p.GPU.PresentSupport) {
		return false, nil
	}
	return p.GPU.PresentSupport[family], nil
}

func (p *PhysicalDevice) SurfaceCapabilities(_ hal.Surface) (vk.SurfaceCapabilities, error) {
	if err := p.d.check("SurfaceCapabilities"); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	return p.GPU.Caps, nil
}

func (p *PhysicalDevice) SurfaceFormats(_ hal.Surface) ([]vk.SurfaceFormat, error) {
	if err := p.d.check("SurfaceFormats"); err != nil {
		return nil, err
	}
	return append([]vk.SurfaceFormat(nil), p.GPU.Formats...), nil
}

func (p *PhysicalDevice) PresentModes(_ hal.Surface) ([]vk.PresentMode, error) {
	if err := p.d.check("PresentModes"); err != nil {
		return nil, err
	}
	return append([]vk.PresentMode(nil), p.GPU.PresentModes...), nil
}

func (p *PhysicalDevice) CreateDevice(desc *hal.DeviceDescriptor) (hal.Device, error) {
	if err := p.d.check("CreateDevice"); err != nil {
		return nil, err
	}
	cp := *desc
	p.d.DeviceDesc = &cp
	return &Device{Object: p.d.newObject("device"), GPU: p.GPU}, nil
}

type Device struct {
	*Object
	GPU *GPU
}

func (dev *Device) Queue(family uint32) (hal.Queue, error) {
	if int(family) >= len(dev.GPU.Families) {
		return nil, fmt.Errorf("fakegpu: no queue family %d", family)
	}
	return &Queue{d: dev.d, family: family}, nil
}

func (dev *Device) WaitIdle() error {
	if err := dev.d.check("DeviceWaitIdle"); err != nil {
		return err
	}
	dev.d.event("device wait idle")
	return nil
}

// Swapchain records the descriptor it was created from.
type Swapchain struct {
	*Object
	Desc   hal.SwapchainDescriptor
	images []hal.Image
	next   uint32
}

// Image is a swapchain-owned image.
type Image struct {
	Swapchain int
	Index     int
}

func (dev *Device) CreateSwapchain(desc *hal.SwapchainDescriptor) (hal.Swapchain, error) {
	if err := dev.d.check("CreateSwapchain"); err != nil {
		return nil, err
	}
	sc := &Swapchain{Object: dev.d.newObject("swapchain"), Desc: *desc}
	if old, ok := desc.Old.(*Swapchain); ok && old != nil {
		dev.d.event("retire %s", old)
	}
	for i := 0; i < int(desc.MinImageCount); i++ {
		sc.images = append(sc.images, &Image{Swapchain: sc.ID, Index: i})
	}
	dev.d.mu.Lock()
	dev.d.Swapchains = append(dev.d.Swapchains, sc)
	dev.d.mu.Unlock()
	return sc, nil
}

func (sc *Swapchain) Images() ([]hal.Image, error) {
	if err := sc.d.check("SwapchainImages"); err != nil {
		return nil, err
	}
	return append([]hal.Image(nil), sc.images...), nil
}

func (dev *Device) CreateImageView(_ hal.Image, _ vk.Format) (hal.ImageView, error) {
	if err := dev.d.check("CreateImageView"); err != nil {
		return nil, err
	}
	return dev.d.newObject("imageview"), nil
}

type RenderPass struct {
	*Object
	Desc hal.RenderPassDescriptor
}

func (dev *Device) CreateRenderPass(desc *hal.RenderPassDescriptor) (hal.RenderPass, error) {
	if err := dev.d.check("CreateRenderPass"); err != nil {
		return nil, err
	}
	return &RenderPass{Object: dev.d.newObject("renderpass"), Desc: *desc}, nil
}

type Framebuffer struct {
	*Object
	Desc hal.FramebufferDescriptor
}

func (dev *Device) CreateFramebuffer(desc *hal.FramebufferDescriptor) (hal.Framebuffer, error) {
	if err := dev.d.check("CreateFramebuffer"); err != nil {
		return nil, err
	}
	return &Framebuffer{Object: dev.d.newObject("framebuffer"), Desc: *desc}, nil
}

func (dev *Device) CreateShaderModule(code []uint32) (hal.ShaderModule, error) {
	if err := dev.d.check("CreateShaderModule"); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, errors.New("fakegpu: empty shader code")
	}
	return dev.d.newObject("shadermodule"), nil
}

func (dev *Device) CreatePipelineLayout() (hal.PipelineLayout, error) {
	if err := dev.d.check("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	return dev.d.newObject("pipelinelayout"), nil
}

type Pipeline struct {
	*Object
	Desc hal.PipelineDescriptor
}

func (dev *Device) CreateGraphicsPipeline(desc *hal.PipelineDescriptor) (hal.Pipeline, error) {
	if err := dev.d.check("CreateGraphicsPipeline"); err != nil {
		return nil, err
	}
	p := &Pipeline{Object: dev.d.newObject("pipeline"), Desc: *desc}
	dev.d.mu.Lock()
	dev.d.Pipelines = append(dev.d.Pipelines, p)
	dev.d.mu.Unlock()
	return p, nil
}

type Fence struct {
	*Object
	Signaled bool
}

func (dev *Device) CreateSemaphore() (hal.Semaphore, error) {
	if err := dev.d.check("CreateSemaphore"); err != nil {
		return nil, err
	}
	return dev.d.newObject("semaphore"), nil
}

func (dev *Device) CreateFence(signaled bool) (hal.Fence, error) {
	if err := dev.d.check("CreateFence"); err != nil {
		return nil, err
	}
	return &Fence{Object: dev.d.newObject("fence"), Signaled: signaled}, nil
}

func (dev *Device) WaitForFence(f hal.Fence) error {
	if err := dev.d.check("WaitForFence"); err != nil {
		return err
	}
	if !f.(*Fence).Signaled {
		return ErrFenceNeverSignaled
	}
	return nil
}

func (dev *Device) ResetFence(f hal.Fence) error {
	if err := dev.d.check("ResetFence"); err != nil {
		return err
	}
	f.(*Fence).Signaled = false
	return nil
}

func (dev *Device) AcquireNextImage(sc hal.Swapchain, _ hal.Semaphore) (uint32, hal.PresentStatus, error) {
	if err := dev.d.check("AcquireNextImage"); err != nil {
		return 0, hal.PresentOK, err
	}
	status := hal.PresentOK
	dev.d.mu.Lock()
	if len(dev.d.AcquireStatuses) > 0 {
		status = dev.d.AcquireStatuses[0]
		dev.d.AcquireStatuses = dev.d.AcquireStatuses[1:]
	}
	dev.d.mu.Unlock()
	s := sc.(*Swapchain)
	if status == hal.PresentOutOfDate {
		return 0, status, nil
	}
	idx := s.next % uint32(len(s.images))
	s.next++
	return idx, status, nil
}

type Queue struct {
	d      *Driver
	family uint32
}

func (q *Queue) Family() uint32 { return q.family }

func (q *Queue) Submit(desc *hal.SubmitDescriptor) error {
	if err := q.d.check("QueueSubmit"); err != nil {
		return err
	}
	if f, ok := desc.Fence.(*Fence); ok && f != nil {
		if f.Signaled {
			return errors.New("fakegpu: submit with a signaled fence")
		}
		f.Signaled = true
	}
	q.d.mu.Lock()
	q.d.Submits = append(q.d.Submits, *desc)
	q.d.mu.Unlock()
	q.d.event("submit q%d", q.family)
	return nil
}

func (q *Queue) WaitIdle() error {
	if err := q.d.check("QueueWaitIdle"); err != nil {
		return err
	}
	q.d.event("queue wait idle q%d", q.family)
	return nil
}

func (q *Queue) Present(desc *hal.PresentDescriptor) (hal.PresentStatus, error) {
	if err := q.d.check("QueuePresent"); err != nil {
		return hal.PresentOK, err
	}
	status := hal.PresentOK
	q.d.mu.Lock()
	if len(q.d.PresentStatuses) > 0 {
		status = q.d.PresentStatuses[0]
		q.d.PresentStatuses = q.d.PresentStatuses[1:]
	}
	q.d.Presents = append(q.d.Presents, *desc)
	q.d.mu.Unlock()
	q.d.event("present q%d image %d", q.family, desc.ImageIndex)
	return status, nil
}
