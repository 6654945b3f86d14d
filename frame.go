package osrevk

import (
	"fmt"

	"golang.org/x/image/math/f32"
)

// RenderBatch is one named group of draws inside a pass together with the
// matrices set for it.
type RenderBatch struct {
	Name     string
	Matrices [numMatrixTypes]f32.Mat4
	set      [numMatrixTypes]bool
}

// Matrix returns the matrix set for t and whether it was set.
func (rb *RenderBatch) Matrix(t MatrixType) (f32.Mat4, bool) {
	if !t.valid() {
		return f32.Mat4{}, false
	}
	return rb.Matrices[t], rb.set[t]
}

// Pass is one named pass opened by BeginPass.
type Pass struct {
	Name    string
	Batches []RenderBatch
}

// BeginPass opens a pass. Passes do not nest.
func (b *Backend) BeginPass(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Initialized() {
		return ErrNotInitialized
	}
	if b.pass != nil {
		return fmt.Errorf("%w: BeginPass(%q) while pass %q is open", ErrFrameSequence, name, b.pass.Name)
	}
	b.pass = &Pass{Name: name}
	return nil
}

// BeginRenderBatch opens a batch inside the current pass.
func (b *Backend) BeginRenderBatch(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Initialized() {
		return ErrNotInitialized
	}
	switch {
	case b.pass == nil:
		return fmt.Errorf("%w: BeginRenderBatch(%q) outside a pass", ErrFrameSequence, name)
	case b.batch != nil:
		return fmt.Errorf("%w: BeginRenderBatch(%q) while batch %q is open", ErrFrameSequence, name, b.batch.Name)
	}
	b.batch = &RenderBatch{Name: name}
	return nil
}

// SetMatrix sets a matrix of the open batch. The latest value per type stays
// queryable through Matrix after the frame is submitted.
func (b *Backend) SetMatrix(t MatrixType, m f32.Mat4) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Initialized() {
		return ErrNotInitialized
	}
	if b.batch == nil {
		return fmt.Errorf("%w: SetMatrix(%s) outside a batch", ErrFrameSequence, t)
	}
	if !t.valid() {
		return fmt.Errorf("vlkbackend: unknown matrix type %d", int(t))
	}
	b.batch.Matrices[t] = m
	b.batch.set[t] = true
	b.matrices[t] = m
	return nil
}

// EndRenderBatch closes the open batch.
func (b *Backend) EndRenderBatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Initialized() {
		return ErrNotInitialized
	}
	if b.batch == nil {
		return fmt.Errorf("%w: EndRenderBatch without an open batch", ErrFrameSequence)
	}
	b.pass.Batches = append(b.pass.Batches, *b.batch)
	b.batch = nil
	return nil
}

// EndPass closes the pass and renders a frame with it.
func (b *Backend) EndPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Initialized() {
		return ErrNotInitialized
	}
	switch {
	case b.pass == nil:
		return fmt.Errorf("%w: EndPass without an open pass", ErrFrameSequence)
	case b.batch != nil:
		return fmt.Errorf("%w: EndPass while batch %q is open", ErrFrameSequence, b.batch.Name)
	}
	b.last = b.pass
	b.pass = nil
	return b.frame()
}

// Matrix returns the latest matrix set for t in any batch.
func (b *Backend) Matrix(t MatrixType) f32.Mat4 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !t.valid() {
		return f32.Mat4{}
	}
	return b.matrices[t]
}

// ClipProjection returns the latest projection converted for Vulkan clip
// space.
func (b *Backend) ClipProjection() f32.Mat4 {
	return VulkanProjection(b.Matrix(Projection))
}

// LastPass returns the most recently submitted pass, nil before the first.
func (b *Backend) LastPass() *Pass {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// frame renders one frame. It rebuilds the pipeline after a shader change
// and the swapchain when it went stale, and skips rendering while the
// surface has no area.
func (b *Backend) frame() error {
	if b.watcher != nil && b.watcher.Dirty() {
		if err := b.reloadPipeline(); err != nil {
			b.log.Error("shader reload failed", "err", err)
			return err
		}
	}
	if b.minimized {
		if err := b.rebuildSwapchain(b.windowExtent()); err != nil {
			return err
		}
		if b.minimized {
			return nil
		}
	}
	stale, err := b.submitAndPresent()
	if err != nil {
		b.log.Error("frame failed", "err", err)
		return err
	}
	if stale {
		b.log.Debug("swapchain stale", "generation", b.swapchain.generation)
		return b.rebuildSwapchain(b.windowExtent())
	}
	return nil
}
