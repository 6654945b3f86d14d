package osrevk

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/image/math/f32"

	"github.com/andewx/osrevk/hal"
	"github.com/andewx/osrevk/platform"
)

// frameTargets is everything the recorded command buffers refer to besides
// the swapchain images.
type frameTargets struct {
	renderPass   hal.RenderPass
	layout       hal.PipelineLayout
	pipeline     hal.Pipeline
	framebuffers []hal.Framebuffer
}

func (t *frameTargets) destroy() {
	if t == nil {
		return
	}
	destroyAll(t.framebuffers)
	t.framebuffers = nil
	if t.pipeline != nil {
		t.pipeline.Destroy()
		t.pipeline = nil
	}
	if t.layout != nil {
		t.layout.Destroy()
		t.layout = nil
	}
	if t.renderPass != nil {
		t.renderPass.Destroy()
		t.renderPass = nil
	}
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// WithShaderSource sets where shader binaries are read from. The default is
// the configured shader directory.
func WithShaderSource(s ShaderSource) Option {
	return func(b *Backend) { b.shaders = s }
}

// WithRegistry registers the backend as the resize listener of its window
// while it is created.
func WithRegistry(r *platform.Registry) Option {
	return func(b *Backend) { b.registry = r }
}

// Backend renders into one window. All methods are safe to call from
// several goroutines but are normally driven by the render loop.
type Backend struct {
	cfg      Config
	driver   hal.Driver
	log      *slog.Logger
	shaders  ShaderSource
	registry *platform.Registry

	mu    sync.Mutex
	state State

	window    hal.Window
	instance  *graphicsInstance
	surface   hal.Surface
	physical  *PhysicalDeviceCandidate
	device    *LogicalDevice
	commands  *CommandRecorder
	sync      *SyncPrimitives
	swapchain *Swapchain
	targets   *frameTargets
	watcher   *ShaderWatcher

	// minimized is set while the surface has no area; rendering is skipped
	// and the swapchain is rebuilt once it has one again.
	minimized bool

	pass     *Pass
	batch    *RenderBatch
	last     *Pass
	matrices [numMatrixTypes]f32.Mat4
	frames   uint64
}

var _ platform.ResizeListener = (*Backend)(nil)

// New returns an uninitialized backend. Nothing touches the driver before
// Create.
func New(driver hal.Driver, cfg Config, opts ...Option) *Backend {
	b := &Backend{cfg: cfg, driver: driver}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.log = b.log.With("component", "vlkbackend")
	if b.shaders == nil {
		b.shaders = DirShaderSource(cfg.ShaderDir)
	}
	for i := range b.matrices {
		b.matrices[i] = Identity
	}
	return b
}

// Create brings the backend up for w, stage by stage. On failure every
// resource created so far is released and the backend is left
// Uninitialized.
func (b *Backend) Create(w hal.Window) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Uninitialized {
		return fmt.Errorf("vlkbackend: create in state %s", b.state)
	}
	if err := b.create(w); err != nil {
		var e *Error
		stage := "create"
		if errors.As(err, &e) {
			stage = e.Stage
		}
		b.log.Error("create failed", "stage", stage, "state", b.state, "err", err)
		b.teardown()
		return err
	}
	if b.registry != nil {
		b.registry.Register(w, b)
	}
	return nil
}

func (b *Backend) create(w hal.Window) error {
	b.window = w
	if err := b.driver.Load(); err != nil {
		return stageError(LibraryLoadError, "library", err)
	}
	b.advance(LibraryLoaded)

	inst, err := createInstance(b.driver, &b.cfg, w, b.log)
	if err != nil {
		return err
	}
	b.instance = inst
	b.advance(InstanceCreated)

	if b.surface, err = inst.handle.CreateSurface(w); err != nil {
		return stageError(ResourceCreationError, "surface", err)
	}

	required := b.deviceExtensions()
	c, sel, err := SelectDevice(inst.handle, b.surface, required, b.log)
	if err != nil {
		return err
	}
	b.physical = c
	b.advance(DeviceSelected)

	wanted := []string(nil)
	if contains(c.Extensions, portabilitySubsetExtension) {
		wanted = append(wanted, portabilitySubsetExtension)
	}
	exts := newExtensionSet(c.Extensions, required, wanted).enabled()
	if b.device, err = createLogicalDevice(c, sel, exts, inst.layers); err != nil {
		return err
	}
	b.advance(DeviceCreated)

	if b.commands, err = newCommandRecorder(b.device); err != nil {
		return err
	}
	if b.sync, err = newSyncPrimitives(b.device.Handle); err != nil {
		return err
	}

	cfg, err := NegotiateSwapchain(c.Handle, b.surface, b.cfg.DefaultExtent.vk(), b.cfg.preferFIFO())
	if err != nil {
		return err
	}
	if b.swapchain, err = createSwapchain(b.device.Handle, b.surface, cfg, nil); err != nil {
		return err
	}
	if err := b.commands.primeImages(b.swapchain, b.device.Graphics); err != nil {
		return err
	}
	b.advance(SwapchainReady)

	if b.targets, err = b.buildTargets(b.swapchain); err != nil {
		return err
	}
	b.advance(PipelineReady)

	if err := b.commands.recordAll(b.swapchain, b.targets, b.cfg.ClearColor); err != nil {
		return err
	}
	b.advance(Recording)

	if b.cfg.WatchShaders {
		names := []string{b.cfg.VertexShader, b.cfg.FragmentShader}
		if b.watcher, err = NewShaderWatcher(b.cfg.ShaderDir, names, b.log); err != nil {
			b.log.Warn("shader watching disabled", "dir", b.cfg.ShaderDir, "err", err)
		}
	}
	return nil
}

const portabilitySubsetExtension = "VK_KHR_portability_subset"

func (b *Backend) deviceExtensions() []string {
	exts := []string{"VK_KHR_swapchain"}
	for _, e := range b.cfg.DeviceExtensions {
		if !contains(exts, e) {
			exts = append(exts, e)
		}
	}
	return exts
}

func (b *Backend) advance(s State) {
	b.state = s
	b.log.Info("stage complete", "state", s)
}

// buildTargets creates the render pass, pipeline and framebuffers for sc.
func (b *Backend) buildTargets(sc *Swapchain) (*frameTargets, error) {
	dev := b.device.Handle
	t := &frameTargets{}
	var err error
	if t.renderPass, err = NewRenderPassBuilder().ColorAttachment(sc.config.Format).Build(dev); err != nil {
		return nil, err
	}
	if t.layout, err = dev.CreatePipelineLayout(); err != nil {
		t.destroy()
		return nil, stageError(ResourceCreationError, "pipeline", err)
	}

	vert, err := loadShaderFile(dev, b.shaders, b.cfg.VertexShader)
	if err != nil {
		t.destroy()
		return nil, err
	}
	defer vert.Destroy()
	frag, err := loadShaderFile(dev, b.shaders, b.cfg.FragmentShader)
	if err != nil {
		t.destroy()
		return nil, err
	}
	defer frag.Destroy()

	t.pipeline, err = NewPipelineBuilder().
		Stage(vk.ShaderStageVertexBit, vert).
		Stage(vk.ShaderStageFragmentBit, frag).
		Extent(sc.config.Extent).
		Layout(t.layout).
		RenderPass(t.renderPass, 0).
		Build(dev)
	if err != nil {
		t.destroy()
		return nil, err
	}
	if t.framebuffers, err = createFramebuffers(dev, t.renderPass, sc); err != nil {
		t.destroy()
		return nil, err
	}
	return t, nil
}

// Resize rebuilds the swapchain for a framebuffer of width by height. The
// position is accepted for the windowing callback and not used. A zero-area
// size defers the rebuild until the surface has an area again.
func (b *Backend) Resize(x, y, width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state < SwapchainReady {
		return ErrNotInitialized
	}
	b.log.Debug("resize", "x", x, "y", y, "width", width, "height", height)
	if width <= 0 || height <= 0 {
		b.minimized = true
		return nil
	}
	return b.rebuildSwapchain(vk.Extent2D{Width: uint32(width), Height: uint32(height)})
}

// windowExtent is the window's framebuffer size, the configured default when
// the window does not know it yet.
func (b *Backend) windowExtent() vk.Extent2D {
	w, h := b.window.GetFramebufferSize()
	if w < 0 || h < 0 {
		return b.cfg.DefaultExtent.vk()
	}
	return vk.Extent2D{Width: uint32(w), Height: uint32(h)}
}

// rebuildSwapchain replaces the swapchain and everything derived from it.
// The new swapchain is created with the current one as its predecessor; if
// anything fails the current generation is kept.
func (b *Backend) rebuildSwapchain(fallback vk.Extent2D) error {
	if fallback.Width == 0 || fallback.Height == 0 {
		b.minimized = true
		return nil
	}
	if err := b.device.waitIdle(); err != nil {
		return err
	}
	cfg, err := NegotiateSwapchain(b.physical.Handle, b.surface, fallback, b.cfg.preferFIFO())
	if err != nil {
		return err
	}
	if cfg.Extent.Width == 0 || cfg.Extent.Height == 0 {
		b.minimized = true
		return nil
	}

	sc, err := createSwapchain(b.device.Handle, b.surface, cfg, b.swapchain)
	if err != nil {
		b.log.Error("swapchain rebuild failed", "generation", b.swapchain.generation, "err", err)
		return err
	}
	if err := b.commands.primeImages(sc, b.device.Graphics); err != nil {
		sc.destroy()
		return err
	}
	targets, err := b.buildTargets(sc)
	if err != nil {
		sc.destroy()
		b.log.Error("swapchain rebuild failed", "generation", b.swapchain.generation, "err", err)
		return err
	}
	bufs, err := b.commands.recordNew(sc, targets, b.cfg.ClearColor)
	if err != nil {
		targets.destroy()
		sc.destroy()
		b.log.Error("swapchain rebuild failed", "generation", b.swapchain.generation, "err", err)
		return err
	}

	// everything for the new generation exists, release the old one
	old, oldTargets := b.swapchain, b.targets
	b.commands.adopt(bufs)
	oldTargets.destroy()
	old.destroy()
	b.swapchain, b.targets = sc, targets
	b.advance(SwapchainReady)
	b.advance(PipelineReady)
	b.advance(Recording)
	b.minimized = false
	b.log.Info("swapchain rebuilt", "generation", sc.generation,
		"width", cfg.Extent.Width, "height", cfg.Extent.Height, "images", sc.Len())
	return nil
}

// reloadPipeline rebuilds the pipeline from the current shader binaries. A
// broken shader or a failed recording keeps the previous pipeline and
// command buffers.
func (b *Backend) reloadPipeline() error {
	if err := b.device.waitIdle(); err != nil {
		return err
	}
	targets, err := b.buildTargets(b.swapchain)
	if err != nil {
		return err
	}
	bufs, err := b.commands.recordNew(b.swapchain, targets, b.cfg.ClearColor)
	if err != nil {
		targets.destroy()
		return err
	}
	b.commands.adopt(bufs)
	b.targets.destroy()
	b.targets = targets
	b.log.Info("pipeline reloaded")
	return nil
}

// Destroy waits for the device to go idle and releases everything in
// reverse creation order. It is a no-op on an uninitialized backend.
func (b *Backend) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Uninitialized {
		return nil
	}
	err := b.device.waitIdle()
	if err != nil {
		b.log.Warn("device idle before destroy", "err", err)
	}
	b.teardown()
	b.log.Info("destroyed")
	return err
}

func (b *Backend) teardown() {
	if b.registry != nil && b.window != nil {
		b.registry.Unregister(b.window)
	}
	if b.watcher != nil {
		if err := b.watcher.Close(); err != nil {
			b.log.Warn("shader watcher close", "err", err)
		}
		b.watcher = nil
	}
	b.commands.destroy()
	b.commands = nil
	b.sync.destroy()
	b.sync = nil
	b.targets.destroy()
	b.targets = nil
	b.swapchain.destroy()
	b.swapchain = nil
	if b.surface != nil {
		b.surface.Destroy()
		b.surface = nil
	}
	b.device.destroy()
	b.device = nil
	b.physical = nil
	b.instance.destroy()
	b.instance = nil
	if b.state >= LibraryLoaded {
		if err := b.driver.Unload(); err != nil {
			b.log.Warn("library unload", "err", err)
		}
	}
	b.window = nil
	b.pass, b.batch = nil, nil
	b.minimized = false
	b.state = Uninitialized
}

// State returns the current lifecycle state.
func (b *Backend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SwapchainConfig returns the configuration of the live swapchain.
func (b *Backend) SwapchainConfig() SwapchainConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.swapchain == nil {
		return SwapchainConfig{}
	}
	return b.swapchain.config
}

// Generation counts swapchain builds, 0 before the first.
func (b *Backend) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.swapchain == nil {
		return 0
	}
	return b.swapchain.generation
}

// Frames returns the number of frames submitted.
func (b *Backend) Frames() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Minimized reports whether rendering is paused for a zero-area surface.
func (b *Backend) Minimized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.minimized
}

// InstanceExtensions returns the instance extensions that were enabled, nil
// before Create.
func (b *Backend) InstanceExtensions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance == nil {
		return nil
	}
	return append([]string(nil), b.instance.extensions...)
}
