package osrevk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
	"github.com/andewx/osrevk/internal/fakegpu"
	"github.com/andewx/osrevk/platform"
)

func TestCreateDestroy(t *testing.T) {
	d := fakegpu.New()
	b := newTestBackend(d, DefaultConfig())
	assert.Equal(t, Uninitialized, b.State())
	assert.Zero(t, b.Generation())

	require.NoError(t, b.Create(testWindow()))
	assert.Equal(t, Recording, b.State())
	assert.True(t, d.Loaded())
	assert.EqualValues(t, 1, b.Generation())

	sc := b.SwapchainConfig()
	assert.EqualValues(t, 3, sc.ImageCount)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, sc.Format)
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, sc.Extent)
	assert.Equal(t, vk.PresentModeMailbox, sc.PresentMode)

	assert.Contains(t, d.InstanceDesc.Extensions, "VK_KHR_surface")
	assert.Contains(t, d.InstanceDesc.Extensions, "VK_KHR_xcb_surface")
	assert.Empty(t, d.InstanceDesc.Layers)
	assert.Equal(t, []string{"VK_KHR_swapchain"}, d.DeviceDesc.Extensions)
	assert.Len(t, d.DeviceDesc.Queues, 1)

	assert.Equal(t, 1, d.LiveKind("swapchain"))
	assert.Equal(t, 3, d.LiveKind("imageview"))
	assert.Equal(t, 3, d.LiveKind("framebuffer"))
	assert.Equal(t, 3, d.LiveKind("commandbuffer"))
	assert.Equal(t, 1, d.LiveKind("pipeline"))
	assert.Equal(t, 0, d.LiveKind("shadermodule"))
	assert.Equal(t, 2, d.LiveKind("semaphore"))
	assert.Equal(t, 1, d.LiveKind("fence"))

	require.NoError(t, b.Destroy())
	assert.Equal(t, Uninitialized, b.State())
	assert.Zero(t, d.Live())
	assert.Zero(t, d.DoubleDestroys())
	assert.False(t, d.Loaded())

	require.NoError(t, b.Destroy(), "destroy twice")
	assert.Zero(t, d.DoubleDestroys())
}

func TestDestroyOrder(t *testing.T) {
	d := fakegpu.New()
	b := newTestBackend(d, DefaultConfig())
	require.NoError(t, b.Create(testWindow()))
	require.NoError(t, b.Destroy())

	events := d.Events()
	idle := indexOf(events, "device wait idle")
	sc := indexOf(events, "destroy "+d.Swapchains[0].String())
	var surface, device, instance int
	for i, e := range events {
		switch {
		case strings.HasPrefix(e, "destroy surface#"):
			surface = i
		case strings.HasPrefix(e, "destroy device#"):
			device = i
		case strings.HasPrefix(e, "destroy instance#"):
			instance = i
		}
	}
	require.GreaterOrEqual(t, idle, 0)
	assert.Less(t, idle, sc)
	assert.Less(t, sc, surface)
	assert.Less(t, surface, device)
	assert.Less(t, device, instance)
}

func TestInstanceExtensions(t *testing.T) {
	d := fakegpu.New()
	b := newTestBackend(d, DefaultConfig())
	assert.Nil(t, b.InstanceExtensions())

	require.NoError(t, b.Create(testWindow()))
	exts := b.InstanceExtensions()
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, exts)
	assert.Equal(t, d.InstanceDesc.Extensions, exts)
	exts[0] = "changed"
	assert.Equal(t, "VK_KHR_surface", b.InstanceExtensions()[0])

	require.NoError(t, b.Destroy())
	assert.Nil(t, b.InstanceExtensions())
}

func TestCreateTwice(t *testing.T) {
	b, _ := createBackend(t, fakegpu.New())
	assert.Error(t, b.Create(testWindow()))
	assert.Equal(t, Recording, b.State())
}

func TestCreateFailureTearsDown(t *testing.T) {
	tests := []struct {
		op   string
		kind error
	}{
		{"Load", ErrLibraryLoad},
		{"InstanceExtensions", ErrResourceCreation},
		{"CreateInstance", ErrResourceCreation},
		{"CreateSurface", ErrResourceCreation},
		{"EnumeratePhysicalDevices", ErrDeviceSelection},
		{"DeviceExtensions", ErrDeviceSelection},
		{"SurfaceSupport", ErrDeviceSelection},
		{"CreateDevice", ErrResourceCreation},
		{"CreateCommandPool", ErrResourceCreation},
		{"CreateSemaphore", ErrResourceCreation},
		{"CreateFence", ErrResourceCreation},
		{"SurfaceCapabilities", ErrResourceCreation},
		{"SurfaceFormats", ErrResourceCreation},
		{"PresentModes", ErrResourceCreation},
		{"CreateSwapchain", ErrResourceCreation},
		{"SwapchainImages", ErrResourceCreation},
		{"CreateImageView", ErrResourceCreation},
		{"AllocateCommandBuffers", ErrResourceCreation},
		{"BeginCommandBuffer", ErrResourceCreation},
		{"QueueSubmit", ErrSynchronization},
		{"QueueWaitIdle", ErrSynchronization},
		{"CreateRenderPass", ErrResourceCreation},
		{"CreatePipelineLayout", ErrResourceCreation},
		{"CreateShaderModule", ErrResourceCreation},
		{"CreateGraphicsPipeline", ErrResourceCreation},
		{"CreateFramebuffer", ErrResourceCreation},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			d := fakegpu.New()
			d.FailNext(tt.op, nil)
			b := newTestBackend(d, DefaultConfig())

			err := b.Create(testWindow())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, fakegpu.ErrInjected)
			assert.Equal(t, Uninitialized, b.State())
			assert.Zero(t, d.Live(), "leaked objects")
			assert.Zero(t, d.DoubleDestroys())
			assert.False(t, d.Loaded())
		})
	}
}

func TestCreateMissingSurfaceExtension(t *testing.T) {
	d := fakegpu.New()
	d.Extensions = []string{"VK_KHR_xcb_surface"}
	b := newTestBackend(d, DefaultConfig())

	err := b.Create(testWindow())
	assert.ErrorIs(t, err, ErrCapabilityUnsupported)
	assert.Contains(t, err.Error(), "VK_KHR_surface")
	assert.Zero(t, d.Live())
}

func TestCreateNoSuitableDevice(t *testing.T) {
	d := fakegpu.New()
	d.GPUs[0].Extensions = nil
	b := newTestBackend(d, DefaultConfig())

	err := b.Create(testWindow())
	assert.ErrorIs(t, err, ErrDeviceSelection)
	assert.Zero(t, d.Live())
}

func TestCreateMissingShader(t *testing.T) {
	d := fakegpu.New()
	cfg := DefaultConfig()
	cfg.VertexShader = "missing.spv"
	b := newTestBackend(d, cfg)

	err := b.Create(testWindow())
	assert.ErrorIs(t, err, ErrResourceCreation)
	assert.Zero(t, d.Live())
}

func TestCreateValidation(t *testing.T) {
	d := fakegpu.New()
	cfg := DefaultConfig()
	cfg.Validation = true
	b := newTestBackend(d, cfg)
	require.NoError(t, b.Create(testWindow()))
	defer b.Destroy()

	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation"}, d.InstanceDesc.Layers)
	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation"}, d.DeviceDesc.Layers)
	assert.True(t, d.InstanceDesc.DebugReport)
}

func TestCreateValidationLayerMissing(t *testing.T) {
	d := fakegpu.New()
	d.Layers = nil
	cfg := DefaultConfig()
	cfg.Validation = true
	b := newTestBackend(d, cfg)
	require.NoError(t, b.Create(testWindow()))
	defer b.Destroy()

	assert.Empty(t, d.InstanceDesc.Layers)
}

func TestRecordedCommandsCombinedFamily(t *testing.T) {
	d := fakegpu.New()
	createBackend(t, d)

	bufs := recorded(d)
	require.Len(t, bufs, 3)
	pipeline := d.Pipelines[len(d.Pipelines)-1]
	want := []string{
		fmt.Sprintf("begin %d", vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)),
		"beginpass 800x600",
		"bind " + pipeline.String(),
		"draw 3 1 0 0",
		"endpass",
		"end",
	}
	for _, cb := range bufs {
		assert.Equal(t, want, cb.Trace)
	}
}

func TestRecordedCommandsSeparateFamilies(t *testing.T) {
	d := fakegpu.New()
	d.GPUs = []*fakegpu.GPU{separateFamiliesGPU()}
	createBackend(t, d)

	require.Len(t, d.DeviceDesc.Queues, 2)
	bufs := recorded(d)
	require.Len(t, bufs, 3)
	for _, cb := range bufs {
		require.Len(t, cb.Trace, 8)
		assert.Equal(t, "barrier q1->q0", cb.Trace[1])
		assert.Equal(t, "beginpass 800x600", cb.Trace[2])
		assert.Equal(t, "endpass", cb.Trace[5])
		assert.Equal(t, "barrier q0->q1", cb.Trace[6])
		assert.Equal(t, "end", cb.Trace[7])
	}
}

func TestFrameSubmitsAndPresents(t *testing.T) {
	d := fakegpu.New()
	b, _ := createBackend(t, d)
	primed := len(d.Submits)

	for i := 0; i < 3; i++ {
		require.NoError(t, drawFrame(b))
	}
	assert.EqualValues(t, 3, b.Frames())
	require.Len(t, d.Submits, primed+3)
	require.Len(t, d.Presents, 3)

	s := d.Submits[primed]
	assert.Len(t, s.Buffers, 1)
	assert.Len(t, s.Wait, 1)
	assert.Len(t, s.Signal, 1)
	assert.NotNil(t, s.Fence)
	assert.Equal(t, []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}, s.WaitStages)
	assert.Equal(t, s.Signal, d.Presents[0].Wait)
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{d.Presents[0].ImageIndex, d.Presents[1].ImageIndex, d.Presents[2].ImageIndex})
}

func TestAcquireOutOfDateKeepsFenceSignaled(t *testing.T) {
	d := fakegpu.New()
	b, _ := createBackend(t, d)
	d.AcquireStatuses = []hal.PresentStatus{hal.PresentOutOfDate}

	require.NoError(t, drawFrame(b))
	assert.Zero(t, b.Frames(), "nothing submitted")
	assert.EqualValues(t, 2, b.Generation())
	assert.Zero(t, d.Calls("ResetFence"))

	// a reset fence would never be signalled again and this wait would fail
	require.NoError(t, drawFrame(b))
	assert.EqualValues(t, 1, b.Frames())
	assert.Equal(t, 1, d.Calls("ResetFence"))
}

func TestStalePresentRebuilds(t *testing.T) {
	for _, status := range []hal.PresentStatus{hal.PresentSuboptimal, hal.PresentOutOfDate} {
		t.Run(status.String(), func(t *testing.T) {
			d := fakegpu.New()
			b, _ := createBackend(t, d)
			d.PresentStatuses = []hal.PresentStatus{status}

			require.NoError(t, drawFrame(b))
			assert.EqualValues(t, 1, b.Frames())
			assert.EqualValues(t, 2, b.Generation())
			require.NoError(t, drawFrame(b))
			assert.EqualValues(t, 2, b.Generation())
		})
	}
}

func TestSubmitFailure(t *testing.T) {
	d := fakegpu.New()
	b, _ := createBackend(t, d)
	d.FailNext("QueueSubmit", nil)

	err := drawFrame(b)
	assert.ErrorIs(t, err, ErrSynchronization)
	assert.Equal(t, Recording, b.State())
}

func TestResizeRebuildsSwapchain(t *testing.T) {
	d := fakegpu.New()
	b, _ := createBackend(t, d)
	live := d.Live()

	require.NoError(t, b.Resize(0, 0, 1024, 768))
	assert.EqualValues(t, 2, b.Generation())
	assert.Equal(t, Recording, b.State())
	assert.Equal(t, live, d.Live(), "old generation released")
	assert.Zero(t, d.DoubleDestroys())

	require.Len(t, d.Swapchains, 2)
	oldSC, newSC := d.Swapchains[0], d.Swapchains[1]
	assert.Same(t, oldSC, newSC.Desc.Old)

	events := d.Events()
	idle := indexOf(events, "device wait idle")
	created := indexOf(events, "create "+newSC.String())
	destroyed := indexOf(events, "destroy "+oldSC.String())
	require.GreaterOrEqual(t, idle, 0)
	assert.Less(t, idle, created)
	assert.Less(t, created, destroyed)

	require.NoError(t, drawFrame(b))
}

func TestResizeUndefinedExtent(t *testing.T) {
	d := fakegpu.New()
	d.GPUs[0].Caps.CurrentExtent = vk.Extent2D{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF}
	b, _ := createBackend(t, d)
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, b.SwapchainConfig().Extent)

	require.NoError(t, b.Resize(10, 20, 1024, 768))
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, b.SwapchainConfig().Extent)
	p := d.Pipelines[len(d.Pipelines)-1]
	assert.EqualValues(t, 1024, p.Desc.Viewport.Width)
	assert.EqualValues(t, 768, p.Desc.Scissor.Extent.Height)

	require.NoError(t, b.Resize(0, 0, 9000, 9000))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 4096}, b.SwapchainConfig().Extent)
}

func TestResizeZeroAreaDefers(t *testing.T) {
	d := fakegpu.New()
	b, w := createBackend(t, d)

	require.NoError(t, b.Resize(0, 0, 0, 0))
	assert.True(t, b.Minimized())
	assert.Len(t, d.Swapchains, 1)

	w.Width, w.Height = 0, 0
	require.NoError(t, drawFrame(b))
	assert.Zero(t, b.Frames(), "minimized frames are skipped")
	assert.Len(t, d.Swapchains, 1)

	w.Width, w.Height = 800, 600
	require.NoError(t, drawFrame(b))
	assert.False(t, b.Minimized())
	assert.EqualValues(t, 2, b.Generation())
	assert.EqualValues(t, 1, b.Frames())
}

func TestResizeFailureKeepsSwapchain(t *testing.T) {
	for _, op := range []string{"CreateSwapchain", "CreateGraphicsPipeline", "CreateFramebuffer"} {
		t.Run(op, func(t *testing.T) {
			d := fakegpu.New()
			b, _ := createBackend(t, d)
			live := d.Live()

			d.FailNext(op, nil)
			err := b.Resize(0, 0, 1024, 768)
			assert.ErrorIs(t, err, ErrResourceCreation)
			assert.EqualValues(t, 1, b.Generation())
			assert.Equal(t, Recording, b.State())
			assert.Equal(t, live, d.Live())
			assert.Equal(t, 1, d.LiveKind("swapchain"))

			require.NoError(t, drawFrame(b))
		})
	}
}

func TestResizeRecordingFailureKeepsSwapchain(t *testing.T) {
	// the first call of each op during a rebuild primes the new images
	for _, op := range []string{"AllocateCommandBuffers", "BeginCommandBuffer"} {
		t.Run(op, func(t *testing.T) {
			d := fakegpu.New()
			b, _ := createBackend(t, d)
			live := d.Live()
			pipeline := d.Pipelines[0]

			d.FailOn(op, 2, nil)
			err := b.Resize(0, 0, 1024, 768)
			assert.ErrorIs(t, err, ErrResourceCreation)
			assert.ErrorIs(t, err, fakegpu.ErrInjected)
			assert.Equal(t, Recording, b.State())
			assert.EqualValues(t, 1, b.Generation())
			assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, b.SwapchainConfig().Extent)
			assert.Equal(t, live, d.Live())
			assert.Equal(t, 1, d.LiveKind("swapchain"))
			assert.Equal(t, 1, d.LiveKind("pipeline"))
			assert.Zero(t, d.DoubleDestroys())

			bufs := recorded(d)
			require.Len(t, bufs, 3)
			for _, cb := range bufs {
				assert.Equal(t, 1, cb.Recorded)
				assert.Contains(t, cb.Trace, "bind "+pipeline.String())
			}

			for i := 0; i < 3; i++ {
				require.NoError(t, drawFrame(b))
			}
			assert.EqualValues(t, 3, b.Frames())
		})
	}
}

func TestReloadRecordingFailureKeepsPipeline(t *testing.T) {
	for _, op := range []string{"AllocateCommandBuffers", "BeginCommandBuffer"} {
		t.Run(op, func(t *testing.T) {
			d := fakegpu.New()
			b, _ := createBackend(t, d)
			live := d.Live()
			pipeline := d.Pipelines[0]

			d.FailNext(op, nil)
			err := b.reloadPipeline()
			assert.ErrorIs(t, err, ErrResourceCreation)
			assert.Equal(t, Recording, b.State())
			assert.Equal(t, live, d.Live())
			assert.Equal(t, 1, d.LiveKind("pipeline"))
			assert.Zero(t, d.DoubleDestroys())

			require.NoError(t, drawFrame(b))
			submitted, ok := d.Submits[len(d.Submits)-1].Buffers[0].(*fakegpu.CommandBuffer)
			require.True(t, ok)
			assert.False(t, submitted.Destroyed)
			assert.Equal(t, 1, submitted.Recorded)
			assert.Contains(t, submitted.Trace, "bind "+pipeline.String())
		})
	}
}

func TestReloadPipeline(t *testing.T) {
	d := fakegpu.New()
	b, _ := createBackend(t, d)
	live := d.Live()

	require.NoError(t, b.reloadPipeline())
	require.Len(t, d.Pipelines, 2)
	assert.Equal(t, live, d.Live())
	for _, cb := range recorded(d) {
		assert.Contains(t, cb.Trace, "bind "+d.Pipelines[1].String())
	}
}

func TestResizeSameSizeTwice(t *testing.T) {
	d := fakegpu.New()
	d.GPUs[0].Caps.CurrentExtent = vk.Extent2D{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF}
	b, _ := createBackend(t, d)

	require.NoError(t, b.Resize(0, 0, 1024, 768))
	first := b.SwapchainConfig()
	live := d.Live()

	require.NoError(t, b.Resize(0, 0, 1024, 768))
	assert.Equal(t, first, b.SwapchainConfig())
	assert.Equal(t, live, d.Live())
	assert.Zero(t, d.DoubleDestroys())
	assert.EqualValues(t, 3, b.Generation())
	require.NoError(t, drawFrame(b))
}

func TestResizeBeforeCreate(t *testing.T) {
	b := newTestBackend(fakegpu.New(), DefaultConfig())
	assert.ErrorIs(t, b.Resize(0, 0, 100, 100), ErrNotInitialized)
}

func TestRegistryRoutesResize(t *testing.T) {
	d := fakegpu.New()
	reg := platform.NewRegistry(discardLogger())
	b := newTestBackend(d, DefaultConfig(), WithRegistry(reg))
	w := testWindow()
	require.NoError(t, b.Create(w))
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, reg.Notify(w, 0, 0, 1024, 768))
	assert.EqualValues(t, 2, b.Generation())

	require.NoError(t, b.Destroy())
	assert.Zero(t, reg.Len())
}

func TestFrameCallsBeforeCreate(t *testing.T) {
	b := newTestBackend(fakegpu.New(), DefaultConfig())
	assert.ErrorIs(t, b.BeginPass("p"), ErrNotInitialized)
	assert.ErrorIs(t, b.BeginRenderBatch("b"), ErrNotInitialized)
	assert.ErrorIs(t, b.SetMatrix(Model, Identity), ErrNotInitialized)
	assert.ErrorIs(t, b.EndRenderBatch(), ErrNotInitialized)
	assert.ErrorIs(t, b.EndPass(), ErrNotInitialized)
}

func TestFrameSequence(t *testing.T) {
	b, _ := createBackend(t, fakegpu.New())

	assert.ErrorIs(t, b.EndPass(), ErrFrameSequence)
	assert.ErrorIs(t, b.BeginRenderBatch("b1"), ErrFrameSequence)
	assert.ErrorIs(t, b.SetMatrix(Model, Identity), ErrFrameSequence)
	assert.ErrorIs(t, b.EndRenderBatch(), ErrFrameSequence)

	require.NoError(t, b.BeginPass("p1"))
	assert.ErrorIs(t, b.BeginPass("p2"), ErrFrameSequence)
	assert.ErrorIs(t, b.SetMatrix(Model, Identity), ErrFrameSequence)
	require.NoError(t, b.BeginRenderBatch("b1"))
	assert.ErrorIs(t, b.BeginRenderBatch("b2"), ErrFrameSequence)
	assert.ErrorIs(t, b.EndPass(), ErrFrameSequence)
	require.NoError(t, b.EndRenderBatch())
	require.NoError(t, b.EndPass())
	assert.EqualValues(t, 1, b.Frames())
}

func TestSetMatrix(t *testing.T) {
	b, _ := createBackend(t, fakegpu.New())
	assert.Equal(t, Identity, b.Matrix(Projection))

	model := RotationZ(1)
	view := MulMat4(model, model)
	require.NoError(t, b.BeginPass("p1"))
	require.NoError(t, b.BeginRenderBatch("b1"))
	require.NoError(t, b.SetMatrix(Model, model))
	require.NoError(t, b.SetMatrix(View, view))
	assert.Error(t, b.SetMatrix(MatrixType(7), model))
	require.NoError(t, b.EndRenderBatch())
	require.NoError(t, b.BeginRenderBatch("b2"))
	require.NoError(t, b.EndRenderBatch())
	require.NoError(t, b.EndPass())

	assert.Equal(t, model, b.Matrix(Model))
	assert.Equal(t, view, b.Matrix(View))

	pass := b.LastPass()
	require.NotNil(t, pass)
	assert.Equal(t, "p1", pass.Name)
	require.Len(t, pass.Batches, 2)
	m, ok := pass.Batches[0].Matrix(Model)
	assert.True(t, ok)
	assert.Equal(t, model, m)
	_, ok = pass.Batches[0].Matrix(Projection)
	assert.False(t, ok)
	_, ok = pass.Batches[1].Matrix(Model)
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	err := stageErrorf(SynchronizationError, "present", "boom")
	assert.ErrorIs(t, err, ErrSynchronization)
	assert.NotErrorIs(t, err, ErrResourceCreation)
	assert.Equal(t, "vlkbackend: present: synchronization: boom", err.Error())

	wrapped := stageError(SynchronizationError, "other", err)
	assert.Same(t, err, wrapped, "same kind is not wrapped twice")

	var e *Error
	require.True(t, errors.As(stageError(ResourceCreationError, "shader", err), &e))
	assert.Equal(t, ResourceCreationError, e.Kind)
	assert.ErrorIs(t, e, ErrSynchronization, "inner kind stays reachable")
	assert.Equal(t, "kind(9)", ErrorKind(9).String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, Recording.Initialized())
	assert.False(t, PipelineReady.Initialized())
}

func writeShaders(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vert.spv"), spirv(0x00010000, 0, 8, 0), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frag.spv"), spirv(0x00010000, 0, 9, 0), 0o644))
}

// replaceFile swaps in new content with a rename so readers never see a
// partially written file.
func replaceFile(t *testing.T, path string, data []byte) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestShaderChangeReloadsPipeline(t *testing.T) {
	dir := t.TempDir()
	writeShaders(t, dir)
	cfg := DefaultConfig()
	cfg.ShaderDir = dir
	cfg.WatchShaders = true

	d := fakegpu.New()
	b := New(d, cfg, WithLogger(discardLogger()))
	require.NoError(t, b.Create(testWindow()))
	defer b.Destroy()
	require.NotNil(t, b.watcher)
	require.NoError(t, drawFrame(b))
	require.Len(t, d.Pipelines, 1)

	replaceFile(t, filepath.Join(dir, "frag.spv"), spirv(0x00010000, 0, 10, 0))
	require.Eventually(t, b.watcher.dirty.Load, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, drawFrame(b))
	assert.Len(t, d.Pipelines, 2)
	assert.Equal(t, 1, d.LiveKind("pipeline"))
	assert.EqualValues(t, 1, b.Generation(), "swapchain kept")
	pipeline := d.Pipelines[1]
	for _, cb := range recorded(d) {
		assert.Contains(t, cb.Trace, "bind "+pipeline.String())
	}
}

func TestBrokenShaderKeepsPipeline(t *testing.T) {
	dir := t.TempDir()
	writeShaders(t, dir)
	cfg := DefaultConfig()
	cfg.ShaderDir = dir
	cfg.WatchShaders = true

	d := fakegpu.New()
	b := New(d, cfg, WithLogger(discardLogger()))
	require.NoError(t, b.Create(testWindow()))
	defer b.Destroy()
	require.NotNil(t, b.watcher)

	replaceFile(t, filepath.Join(dir, "vert.spv"), []byte("not spirv"))
	require.Eventually(t, b.watcher.dirty.Load, 2*time.Second, 10*time.Millisecond)

	err := drawFrame(b)
	assert.ErrorIs(t, err, ErrResourceCreation)
	assert.Len(t, d.Pipelines, 1)
	assert.Equal(t, 1, d.LiveKind("pipeline"))
	assert.Equal(t, 0, d.LiveKind("shadermodule"))
	assert.Equal(t, Recording, b.State())
}

func TestWatchMissingDirIsNotFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShaderDir = filepath.Join(t.TempDir(), "missing")
	cfg.WatchShaders = true

	d := fakegpu.New()
	b := newTestBackend(d, cfg)
	require.NoError(t, b.Create(testWindow()))
	assert.Nil(t, b.watcher)
	require.NoError(t, b.Destroy())
	assert.Zero(t, d.Live())
}
