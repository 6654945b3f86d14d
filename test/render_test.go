//go:build gpu

package test

import (
	"log/slog"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andewx/osrevk"
	"github.com/andewx/osrevk/hal/vkdriver"
	"github.com/andewx/osrevk/platform"
	"github.com/andewx/osrevk/platform/glfwwin"
)

const (
	WIDTH  = 500
	HEIGHT = 500
)

func init() {
	runtime.LockOSThread()
}

// TestRender brings the backend up on a real GPU, renders a few frames,
// resizes the window and renders again. Shaders come from OSREVK_SHADERS.
func TestRender(t *testing.T) {
	dir := os.Getenv("OSREVK_SHADERS")
	if dir == "" {
		t.Skip("OSREVK_SHADERS not set")
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := osrevk.DefaultConfig()
	cfg.ShaderDir = dir
	cfg.Validation = true

	reg := platform.NewRegistry(log)
	display, err := glfwwin.Open("Vulkan", WIDTH, HEIGHT, reg)
	require.NoError(t, err)
	defer display.Close()

	driver := vkdriver.New(vkdriver.WithProcAddr(display.ProcAddr()), vkdriver.WithLogger(log))
	b := osrevk.New(driver, cfg, osrevk.WithLogger(log), osrevk.WithRegistry(reg))
	require.NoError(t, b.Create(display.Window()))
	defer func() { require.NoError(t, b.Destroy()) }()
	require.Equal(t, osrevk.Recording, b.State())
	require.Equal(t, 1, reg.Len())

	frame := func() {
		require.NoError(t, b.BeginPass("RenderPass"))
		require.NoError(t, b.BeginRenderBatch("b1"))
		require.NoError(t, b.SetMatrix(osrevk.Model, osrevk.Identity))
		require.NoError(t, b.EndRenderBatch())
		require.NoError(t, b.EndPass())
		display.Poll()
	}
	for i := 0; i < 10; i++ {
		frame()
	}
	gen := b.Generation()
	require.NoError(t, b.Resize(0, 0, WIDTH*2, HEIGHT))
	require.Greater(t, b.Generation(), gen)
	for i := 0; i < 10; i++ {
		frame()
	}
}
