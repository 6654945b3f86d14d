package osrevk

import (
	"encoding/binary"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/andewx/osrevk/internal/fakegpu"
)

// spirv encodes words behind the SPIR-V magic number.
func spirv(words ...uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, spirvMagic)
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func testShaders() FSShaderSource {
	return FSShaderSource{FS: fstest.MapFS{
		"vert.spv": {Data: spirv(0x00010000, 0, 8, 0)},
		"frag.spv": {Data: spirv(0x00010000, 0, 9, 0)},
	}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow() *fakegpu.Window {
	return &fakegpu.Window{Width: 800, Height: 600, Extensions: []string{"VK_KHR_xcb_surface"}}
}

func newTestBackend(d *fakegpu.Driver, cfg Config, opts ...Option) *Backend {
	opts = append([]Option{WithLogger(discardLogger()), WithShaderSource(testShaders())}, opts...)
	return New(d, cfg, opts...)
}

// createBackend brings up a backend on d and destroys it when the test ends.
func createBackend(t *testing.T, d *fakegpu.Driver) (*Backend, *fakegpu.Window) {
	t.Helper()
	b := newTestBackend(d, DefaultConfig())
	w := testWindow()
	require.NoError(t, b.Create(w))
	t.Cleanup(func() { _ = b.Destroy() })
	return b, w
}

func drawFrame(b *Backend) error {
	if err := b.BeginPass("RenderPass"); err != nil {
		return err
	}
	if err := b.BeginRenderBatch("b1"); err != nil {
		return err
	}
	if err := b.SetMatrix(Model, Identity); err != nil {
		return err
	}
	if err := b.EndRenderBatch(); err != nil {
		return err
	}
	return b.EndPass()
}

// recorded returns the live per-image command buffers.
func recorded(d *fakegpu.Driver) []*fakegpu.CommandBuffer {
	var out []*fakegpu.CommandBuffer
	for _, cb := range d.Buffers {
		if !cb.Destroyed {
			out = append(out, cb)
		}
	}
	return out
}

func indexOf(events []string, e string) int {
	for i, s := range events {
		if s == e {
			return i
		}
	}
	return -1
}

// separateFamiliesGPU has a graphics-only family 0 and a present-only
// family 1.
func separateFamiliesGPU() *fakegpu.GPU {
	g := fakegpu.DefaultGPU()
	g.Families = append(g.Families, g.Families[0])
	g.Families[1].Flags = 0
	g.PresentSupport = []bool{false, true}
	return g
}
