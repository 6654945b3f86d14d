// Package glfwwin opens glfw windows for Vulkan rendering and routes their
// framebuffer resizes through a platform.Registry.
package glfwwin

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/andewx/osrevk/hal"
	"github.com/andewx/osrevk/platform"
)

var _ hal.Window = (*glfw.Window)(nil)

// Display is a glfw window without a client API. glfw must be driven from
// the thread that called Open.
type Display struct {
	window   *glfw.Window
	registry *platform.Registry
	x, y     int
}

// Open initializes glfw and creates a resizable window.
func Open(title string, width, height int, reg *platform.Registry) (*Display, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw: no Vulkan loader found")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)

	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw: %w", err)
	}
	d := &Display{window: w, registry: reg}
	d.x, d.y = w.GetPos()
	w.SetPosCallback(func(_ *glfw.Window, x, y int) {
		d.x, d.y = x, y
	})
	w.SetFramebufferSizeCallback(d.framebufferResized)
	return d, nil
}

func (d *Display) framebufferResized(w *glfw.Window, width, height int) {
	if d.registry == nil {
		return
	}
	// errors are logged by the registry; the loop keeps running
	_ = d.registry.Notify(w, d.x, d.y, width, height)
}

// Window returns the glfw window, which satisfies hal.Window.
func (d *Display) Window() *glfw.Window { return d.window }

// ProcAddr returns glfw's vkGetInstanceProcAddr.
func (d *Display) ProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (d *Display) Size() (int, int) {
	return d.window.GetFramebufferSize()
}

func (d *Display) ShouldClose() bool {
	return d.window.ShouldClose()
}

// Poll processes pending window events, running resize callbacks.
func (d *Display) Poll() {
	glfw.PollEvents()
}

// Wait blocks until at least one window event arrives.
func (d *Display) Wait() {
	glfw.WaitEvents()
}

// Close destroys the window and terminates glfw.
func (d *Display) Close() {
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
	}
	glfw.Terminate()
}
