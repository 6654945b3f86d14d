// Command osreview opens a window and renders the stock triangle with the
// Vulkan backend until the window is closed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/andewx/osrevk"
	"github.com/andewx/osrevk/hal/vkdriver"
	"github.com/andewx/osrevk/platform"
	"github.com/andewx/osrevk/platform/glfwwin"
)

func init() {
	// glfw and the render loop must stay on the main thread
	runtime.LockOSThread()
}

var (
	configPath = flag.String("config", "", "TOML or YAML config file")
	shaderDir  = flag.String("shaders", "", "directory holding the SPIR-V shaders, overrides the config")
	validation = flag.Bool("validation", false, "enable validation layers and debug reports")
	fifo       = flag.Bool("fifo", false, "use FIFO presentation instead of mailbox")
	watch      = flag.Bool("watch", false, "rebuild the pipeline when a shader changes")
	frames     = flag.Uint64("frames", 0, "exit after this many frames, 0 runs until the window closes")
	useLibrary = flag.Bool("library", false, "open the Vulkan loader library directly instead of through glfw")
	width      = flag.Int("width", 0, "window width, defaults to the configured extent")
	height     = flag.Int("height", 0, "window height, defaults to the configured extent")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "osreview:", err)
		os.Exit(1)
	}
}

func loadConfig() (osrevk.Config, error) {
	cfg := osrevk.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = osrevk.LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	if *shaderDir != "" {
		cfg.ShaderDir = *shaderDir
	}
	if *validation {
		cfg.Validation = true
	}
	if *fifo {
		cfg.PresentMode = "fifo"
	}
	if *watch {
		cfg.WatchShaders = true
	}
	return cfg, cfg.Validate()
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(log)

	w, h := *width, *height
	if w <= 0 || h <= 0 {
		w, h = int(cfg.DefaultExtent.Width), int(cfg.DefaultExtent.Height)
	}
	reg := platform.NewRegistry(log)
	display, err := glfwwin.Open(cfg.AppName, w, h, reg)
	if err != nil {
		return err
	}
	defer display.Close()

	opts := []vkdriver.Option{vkdriver.WithLogger(log)}
	if *useLibrary {
		opts = append(opts, vkdriver.WithLibraries(cfg.Libraries...))
	} else {
		opts = append(opts, vkdriver.WithProcAddr(display.ProcAddr()))
	}
	backend := osrevk.New(vkdriver.New(opts...), cfg,
		osrevk.WithLogger(log),
		osrevk.WithRegistry(reg),
	)
	if err := backend.Create(display.Window()); err != nil {
		return err
	}
	defer func() {
		if err := backend.Destroy(); err != nil {
			log.Error("destroy", "err", err)
		}
	}()

	log.Debug("backend ready", "instance_extensions", backend.InstanceExtensions(), "swapchain", backend.SwapchainConfig())
	start := time.Now()
	for !display.ShouldClose() {
		display.Poll()
		if backend.Minimized() {
			// block until the window changes instead of spinning
			display.Wait()
		}
		if err := drawFrame(backend, time.Since(start)); err != nil {
			// a failed rebuild keeps the previous generation rendering
			var e *osrevk.Error
			if errors.As(err, &e) && backend.State() == osrevk.Recording {
				log.Warn("frame dropped", "kind", e.Kind, "err", err)
				continue
			}
			return err
		}
		if *frames > 0 && backend.Frames() >= *frames {
			break
		}
	}
	log.Info("done", "frames", backend.Frames(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func drawFrame(b *osrevk.Backend, t time.Duration) error {
	if err := b.BeginPass("RenderPass"); err != nil {
		return err
	}
	if err := b.BeginRenderBatch("b1"); err != nil {
		return err
	}
	if err := b.SetMatrix(osrevk.Model, osrevk.RotationZ(t.Seconds())); err != nil {
		return err
	}
	if err := b.EndRenderBatch(); err != nil {
		return err
	}
	return b.EndPass()
}
