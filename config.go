package osrevk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	vk "github.com/vulkan-go/vulkan"
	"gopkg.in/yaml.v3"
)

// Extent is a width and height in pixels.
type Extent struct {
	Width  uint32 `toml:"width" yaml:"width"`
	Height uint32 `toml:"height" yaml:"height"`
}

func (e Extent) vk() vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

// Config holds everything the backend reads at creation time. It can be
// loaded from TOML or YAML; fields left out keep their DefaultConfig values.
type Config struct {
	AppName    string `toml:"app_name" yaml:"app_name"`
	EngineName string `toml:"engine_name" yaml:"engine_name"`

	// AppVersion and EngineVersion are reported to the driver, same format
	// as APIVersion.
	AppVersion    string `toml:"app_version" yaml:"app_version"`
	EngineVersion string `toml:"engine_version" yaml:"engine_version"`
	// APIVersion is "major.minor" or "major.minor.patch".
	APIVersion    string `toml:"api_version" yaml:"api_version"`

	// Libraries overrides the platform list of Vulkan loader names.
	Libraries []string `toml:"libraries" yaml:"libraries"`

	Validation         bool     `toml:"validation" yaml:"validation"`
	ValidationLayers   []string `toml:"validation_layers" yaml:"validation_layers"`
	InstanceExtensions []string `toml:"instance_extensions" yaml:"instance_extensions"`
	DeviceExtensions   []string `toml:"device_extensions" yaml:"device_extensions"`

	// DefaultExtent is used when the surface leaves the extent to the
	// application and the window size is unknown.
	DefaultExtent Extent `toml:"default_extent" yaml:"default_extent"`
	// PresentMode is "mailbox" (falls back to fifo) or "fifo".
	PresentMode string     `toml:"present_mode" yaml:"present_mode"`
	ClearColor  [4]float32 `toml:"clear_color" yaml:"clear_color"`

	ShaderDir      string `toml:"shader_dir" yaml:"shader_dir"`
	VertexShader   string `toml:"vertex_shader" yaml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader" yaml:"fragment_shader"`
	WatchShaders   bool   `toml:"watch_shaders" yaml:"watch_shaders"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the stock triangle setup.
func DefaultConfig() Config {
	return Config{
		AppName:          "OSRE-Vulkan-Renderer",
		EngineName:       "osrevk",
		AppVersion:       "1.0.0",
		EngineVersion:    "1.0.0",
		APIVersion:       "1.0",
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		DeviceExtensions: []string{"VK_KHR_swapchain"},
		DefaultExtent:    Extent{Width: 640, Height: 480},
		PresentMode:      "mailbox",
		ClearColor:       [4]float32{1.0, 0.8, 0.4, 0.0},
		ShaderDir:        "Data03",
		VertexShader:     "vert.spv",
		FragmentShader:   "frag.spv",
		LogLevel:         "info",
	}
}

// LoadConfig reads a TOML or YAML file, chosen by extension, on top of
// DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values that would otherwise fail late during
// bring-up.
func (c *Config) Validate() error {
	if _, err := c.apiVersion(); err != nil {
		return err
	}
	if _, err := parseVersion("app_version", c.AppVersion); err != nil {
		return err
	}
	if _, err := parseVersion("engine_version", c.EngineVersion); err != nil {
		return err
	}
	switch strings.ToLower(c.PresentMode) {
	case "", "mailbox", "fifo":
	default:
		return fmt.Errorf("present_mode %q: want mailbox or fifo", c.PresentMode)
	}
	if c.DefaultExtent.Width == 0 || c.DefaultExtent.Height == 0 {
		return fmt.Errorf("default_extent %dx%d: must be non-zero", c.DefaultExtent.Width, c.DefaultExtent.Height)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return fmt.Errorf("vertex_shader and fragment_shader are required")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.levelText())); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the configured log level, info when unset or invalid.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.levelText())); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (c *Config) levelText() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

func (c *Config) preferFIFO() bool {
	return strings.EqualFold(c.PresentMode, "fifo")
}

func (c *Config) apiVersion() (uint32, error) {
	return parseVersion("api_version", c.APIVersion)
}

// parseVersion packs "major.minor[.patch]" for the driver, 1.0.0 when empty.
func parseVersion(field, s string) (uint32, error) {
	if s == "" {
		s = "1.0"
	}
	var major, minor, patch uint32
	n, _ := fmt.Sscanf(s, "%d.%d.%d", &major, &minor, &patch)
	if n < 2 {
		return 0, fmt.Errorf("%s %q: want major.minor[.patch]", field, s)
	}
	return vk.MakeVersion(int(major), int(minor), int(patch)), nil
}
