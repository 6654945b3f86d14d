//go:build linux || darwin || freebsd

package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ebitengine/purego"
)

// DefaultLibraryNames lists the Vulkan loader names tried on this platform.
func DefaultLibraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libvulkan.1.dylib", "libvulkan.dylib", "libMoltenVK.dylib"}
	default:
		return []string{"libvulkan.so.1", "libvulkan.so", "libvulkan-1.so"}
	}
}

func searchPaths() []string {
	var paths []string
	if sdk := os.Getenv("VULKAN_SDK"); sdk != "" {
		paths = append(paths, filepath.Join(sdk, "lib"))
	}
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths, "/usr/local/lib", "/opt/homebrew/lib")
	default:
		paths = append(paths, "/usr/lib/x86_64-linux-gnu", "/usr/lib64", "/usr/lib", "/usr/local/lib")
	}
	return paths
}

type dlLibrary struct {
	handle uintptr
	path   string
}

func (l *dlLibrary) Sym(name string) (uintptr, error) {
	return purego.Dlsym(l.handle, name)
}

func (l *dlLibrary) Close() error {
	return purego.Dlclose(l.handle)
}

func openLibrary(names []string) (Library, error) {
	paths := searchPaths()
	for _, name := range names {
		// bare name first so LD_LIBRARY_PATH and DYLD_LIBRARY_PATH apply
		if h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL); err == nil {
			return &dlLibrary{handle: h, path: name}, nil
		}
		for _, dir := range paths {
			full := filepath.Join(dir, name)
			if _, err := os.Stat(full); err != nil {
				continue
			}
			if h, err := purego.Dlopen(full, purego.RTLD_NOW|purego.RTLD_GLOBAL); err == nil {
				return &dlLibrary{handle: h, path: full}, nil
			}
		}
	}
	return nil, fmt.Errorf("loader: vulkan library not found (tried %v in %v)", names, paths)
}
