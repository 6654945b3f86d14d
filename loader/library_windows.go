//go:build windows

package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// DefaultLibraryNames lists the Vulkan loader names tried on this platform.
func DefaultLibraryNames() []string {
	return []string{"vulkan-1.dll"}
}

func searchPaths() []string {
	var paths []string
	if sdk := os.Getenv("VULKAN_SDK"); sdk != "" {
		paths = append(paths, filepath.Join(sdk, "Bin"))
	}
	if sys, err := windows.GetSystemDirectory(); err == nil {
		paths = append(paths, sys)
	}
	return paths
}

type dllLibrary struct {
	dll *windows.DLL
}

func (l *dllLibrary) Sym(name string) (uintptr, error) {
	proc, err := l.dll.FindProc(name)
	if err != nil {
		return 0, err
	}
	return proc.Addr(), nil
}

func (l *dllLibrary) Close() error {
	return l.dll.Release()
}

func openLibrary(names []string) (Library, error) {
	paths := searchPaths()
	for _, name := range names {
		if dll, err := windows.LoadDLL(name); err == nil {
			return &dllLibrary{dll: dll}, nil
		}
		for _, dir := range paths {
			full := filepath.Join(dir, name)
			if _, err := os.Stat(full); err != nil {
				continue
			}
			if dll, err := windows.LoadDLL(full); err == nil {
				return &dllLibrary{dll: dll}, nil
			}
		}
	}
	return nil, fmt.Errorf("loader: vulkan library not found (tried %v in %v)", names, paths)
}
