package loader

import "github.com/ebitengine/purego"

// PuregoBinder binds a vkGet*ProcAddr pointer without cgo. String arguments
// are passed to C as null-terminated copies.
func PuregoBinder(addr uintptr) ProcAddr {
	var fn func(scope uintptr, name string) uintptr
	purego.RegisterFunc(&fn, addr)
	return fn
}
