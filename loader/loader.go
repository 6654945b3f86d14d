// Package loader opens the Vulkan loader library at runtime and resolves its
// entry points in four tiers: the symbols exported by the library itself, the
// global commands reachable without an instance, the commands scoped to an
// instance and the commands scoped to a logical device.
//
// Each tier is filled by the same Resolve operation, parameterized by the tier
// and the dispatchable handle it is scoped to. A tier can only be resolved once
// its predecessor has been.
package loader

import (
	"errors"
	"fmt"
	"unsafe"
)

// Tier orders the stages at which Vulkan entry points become resolvable.
type Tier int

const (
	Exported Tier = iota
	Global
	Instance
	Device

	numTiers
)

func (t Tier) String() string {
	switch t {
	case Exported:
		return "exported"
	case Global:
		return "global"
	case Instance:
		return "instance"
	case Device:
		return "device"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

var (
	// ErrTierOrder is returned when a tier is resolved before its predecessor.
	ErrTierOrder = errors.New("loader: tier resolved out of order")
	// ErrNotFound is returned when a required symbol cannot be resolved.
	ErrNotFound = errors.New("loader: symbol not found")
)

// ProcAddr looks up an entry point inside a dispatchable scope. A zero scope
// addresses the global commands.
type ProcAddr func(scope uintptr, name string) uintptr

// Binder turns the raw address of vkGetInstanceProcAddr or
// vkGetDeviceProcAddr into a callable ProcAddr.
type Binder func(addr uintptr) ProcAddr

// Library is an opened dynamic library.
type Library interface {
	Sym(name string) (uintptr, error)
	Close() error
}

// Symbol names one entry point. Optional symbols may be absent without
// failing the tier.
type Symbol struct {
	Name     string
	Optional bool
}

// Table is the typed capability table filled tier by tier.
type Table struct {
	lib     Library
	bind    Binder
	symbols [numTiers][]Symbol
	addrs   map[string]uintptr
	loaded  [numTiers]bool

	instanceProc ProcAddr
	deviceProc   ProcAddr
}

// New creates a table over an opened library using the default symbol sets.
func New(lib Library, bind Binder) *Table {
	t := &Table{
		lib:   lib,
		bind:  bind,
		addrs: make(map[string]uintptr, 64),
	}
	t.symbols[Exported] = append([]Symbol(nil), ExportedSymbols...)
	t.symbols[Global] = append([]Symbol(nil), GlobalSymbols...)
	t.symbols[Instance] = append([]Symbol(nil), InstanceSymbols...)
	t.symbols[Device] = append([]Symbol(nil), DeviceSymbols...)
	return t
}

// Open loads the first Vulkan library that can be found under names, falling
// back to the platform defaults when names is empty.
func Open(names ...string) (*Table, error) {
	if len(names) == 0 {
		names = DefaultLibraryNames()
	}
	lib, err := openLibrary(names)
	if err != nil {
		return nil, err
	}
	return New(lib, PuregoBinder), nil
}

// FromProcAddr creates a table seeded with an externally obtained
// vkGetInstanceProcAddr, such as the one glfw exposes.
func FromProcAddr(addr unsafe.Pointer) *Table {
	return New(procLibrary(uintptr(addr)), PuregoBinder)
}

// Register appends symbols to a tier. Registering into a tier that is already
// resolved has no effect until it is resolved again.
func (t *Table) Register(tier Tier, syms ...Symbol) {
	if tier < Exported || tier >= numTiers {
		return
	}
	t.symbols[tier] = append(t.symbols[tier], syms...)
}

// Resolve fills every symbol registered for tier. Instance and Device tiers
// require the dispatchable handle they are scoped to. Resolving a tier again
// invalidates the tiers above it.
func (t *Table) Resolve(tier Tier, scope uintptr) error {
	if tier < Exported || tier >= numTiers {
		return fmt.Errorf("loader: unknown %s", tier)
	}
	if tier > Exported && !t.loaded[tier-1] {
		return fmt.Errorf("%w: %s requires %s", ErrTierOrder, tier, tier-1)
	}
	if (tier == Instance || tier == Device) && scope == 0 {
		return fmt.Errorf("loader: %s tier needs a non-null scope", tier)
	}

	var lookup func(name string) uintptr
	switch tier {
	case Exported:
		lookup = func(name string) uintptr {
			addr, err := t.lib.Sym(name)
			if err != nil {
				return 0
			}
			return addr
		}
	case Global:
		lookup = func(name string) uintptr { return t.instanceProc(0, name) }
	case Instance:
		lookup = func(name string) uintptr { return t.instanceProc(scope, name) }
	case Device:
		if t.deviceProc == nil {
			return fmt.Errorf("%w: vkGetDeviceProcAddr in %s tier", ErrNotFound, Instance)
		}
		lookup = func(name string) uintptr { return t.deviceProc(scope, name) }
	}

	for i := tier; i < numTiers; i++ {
		t.loaded[i] = false
	}
	for _, sym := range t.symbols[tier] {
		addr := lookup(sym.Name)
		if addr == 0 {
			if sym.Optional {
				delete(t.addrs, sym.Name)
				continue
			}
			return fmt.Errorf("%w: %s in %s tier", ErrNotFound, sym.Name, tier)
		}
		t.addrs[sym.Name] = addr
	}

	switch tier {
	case Exported:
		addr := t.addrs["vkGetInstanceProcAddr"]
		if addr == 0 {
			return fmt.Errorf("%w: vkGetInstanceProcAddr in %s tier", ErrNotFound, tier)
		}
		t.instanceProc = t.bind(addr)
	case Instance:
		t.deviceProc = nil
		if addr := t.addrs["vkGetDeviceProcAddr"]; addr != 0 {
			t.deviceProc = t.bind(addr)
		}
	}
	t.loaded[tier] = true
	return nil
}

// Addr returns the resolved address of name.
func (t *Table) Addr(name string) (uintptr, bool) {
	addr, ok := t.addrs[name]
	return addr, ok && addr != 0
}

// Loaded reports whether tier has been resolved.
func (t *Table) Loaded(tier Tier) bool {
	if tier < Exported || tier >= numTiers {
		return false
	}
	return t.loaded[tier]
}

// Close releases the library. The table must not be used afterwards.
func (t *Table) Close() error {
	for i := range t.loaded {
		t.loaded[i] = false
	}
	t.addrs = map[string]uintptr{}
	t.instanceProc, t.deviceProc = nil, nil
	if t.lib == nil {
		return nil
	}
	err := t.lib.Close()
	t.lib = nil
	return err
}

// procLibrary exposes a single vkGetInstanceProcAddr obtained elsewhere.
type procLibrary uintptr

func (p procLibrary) Sym(name string) (uintptr, error) {
	if name != "vkGetInstanceProcAddr" || p == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return uintptr(p), nil
}

func (procLibrary) Close() error { return nil }
