package accel

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// ErrUnavailable is returned when an acceleration module cannot be used:
// it is not registered, failed to instantiate, lacks a required export or
// cannot hold the operands of a call.
var ErrUnavailable = errors.New("acceleration unavailable")

// ErrAlreadyRegistered is returned by Register for a duplicate module name.
var ErrAlreadyRegistered = errors.New("acceleration module already registered")

// HammingFunc is the module entry point. It reads two operands of bitLen bits
// from the module memory at offA and offB and returns their Hamming distance.
type HammingFunc func(offA, offB, bitLen uint32) uint32

// Exports is what an instantiated module exposes.
type Exports struct {
	// Memory is the module's linear memory shared with the caller.
	Memory []byte
	// HammingDistance is the hammingDistance entry point.
	HammingDistance HammingFunc
}

// Factory instantiates a fresh module instance.
type Factory func() (Exports, error)

// Info describes a registered module.
type Info struct {
	Name    string
	Version string
}

type module struct {
	info    Info
	factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]module)
)

// Register publishes a module factory under name. Registering the same name
// twice fails with ErrAlreadyRegistered.
func Register(name, version string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("accel: register requires a name and a factory")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	registry[name] = module{info: Info{Name: name, Version: version}, factory: factory}
	return nil
}

// Modules lists the registered modules sorted by name.
func Modules() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Info, 0, len(registry))
	for _, m := range registry {
		out = append(out, m.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load instantiates the named module and validates its exports.
// Every failure is reported as ErrUnavailable.
func Load(name string) (*Kernel, error) {
	registryMu.RLock()
	m, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: module %q not registered", ErrUnavailable, name)
	}

	exports, err := instantiate(m.factory)
	if err != nil {
		return nil, fmt.Errorf("%w: instantiate %s@%s: %v", ErrUnavailable, m.info.Name, m.info.Version, err)
	}
	if err := validate(exports); err != nil {
		return nil, fmt.Errorf("%w: %s@%s: %v", ErrUnavailable, m.info.Name, m.info.Version, err)
	}

	return &Kernel{
		info: m.info,
		mem:  exports.Memory,
		fn:   exports.HammingDistance,
	}, nil
}

func instantiate(factory Factory) (exports Exports, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return factory()
}

// selfCheckBytes is the memory needed by the load-time self check.
const selfCheckBytes = 16

// validate checks the exports and runs a self check with known answers.
func validate(e Exports) error {
	if len(e.Memory) == 0 {
		return errors.New("missing exported memory")
	}
	if e.HammingDistance == nil {
		return errors.New("missing hammingDistance export")
	}
	if len(e.Memory) < selfCheckBytes {
		return fmt.Errorf("exported memory too small: %d bytes", len(e.Memory))
	}

	saved := slices.Clone(e.Memory[:selfCheckBytes])
	defer copy(e.Memory, saved)

	for i := range 8 {
		e.Memory[i] = 0xFF
		e.Memory[8+i] = 0
	}
	for _, p := range []struct{ bits, want uint32 }{{64, 64}, {3, 3}, {0, 0}} {
		got, err := call(e.HammingDistance, 0, 8, p.bits)
		if err != nil {
			return err
		}
		if got != p.want {
			return fmt.Errorf("self check mismatch: bitLen=%d got %d want %d", p.bits, got, p.want)
		}
	}
	return nil
}

// call invokes fn and turns a trap into an error.
func call(fn HammingFunc, offA, offB, bitLen uint32) (d uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hammingDistance trapped: %v", r)
		}
	}()
	return fn(offA, offB, bitLen), nil
}
