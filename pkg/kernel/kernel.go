// Package kernel defines the boolean kernel interface used to combine
// feature solids, and a registry of named implementations. Backends
// (csg, sdfx) register themselves on import, so a build selects kernels by
// importing their packages.
package kernel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
)

// Op is a boolean set operation.
type Op int

const (
	OpUnion Op = iota
	OpSubtract
	OpIntersect
)

func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpSubtract:
		return "subtract"
	case OpIntersect:
		return "intersect"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ErrUnknownKernel is returned by New for unregistered names.
var ErrUnknownKernel = errors.New("kernel: unknown kernel")

// Kernel combines two closed, outward-oriented meshes.
type Kernel interface {
	// Name identifies the kernel in configuration and logs.
	Name() string
	// Boolean returns a op b. Inputs are not modified.
	Boolean(a, b *geom.Mesh, op Op) (*geom.Mesh, error)
}

// Factory builds a kernel instance.
type Factory func() Kernel

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a kernel available by name. Registering a name twice
// panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("kernel: Register called twice for " + name)
	}
	registry[name] = f
}

// New returns a fresh instance of the named kernel.
func New(name string) (Kernel, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return f(), nil
}

// Names returns the registered kernel names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
