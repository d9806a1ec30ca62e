package diskqueue

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sync"
)

// HandlerFunc executes one job.
type HandlerFunc func(ctx context.Context, args Args) error

// Resolver maps job references to handlers and back.
type Resolver interface {
	// Resolve returns the handler registered under ref.
	Resolve(ref string) (HandlerFunc, error)
	// ReferenceOf returns the reference fn is stored under.
	ReferenceOf(fn HandlerFunc) (string, error)
}

// Registry maps references to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	names    map[uintptr]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
		names:    make(map[uintptr]string),
	}
}

// DefaultRegistry is used by queues created without WithResolver.
var DefaultRegistry = NewRegistry()

// Register adds fn to DefaultRegistry under its runtime name.
func Register(fn HandlerFunc) (string, error) {
	return DefaultRegistry.Register(fn)
}

// RegisterNamed adds fn to DefaultRegistry under name.
func RegisterNamed(name string, fn HandlerFunc) error {
	return DefaultRegistry.RegisterNamed(name, fn)
}

// Register adds fn under its fully qualified runtime name and returns it.
func (r *Registry) Register(fn HandlerFunc) (string, error) {
	if fn == nil {
		return "", ErrNilHandler
	}
	name := FuncName(fn)
	if err := r.add(name, fn); err != nil {
		return "", err
	}
	return name, nil
}

// RegisterNamed adds fn under an explicit name. The name takes precedence over
// the runtime name when the reference of fn is derived.
func (r *Registry) RegisterNamed(name string, fn HandlerFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	if name == "" {
		return ErrEmptyReference
	}
	return r.add(name, fn)
}

// MustRegister registers every fn under its runtime name and panics on failure.
func (r *Registry) MustRegister(fns ...HandlerFunc) {
	for _, fn := range fns {
		if _, err := r.Register(fn); err != nil {
			panic(fmt.Sprintf("diskqueue: %v", err))
		}
	}
}

func (r *Registry) add(name string, fn HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerAlreadyRegistered, name)
	}
	r.handlers[name] = fn
	if _, ok := r.names[funcPC(fn)]; !ok {
		r.names[funcPC(fn)] = name
	}
	return nil
}

// Resolve implements Resolver.
func (r *Registry) Resolve(ref string) (HandlerFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.handlers[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrUnresolvableReference, ref)
	}
	return fn, nil
}

// ReferenceOf implements Resolver. Unregistered functions are referenced by
// their runtime name so that another process may still resolve them.
func (r *Registry) ReferenceOf(fn HandlerFunc) (string, error) {
	if fn == nil {
		return "", ErrNilHandler
	}

	r.mu.RLock()
	name, ok := r.names[funcPC(fn)]
	r.mu.RUnlock()
	if ok {
		return name, nil
	}
	return FuncName(fn), nil
}

// Names returns the registered references in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FuncName returns the fully qualified runtime name of fn,
// e.g. "github.com/acme/app/jobs.SendEmail".
func FuncName(fn HandlerFunc) string {
	if f := runtime.FuncForPC(funcPC(fn)); f != nil {
		return f.Name()
	}
	return ""
}

func funcPC(fn HandlerFunc) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
