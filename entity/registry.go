package entity

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/signal"
)

// Factory creates an entity instance with the given name. The base
// constructor inside the factory performs the registration, so a factory
// written for one registry must not be installed in another.
type Factory func(name string) (*Entity, error)

// Registry manages entity classes and instances. The class table maps
// class names to factories for configuration-driven construction; the
// instance pool maps entity names to live entities. Both sides are
// thread-safe: remote tooling lists and looks up while the graph runs.
type Registry struct {
	factories map[string]Factory
	instances map[string]*Entity
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]*Entity),
	}
}

// Default is the process-wide registry. Entity classes register here
// from their package register functions, and New constructs into it.
var Default = NewRegistry()

// RegisterClass installs a factory under the class name. Fails with
// ErrDuplicateClassName when the class is already taken.
func (r *Registry) RegisterClass(className string, factory Factory) error {
	if className == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterClass",
			"empty class name")
	}
	if factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterClass",
			fmt.Sprintf("nil factory for class %q", className))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[className]; exists {
		return errors.WrapInvalid(errors.ErrDuplicateClassName, "Registry", "RegisterClass",
			fmt.Sprintf("registering class %q", className))
	}
	r.factories[className] = factory
	return nil
}

// UnregisterClass removes a class from the table. Instances already
// built from it are unaffected. Unknown names are a no-op.
func (r *Registry) UnregisterClass(className string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, className)
}

// HasClass reports whether a factory is installed for the class name.
func (r *Registry) HasClass(className string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[className]
	return exists
}

// Classes returns the installed class names in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// NewEntity constructs an instance of the named class. The factory's
// base constructor registers the instance, so on success the entity is
// already live in this registry. A factory that builds an entity of a
// different class than requested is rejected and its orphan destroyed.
func (r *Registry) NewEntity(className, instanceName string) (*Entity, error) {
	r.mu.RLock()
	factory, exists := r.factories[className]
	alreadyLive := false
	if instanceName != "" {
		_, alreadyLive = r.instances[instanceName]
	}
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(errors.ErrClassNotFound, "Registry", "NewEntity",
			fmt.Sprintf("looking up class %q", className))
	}
	if alreadyLive {
		return nil, errors.WrapInvalid(errors.ErrDuplicateEntityName, "Registry", "NewEntity",
			fmt.Sprintf("constructing %q as %s", instanceName, className))
	}

	e, err := factory(instanceName)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "NewEntity",
			fmt.Sprintf("constructing %q as %s", instanceName, className))
	}
	if e.ClassName() != className {
		e.Destroy()
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "NewEntity",
			fmt.Sprintf("factory for %q built an entity of class %q", className, e.ClassName()))
	}
	return e, nil
}

// add inserts a freshly constructed entity into the pool. Called by the
// base constructor under no other lock.
func (r *Registry) add(e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[e.name]; exists {
		return errors.WrapInvalid(errors.ErrDuplicateEntityName, "Registry", "add",
			fmt.Sprintf("registering entity %q", e.name))
	}
	r.instances[e.name] = e
	return nil
}

// remove deletes the entity from the pool, but only while the name still
// maps to that exact instance: a successor registered under a recycled
// name must not be evicted by a late Destroy of its predecessor.
func (r *Registry) remove(name string, e *Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.instances[name]; exists && current == e {
		delete(r.instances, name)
	}
}

// Entity returns the live instance registered under name.
func (r *Registry) Entity(name string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.instances[name]
	if !exists {
		return nil, errors.WrapInvalid(errors.ErrEntityNotFound, "Registry", "Entity",
			fmt.Sprintf("looking up %q", name))
	}
	return e, nil
}

// Exists reports whether a live instance holds the name.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.instances[name]
	return exists
}

// Names returns the live instance names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.instances))
}

// EntityMap returns a copy of the instance pool.
func (r *Registry) EntityMap() map[string]*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Entity, len(r.instances))
	maps.Copy(result, r.instances)
	return result
}

// Size returns the number of live instances.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Signal resolves a dotted "entity.signal" path against the pool. The
// split is on the last dot, so entity names may themselves contain dots.
func (r *Registry) Signal(path string) (signal.Base, error) {
	idx := strings.LastIndex(path, ".")
	if idx <= 0 || idx == len(path)-1 {
		return nil, errors.WrapInvalid(errors.ErrSignalNotFound, "Registry", "Signal",
			fmt.Sprintf("parsing path %q, want entity.signal", path))
	}
	e, err := r.Entity(path[:idx])
	if err != nil {
		return nil, err
	}
	return e.Signal(path[idx+1:])
}

// Plug resolves both dotted paths and wires the source into the target
// input.
func (r *Registry) Plug(srcPath, dstPath string) error {
	src, err := r.Signal(srcPath)
	if err != nil {
		return errors.Wrap(err, "Registry", "Plug", "resolving source "+srcPath)
	}
	dst, err := r.Signal(dstPath)
	if err != nil {
		return errors.Wrap(err, "Registry", "Plug", "resolving target "+dstPath)
	}
	return signal.Plug(src, dst)
}

// Clear destroys every live instance. The class table survives, so a
// cleared registry can rebuild the same graph.
func (r *Registry) Clear() {
	for _, e := range r.EntityMap() {
		e.Destroy()
	}
}

// WriteCompletionList writes the completion tokens of every live
// instance in sorted order.
func (r *Registry) WriteCompletionList(w io.Writer) {
	pool := r.EntityMap()
	for _, name := range slices.Sorted(maps.Keys(pool)) {
		pool[name].WriteCompletionList(w)
	}
}

// RegisterClass installs a factory in the default registry.
func RegisterClass(className string, factory Factory) error {
	return Default.RegisterClass(className, factory)
}

// Get returns the named instance from the default registry.
func Get(name string) (*Entity, error) {
	return Default.Entity(name)
}
