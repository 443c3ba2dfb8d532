package rtti

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/hengadev/rtti/internal/monitoring"
	"github.com/hengadev/rtti/internal/rttierr"
)

// Registry maps type identifiers to descriptors.
//
// Entries are immutable once registered. Registration normally happens at process
// start, but a Registry is safe for concurrent use so late registration does not
// race with in-flight serialization.
type Registry struct {
	mu    sync.RWMutex
	types map[TypeID]*TypeDescriptor
	hook  monitoring.ObservabilityHook
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[TypeID]*TypeDescriptor),
		hook:  &monitoring.NoOpObservabilityHook{},
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by the package-level
// functions and by serializers built without WithRegistry.
func DefaultRegistry() *Registry { return defaultRegistry }

// SetObservabilityHook installs a hook notified of every successful registration.
func (r *Registry) SetObservabilityHook(hook monitoring.ObservabilityHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook == nil {
		hook = &monitoring.NoOpObservabilityHook{}
	}
	r.hook = hook
}

// Register validates desc and adds it to the registry.
func (r *Registry) Register(desc *TypeDescriptor) error {
	if desc == nil {
		return rttierr.NewInvalidDescriptorError("<nil>", fmt.Errorf("descriptor is nil"))
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if existing, ok := r.types[desc.id]; ok {
		r.mu.Unlock()
		return rttierr.NewDuplicateTypeError(uint32(desc.id), existing.name, desc.name)
	}
	r.types[desc.id] = desc
	hook := r.hook
	r.mu.Unlock()

	hook.OnTypeRegistered(uint32(desc.id), desc.name, len(desc.fields))
	return nil
}

// RegisterType registers desc under id, building instances with factory. id and
// the factory override whatever desc was constructed with.
func (r *Registry) RegisterType(id TypeID, desc *TypeDescriptor, factory func() Reflectable) error {
	if desc == nil {
		return rttierr.NewInvalidDescriptorError("<nil>", fmt.Errorf("descriptor is nil"))
	}
	if desc.id != id {
		return rttierr.NewInvalidDescriptorError(desc.name,
			fmt.Errorf("registered under id %d but declares id %d", id, desc.id))
	}
	if factory != nil {
		desc = desc.withFactory(factory)
	}
	return r.Register(desc)
}

// MustRegister registers every descriptor and panics on the first failure. It is
// meant for package init functions.
func (r *Registry) MustRegister(descs ...*TypeDescriptor) {
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id TypeID) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[id]
	return d, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id TypeID) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Types returns all registered descriptors ordered by id.
func (r *Registry) Types() []*TypeDescriptor {
	r.mu.RLock()
	out := make([]*TypeDescriptor, 0, len(r.types))
	for _, d := range r.types {
		out = append(out, d)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *TypeDescriptor) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// lookupFor is Lookup returning ErrUnknownTypeID for a missing id.
func (r *Registry) lookupFor(id TypeID, op rttierr.Op) (*TypeDescriptor, error) {
	d, ok := r.Lookup(id)
	if !ok {
		return nil, rttierr.NewUnknownTypeIDError(uint32(id), op)
	}
	return d, nil
}

// descriptorOf returns the registered descriptor for obj and checks that obj is the
// Go type the descriptor was built for.
func (r *Registry) descriptorOf(obj Reflectable) (*TypeDescriptor, error) {
	d, err := r.lookupFor(obj.TypeID(), rttierr.Encode)
	if err != nil {
		return nil, err
	}
	if got := reflect.TypeOf(obj); got != d.goType {
		return nil, rttierr.NewTypeMismatchError(fmt.Sprintf("type id %d", d.id), d.goType, got)
	}
	return d, nil
}

// Register adds desc to the default registry.
func Register(desc *TypeDescriptor) error { return defaultRegistry.Register(desc) }

// RegisterType adds desc to the default registry under id.
func RegisterType(id TypeID, desc *TypeDescriptor, factory func() Reflectable) error {
	return defaultRegistry.RegisterType(id, desc, factory)
}

// MustRegister adds every descriptor to the default registry or panics.
func MustRegister(descs ...*TypeDescriptor) { defaultRegistry.MustRegister(descs...) }
