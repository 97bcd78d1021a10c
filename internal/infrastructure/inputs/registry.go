package inputs

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// GlobalRegistry is where input packages register their factory in init().
var GlobalRegistry = NewRegistry()

// Registry holds registered input factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for an input type, replacing one of the same name.
func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Name()] = factory
}

func (r *Registry) factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Create builds a MessageInput for the given type and config.
func (r *Registry) Create(name string, cfg Config, buffer InputBuffer) (MessageInput, error) {
	factory, ok := r.factory(name)
	if !ok {
		return nil, fmt.Errorf("unknown input type: %s", name)
	}
	if buffer == nil {
		return nil, fmt.Errorf("no buffer for input type %s", name)
	}
	return factory.Create(cfg, buffer)
}

// ValidateConfig runs the factory's ConfigValidator when it has one.
func (r *Registry) ValidateConfig(typeName string, cfg Config) error {
	factory, ok := r.factory(typeName)
	if !ok {
		return fmt.Errorf("unknown input type: %s", typeName)
	}
	if v, ok := factory.(ConfigValidator); ok {
		return v.ValidateConfig(cfg)
	}
	return nil
}

// ListRegistered returns all registered input type names, sorted.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// GetTypeInfo returns the config spec for the given input type. ok is false if the type is not registered.
func (r *Registry) GetTypeInfo(name string) (info InputTypeInfo, ok bool) {
	factory, ok := r.factory(name)
	if !ok {
		return InputTypeInfo{}, false
	}
	return factory.ConfigSpec(), true
}

// AllTypesInfo returns config specs for all registered input types, ordered by type.
func (r *Registry) AllTypesInfo() []InputTypeInfo {
	names := r.ListRegistered()
	out := make([]InputTypeInfo, 0, len(names))
	for _, name := range names {
		if info, ok := r.GetTypeInfo(name); ok {
			out = append(out, info)
		}
	}
	return out
}

// MountHTTPEndpoints creates and starts one input per spec. Endpoint inputs
// without their own listener are handed to mount. bufferFor picks the buffer
// of each spec. The started inputs are returned so the caller can stop them.
func (r *Registry) MountHTTPEndpoints(
	mount func(path string, h http.Handler),
	specs []InputSpec,
	bufferFor func(InputSpec) (InputBuffer, error),
) ([]MessageInput, error) {
	started := make([]MessageInput, 0, len(specs))
	for _, spec := range specs {
		buffer, err := bufferFor(spec)
		if err != nil {
			return started, err
		}
		cfg := spec.EffectiveConfig()
		if err := r.ValidateConfig(spec.Type, cfg); err != nil {
			return started, err
		}
		input, err := r.Create(spec.Type, cfg, buffer)
		if err != nil {
			return started, err
		}
		if err := input.Start(); err != nil {
			return started, fmt.Errorf("start %s input %q: %w", spec.Type, spec.Description, err)
		}
		started = append(started, input)
		if ep, ok := input.(HTTPEndpointInput); ok && ep.ListenAddr() == "" {
			mount(ep.Path(), ep.Handler())
		}
	}
	return started, nil
}
