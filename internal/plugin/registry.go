package plugin

import (
	"fmt"
	"sort"
	"sync"

	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// APIVersion is the provider contract implemented by this engine.
const APIVersion = "1.x"

// Registry maps resource types to providers.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	major   int
}

// NewRegistry returns an empty registry accepting providers built for APIVersion.
func NewRegistry() *Registry {
	major, err := contractMajor(APIVersion)
	if err != nil {
		panic(err)
	}
	return &Registry{plugins: make(map[string]Plugin), major: major}
}

// Register adds a provider for kind after validating its metadata.
func (r *Registry) Register(kind string, p Plugin) error {
	if p == nil {
		return convergeerrors.NewPluginError(kind, fmt.Errorf("plugin is nil"))
	}

	meta := p.PluginMetadata()
	if err := meta.Validate(); err != nil {
		return convergeerrors.NewPluginError(kind, err)
	}
	if meta.Type != kind {
		return convergeerrors.NewPluginError(kind, fmt.Errorf("plugin '%s' handles '%s' resources", meta.Name, meta.Type))
	}

	if major, _ := contractMajor(meta.APIVersion); major != r.major {
		return convergeerrors.NewPluginError(kind, ErrIncompatibleAPI{Plugin: meta.Name, APIVersion: meta.APIVersion, Required: APIVersion})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[kind]; exists {
		return convergeerrors.NewPluginError(kind, fmt.Errorf("plugin already registered"))
	}
	r.plugins[kind] = p
	return nil
}

// Get retrieves the provider for kind.
func (r *Registry) Get(kind string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[kind]
	if !ok {
		return nil, ErrPluginNotFound{Name: kind}
	}
	return p, nil
}

// Kinds lists registered resource types in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.plugins))
	for kind := range r.plugins {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
