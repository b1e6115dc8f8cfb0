// Package loaderplugin resolves webpack loader-prefixed module names such as
// "text!templates/main.html" into the build artifacts and webpack settings
// they require.
package loaderplugin

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultRegistryName is the registry consulted when none is configured.
const DefaultRegistryName = "calmjs.webpack.loaderplugins"

// Registry maps loader names to handlers. An auto-generating registry
// creates an npm-resolving handler for any name it has not seen.
type Registry struct {
	name    string
	autogen bool

	mu       sync.Mutex
	handlers map[string]Handler
}

// NewRegistry returns a registry that only knows registered handlers.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, handlers: make(map[string]Handler)}
}

// NewAutogenRegistry returns a registry that creates handlers on demand.
func NewAutogenRegistry(name string) *Registry {
	r := NewRegistry(name)
	r.autogen = true
	return r
}

func (r *Registry) Name() string {
	return r.name
}

// Register adds h under its name, replacing an existing handler.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
}

// Get returns the handler for name, or nil.
func (r *Registry) Get(name string) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handlers[name]; ok {
		return h
	}
	if !r.autogen || name == "" {
		return nil
	}
	h := NewAutogenHandler(r, name)
	r.handlers[name] = h
	log.Debug().Str("registry", r.name).Str("loader", name).Msg("generated loader handler")
	return h
}

// GetRecord returns the handler for the leftmost loader of a prefixed
// modname, or nil when modname has no loader prefix.
func (r *Registry) GetRecord(modname string) Handler {
	loader, _, ok := strings.Cut(modname, "!")
	if !ok {
		return nil
	}
	return r.Get(loader)
}

var (
	registriesMu sync.Mutex
	registries   = map[string]*Registry{}
)

// Lookup returns the process-wide registry called name, creating an
// auto-generating one on first use.
func Lookup(name string) *Registry {
	if name == "" {
		name = DefaultRegistryName
	}
	registriesMu.Lock()
	defer registriesMu.Unlock()
	if r, ok := registries[name]; ok {
		return r
	}
	r := NewAutogenRegistry(name)
	registries[name] = r
	return r
}

// Install makes r the process-wide registry for its name.
func Install(r *Registry) {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	registries[r.name] = r
}
