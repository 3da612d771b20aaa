// Package plugin keeps the registry of core writers, addressed by name
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gocore/savecore"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var (
	// ErrPluginNotFound is returned when no plugin is registered under a name
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrInvalidPlugin is returned when a plugin cannot be registered
	ErrInvalidPlugin = errors.New("invalid plugin")
)

// Writer produces a core file from fully configured options. Writers read
// the options and never modify them.
type Writer interface {
	SaveCore(opts *savecore.SaveCoreOptions) error
}

// Plugin is a named core writer
type Plugin struct {
	Name        string
	Description string
	Writer      Writer
}

// Registry maps plugin names to core writers. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	log     *logger.Logger
}

var _ savecore.PluginRegistry = (*Registry)(nil)

// DefaultRegistry holds the writers built into this module
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "plugins")),
	}
}

// Register adds p. Names are unique and every plugin needs a writer.
func (r *Registry) Register(p Plugin) error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPlugin)
	}
	if p.Writer == nil {
		return fmt.Errorf("%w: %q has no writer", ErrInvalidPlugin, p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[p.Name]; ok {
		return fmt.Errorf("%w: %q is already registered", ErrInvalidPlugin, p.Name)
	}

	r.plugins[p.Name] = p
	r.log.Debugln("Registered core writer", p.Name)
	return nil
}

// IsValidPluginName reports whether name is registered
func (r *Registry) IsValidPluginName(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.plugins[name]
	return ok
}

// Lookup returns the plugin registered under name
func (r *Registry) Lookup(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	if !ok {
		return Plugin{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	return p, nil
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
