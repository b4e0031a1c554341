package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Plugin is the minimal contract shared by all plugin kinds: a unique
// identifier and a human-readable title.
type Plugin interface {
	ID() string
	Title() string
}

// Info is the listing projection of a registered plugin.
type Info struct {
	ID    string
	Title string
}

// UnknownPluginError is returned when a plugin identifier does not resolve
// to a registered, enabled implementation. Stale identifiers (e.g. stored
// in a profile before an administrator disabled the plugin) surface as this
// error rather than as a generic lookup failure.
type UnknownPluginError struct {
	Kind string
	ID   string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("plugin: unknown %s %q", e.Kind, e.ID)
}

// Registry holds the registered implementations of one plugin kind.
//
// Registries are process-wide state with an explicit lifecycle: populated
// during application initialization (typically from package init functions,
// the database/sql driver idiom), sealed before request handling begins,
// and read-only thereafter.
type Registry[P Plugin] struct {
	kind string

	mu       sync.RWMutex
	sealed   bool
	plugins  []P
	byID     map[string]P
	disabled map[string]bool
}

// NewRegistry creates an empty registry for the named plugin kind.
func NewRegistry[P Plugin](kind string) *Registry[P] {
	return &Registry[P]{
		kind:     kind,
		byID:     make(map[string]P),
		disabled: make(map[string]bool),
	}
}

// Register appends an implementation. Registering after Seal or reusing an
// identifier is a programming error.
func (r *Registry[P]) Register(p P) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("plugin: %s registry is sealed", r.kind)
	}
	id := p.ID()
	if id == "" {
		return fmt.Errorf("plugin: %s with empty ID", r.kind)
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("plugin: %s %q already registered", r.kind, id)
	}
	r.byID[id] = p
	r.plugins = append(r.plugins, p)
	return nil
}

// MustRegister is Register for package init functions, where a registration
// failure is unrecoverable.
func (r *Registry[P]) MustRegister(p P) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Seal marks the end of the registration phase. Later Register calls fail.
func (r *Registry[P]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// SetDisabled hides the given identifiers from listings and lookups without
// touching the registration itself. This is the operator-side toggle that
// drives profile reconciliation.
func (r *Registry[P]) SetDisabled(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = make(map[string]bool, len(ids))
	for _, id := range ids {
		r.disabled[id] = true
	}
}

// Get resolves an identifier to its implementation. Unregistered or
// disabled identifiers yield an *UnknownPluginError.
func (r *Registry[P]) Get(id string) (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.byID[id]
	if !exists || r.disabled[id] {
		var zero P
		return zero, &UnknownPluginError{Kind: r.kind, ID: id}
	}
	return p, nil
}

// Len returns the number of registered (including disabled) plugins.
func (r *Registry[P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ListAvailable returns (ID, Title) pairs of all enabled plugins, sorted by
// title (ties by ID). The projection is recomputed on every call, so a
// plugin registered after startup becomes visible immediately.
func (r *Registry[P]) ListAvailable() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.plugins))
	for _, p := range r.plugins {
		if r.disabled[p.ID()] {
			continue
		}
		out = append(out, Info{ID: p.ID(), Title: p.Title()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Package-level registries, one per plugin kind.
var (
	Events    = NewRegistry[EventProvider]("event provider")
	Layouts   = NewRegistry[LayoutProvider]("layout provider")
	Compilers = NewRegistry[CompilerProvider]("compiler")
)

// SealAll seals all package-level registries; called once startup
// registration is complete.
func SealAll() {
	Events.Seal()
	Layouts.Seal()
	Compilers.Seal()
}
