package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrKeymapNotFound is returned when a named keymap is not registered.
var ErrKeymapNotFound = errors.New("keymap not found")

// Registry holds the keymaps available to the application by name.
type Registry struct {
	mu sync.RWMutex

	// keymaps holds all registered keymaps by lowercase name.
	keymaps map[string]*Keymap
}

// NewRegistry creates a new keymap registry.
func NewRegistry() *Registry {
	return &Registry{
		keymaps: make(map[string]*Keymap),
	}
}

// Register validates and adds a keymap to the registry.
// If a keymap with the same name already exists, it is replaced.
func (r *Registry) Register(km *Keymap) error {
	if km == nil {
		return fmt.Errorf("cannot register nil keymap")
	}
	if km.Name == "" {
		return fmt.Errorf("cannot register unnamed keymap")
	}
	if err := km.Validate(); err != nil {
		return fmt.Errorf("validating keymap %q: %w", km.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.keymaps[strings.ToLower(km.Name)] = km
	return nil
}

// Unregister removes a keymap from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.keymaps, strings.ToLower(name))
}

// Get returns the named keymap (case-insensitive).
func (r *Registry) Get(name string) (*Keymap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	km, ok := r.keymaps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeymapNotFound, name)
	}
	return km, nil
}

// Names returns the registered keymap names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.keymaps))
	for _, km := range r.keymaps {
		names = append(names, km.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered keymaps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keymaps)
}
