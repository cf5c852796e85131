package network

import (
	"fmt"
	"sync"
)

// Registry holds the known networks and the current selection.
// Exactly one network is current at any time.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]Descriptor
	current string
}

// NewRegistry registers descs and selects defaultID.
func NewRegistry(defaultID string, descs ...Descriptor) (*Registry, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("registry needs at least one network")
	}
	r := &Registry{byID: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate network id %q", d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	if _, ok := r.byID[defaultID]; !ok {
		return nil, fmt.Errorf("default network %q: %w", defaultID, ErrUnknownNetwork)
	}
	r.current = defaultID
	return r, nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%q: %w", id, ErrUnknownNetwork)
	}
	return d, nil
}

// Current returns the selected network.
func (r *Registry) Current() Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[r.current]
}

// List returns all networks in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// SwitchCurrent selects id. An unknown id leaves the selection unchanged.
func (r *Registry) SwitchCurrent(id string) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%q: %w", id, ErrUnknownNetwork)
	}
	r.current = id
	return d, nil
}
