package metadata

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-wide catalogue of metadata keys. It is loaded once
// at startup and handed to the components that need key lookup; resolution
// code never reaches for an ambient global.
type Registry struct {
	mu     sync.RWMutex
	byID   map[int64]Key
	byName map[string]Key
}

// NewRegistry constructs an empty key registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[int64]Key),
		byName: make(map[string]Key),
	}
}

// Register adds a key to the catalogue, guarding against duplicate IDs and
// names. Registration errors are configuration defects and fail fast.
func (r *Registry) Register(key Key) error {
	if key.Name == "" {
		return fmt.Errorf("metadata: key name must not be empty")
	}
	if key.ID <= 0 {
		return fmt.Errorf("metadata: key %q must have a positive id", key.Name)
	}
	if key.Kind == "" {
		return fmt.Errorf("metadata: key %q must declare a value kind", key.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = make(map[int64]Key)
		r.byName = make(map[string]Key)
	}
	if existing, ok := r.byID[key.ID]; ok {
		return fmt.Errorf("metadata: key id %d already registered as %q", key.ID, existing.Name)
	}
	if _, ok := r.byName[key.Name]; ok {
		return fmt.Errorf("metadata: key %q already registered", key.Name)
	}
	r.byID[key.ID] = key
	r.byName[key.Name] = key
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry) MustRegister(key Key) Key {
	if err := r.Register(key); err != nil {
		panic(err)
	}
	return key
}

// Lookup resolves a key reference against the catalogue. Returns
// ErrKeyUnknown when the reference names no registered key.
func (r *Registry) Lookup(ref KeyRef) (Key, error) {
	if r == nil {
		return Key{}, fmt.Errorf("%w: registry not configured", ErrKeyUnknown)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case !ref.key.isZero():
		if key, ok := r.byID[ref.key.ID]; ok {
			return key, nil
		}
	case ref.name != "":
		if key, ok := r.byName[ref.name]; ok {
			return key, nil
		}
	case ref.id != 0:
		if key, ok := r.byID[ref.id]; ok {
			return key, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %s", ErrKeyUnknown, ref)
}

// Keys returns every registered key ordered by ID.
func (r *Registry) Keys() []Key {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Key, 0, len(r.byID))
	for _, key := range r.byID {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
