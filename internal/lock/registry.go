package locking

// one engine per database location: the page buffer and the catalog of a
// location are owned by whoever opened it first

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

var ErrLocationInUse = errors.New("locking: database location is already open")

type Registry struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{held: map[string]struct{}{}}
}

// Default is the process-wide registry.
var Default = NewRegistry()

func key(location string) string {
	if abs, err := filepath.Abs(location); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(location)
}

// Acquire claims location. It fails while another holder has it.
func (r *Registry) Acquire(location string) error {
	k := key(location)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.held[k]; ok {
		return fmt.Errorf("%w: %s", ErrLocationInUse, k)
	}
	r.held[k] = struct{}{}
	return nil
}

// Release gives location back. It reports whether it was held.
func (r *Registry) Release(location string) bool {
	k := key(location)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.held[k]; !ok {
		return false
	}
	delete(r.held, k)
	return true
}

func (r *Registry) Held(location string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.held[key(location)]
	return ok
}

func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("Registry: %d held", len(r.held))
}
