package speaker

import (
	"strings"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// Registry is the fixed, ordered set of devices under control. Entries are
// added at startup and never removed.
type Registry struct {
	order  []*State
	byAddr map[string]*State
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byAddr: make(map[string]*State)}
}

// Register adds a device. Addresses must be unique and non-empty.
func (r *Registry) Register(address, name string) (*State, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.InvalidInputf("device address is empty")
	}
	if _, exists := r.byAddr[address]; exists {
		return nil, errors.InvalidInputf("device %s already registered", address)
	}

	s := NewState(address, name)
	r.order = append(r.order, s)
	r.byAddr[address] = s
	return s, nil
}

// Get returns the state for address.
func (r *Registry) Get(address string) (*State, error) {
	s, ok := r.byAddr[address]
	if !ok {
		return nil, errors.NotFoundf("device %s", address)
	}
	return s, nil
}

// At returns the state at position i in registration order.
func (r *Registry) At(i int) *State {
	return r.order[i]
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.order)
}

// States returns every state in registration order.
func (r *Registry) States() []*State {
	out := make([]*State, len(r.order))
	copy(out, r.order)
	return out
}

// Addresses returns every address in registration order.
func (r *Registry) Addresses() []string {
	out := make([]string, len(r.order))
	for i, s := range r.order {
		out[i] = s.address
	}
	return out
}

// Snapshot copies every state in registration order.
func (r *Registry) Snapshot() []Snapshot {
	out := make([]Snapshot, len(r.order))
	for i, s := range r.order {
		out[i] = s.Snapshot()
	}
	return out
}
