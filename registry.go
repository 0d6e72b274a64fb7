package reactor

import (
	"sync"

	"github.com/google/uuid"
)

// Consumer handles a payload dispatched from an Observable. A returned error
// is logged by the bus and never propagated to the notifier.
type Consumer func(ev any) error

// Registration is the handle returned when a consumer is registered on an
// Observable. Cancel removes the registration; it is idempotent.
type Registration interface {
	// ID returns the unique identifier of this registration.
	ID() string

	// Selector returns the selector the consumer was registered under.
	Selector() Selector

	// Cancel removes the registration so the consumer receives no further
	// notifications.
	Cancel()
}

// registration pairs a selector with a consumer. Registrations are kept in a
// slice so dispatch order for a selector matches registration order.
type registration struct {
	id       string
	sel      Selector
	consumer Consumer
	owner    *registry
}

func (r *registration) ID() string         { return r.id }
func (r *registration) Selector() Selector { return r.sel }
func (r *registration) Cancel()            { r.owner.remove(r.id) }

// registry is an insertion-ordered selector->consumer table.
type registry struct {
	mu            sync.RWMutex
	registrations []*registration
}

func newRegistry() *registry {
	return &registry{}
}

func (r *registry) add(sel Selector, consumer Consumer) *registration {
	reg := &registration{
		id:       uuid.New().String(),
		sel:      sel,
		consumer: consumer,
		owner:    r,
	}
	r.mu.Lock()
	r.registrations = append(r.registrations, reg)
	r.mu.Unlock()
	return reg
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, reg := range r.registrations {
		if reg.id == id {
			r.registrations = append(r.registrations[:i], r.registrations[i+1:]...)
			return
		}
	}
}

// selectMatching returns the registrations whose selector matches key, in
// registration order.
func (r *registry) selectMatching(key any) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*registration
	for _, reg := range r.registrations {
		if reg.sel.Matches(key) {
			matched = append(matched, reg)
		}
	}
	return matched
}

// selectExact returns the registrations made under the given selector
// identity, in registration order.
func (r *registry) selectExact(sel Selector) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*registration
	for _, reg := range r.registrations {
		if reg.sel.ID() == sel.ID() {
			matched = append(matched, reg)
		}
	}
	return matched
}
