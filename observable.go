package reactor

import (
	"sync"
)

// Observable is a selector-indexed registry of consumers plus a dispatch
// mechanism. Notifying with a key schedules every consumer whose selector
// matches the key through the observable's dispatcher.
type Observable interface {
	// On registers consumer under sel. Multiple registrations per selector
	// are permitted; dispatch order for a selector matches registration
	// order.
	On(sel Selector, consumer Consumer) Registration

	// Notify schedules the consumer of every registered selector matching
	// key with ev. With a synchronous dispatcher execution is inline on the
	// caller's goroutine; otherwise Notify returns immediately.
	Notify(key any, ev any)

	// NotifySelector addresses a single selector identity directly,
	// bypassing key matching.
	NotifySelector(sel Selector, ev any)
}

// DispatcherAware is implemented by observables that accept dispatcher
// propagation from a composable.
type DispatcherAware interface {
	SetDispatcher(d Dispatcher)
	Dispatcher() Dispatcher
}

// ReactorOption configures a Reactor.
type ReactorOption func(*Reactor)

// WithDispatcher sets the reactor's dispatcher.
func WithDispatcher(d Dispatcher) ReactorOption {
	return func(r *Reactor) { r.dispatcher = d }
}

// WithLogger sets the logger used for consumer errors and recovered panics.
func WithLogger(l Logger) ReactorOption {
	return func(r *Reactor) { r.logger = l }
}

// Reactor is the default Observable: an insertion-ordered selector registry
// whose matched consumers are dispatched through a configurable Dispatcher.
// The zero configuration uses the process default dispatcher (an unbounded
// ring buffer unless reconfigured through Settings) and a no-op logger.
type Reactor struct {
	registry *registry

	mu         sync.RWMutex
	dispatcher Dispatcher

	logger Logger
}

// NewReactor creates a reactor bus with the given options.
func NewReactor(opts ...ReactorOption) *Reactor {
	r := &Reactor{
		registry:   newRegistry(),
		dispatcher: newDefaultDispatcher(),
		logger:     NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// On registers consumer under sel.
func (r *Reactor) On(sel Selector, consumer Consumer) Registration {
	return r.registry.add(sel, consumer)
}

// Notify schedules the consumers of all selectors matching key with ev.
func (r *Reactor) Notify(key any, ev any) {
	for _, reg := range r.registry.selectMatching(key) {
		r.schedule(reg, ev)
	}
}

// NotifySelector schedules the consumers registered under sel with ev.
func (r *Reactor) NotifySelector(sel Selector, ev any) {
	for _, reg := range r.registry.selectExact(sel) {
		r.schedule(reg, ev)
	}
}

// Reply notifies the reply-to selector carried by ev with reply. Returns
// ErrNotAnEvent if ev is not a reactor event and ErrNoReplyToSelector if it
// carries no reply-to selector.
func (r *Reactor) Reply(ev any, reply any) error {
	carrier, ok := ev.(eventCarrier)
	if !ok {
		return ErrNotAnEvent
	}
	sel := carrier.replySelector()
	if sel == nil {
		return ErrNoReplyToSelector
	}
	r.NotifySelector(sel, reply)
	return nil
}

// SetDispatcher replaces the reactor's dispatcher.
func (r *Reactor) SetDispatcher(d Dispatcher) {
	r.mu.Lock()
	r.dispatcher = d
	r.mu.Unlock()
}

// Dispatcher returns the reactor's current dispatcher.
func (r *Reactor) Dispatcher() Dispatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dispatcher
}

// syncClone returns a reactor sharing this reactor's registry but running a
// synchronous dispatcher. Combinators give children such a bus so the child's
// internal fan-out executes on the parent's dispatch goroutine instead of
// taking a second hop.
func (r *Reactor) syncClone() *Reactor {
	return &Reactor{
		registry:   r.registry,
		dispatcher: NewSyncDispatcher(),
		logger:     r.logger,
	}
}

func (r *Reactor) schedule(reg *registration, ev any) {
	d := r.Dispatcher()
	d.Schedule(func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Consumer panicked", "registrationID", reg.id, "selector", reg.sel.ID(), "panic", rec)
			}
		}()
		if err := reg.consumer(ev); err != nil {
			r.logger.Error("Consumer error", "registrationID", reg.id, "selector", reg.sel.ID(), "error", err)
		}
	})
}
