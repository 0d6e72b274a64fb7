package reactor

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Composable represents a present or future value, or a bounded or unbounded
// sequence of values, onto which transformation, filtering, reduction, and
// consumption stages can be chained. Values accepted by a composable
// propagate through its Observable to consumers and derived composables.
//
// A composable is complete when it has latched an error, or when it has a
// value and its accepted count has reached a non-negative expected accept
// count. An expected accept count of -1 means unbounded/streaming.
type Composable[T any] struct {
	observable Observable
	dispatcher Dispatcher

	// Private channels of this composable on its observable.
	acceptSel Selector
	firstSel  Selector
	lastSel   Selector

	acceptedCount       atomic.Int64
	expectedAcceptCount atomic.Int64

	// The data monitor guards the latched value, latched error, and the
	// blocked-waiter count.
	mu       sync.Mutex
	cond     *sync.Cond
	value    T
	hasValue bool
	err      error
	blockers int

	// delayed marks composables whose accept path fires the first/last
	// channels on count thresholds and stamps the expected-count header:
	// sources with pre-bound values and every combinator child.
	delayed bool

	// drain, when set, delegates delayed emission to the parent chain.
	drain func()

	// The state monitor guards the delayed-emission state machine. It is
	// never acquired while holding the data monitor; when both are needed,
	// stateMu comes first.
	stateMu   sync.Mutex
	stateCond *sync.Cond
	state     acceptState

	// Pre-bound data emitted by delayedAccept, snapshot under the data
	// monitor.
	preErr    error
	preValues []T
	preSeq    iter.Seq[T]
	preValue  T
	hasPre    bool
	trigger   func()
}

type acceptState int

const (
	stateDelayed acceptState = iota
	stateAccepting
	stateAccepted
)

func newComposable[T any](obs Observable) *Composable[T] {
	c := &Composable[T]{
		observable: obs,
		acceptSel:  NewAnonymousSelector(),
		firstSel:   NewAnonymousSelector(),
		lastSel:    NewAnonymousSelector(),
	}
	c.cond = sync.NewCond(&c.mu)
	c.stateCond = sync.NewCond(&c.stateMu)
	c.expectedAcceptCount.Store(-1)
	return c
}

// New creates a composable backed by a fresh Reactor bus with the default
// dispatcher. The expected accept count starts unbounded.
func New[T any]() *Composable[T] {
	return newComposable[T](NewReactor())
}

// NewWith creates a composable bound to an externally supplied bus.
func NewWith[T any](obs Observable) *Composable[T] {
	return newComposable[T](obs)
}

// From returns a delayed composable whose sole pre-bound value is emitted on
// the first terminal operation. The expected accept count is 1. A nil-like
// value (nil pointer, interface, map, slice, channel, or function) is not
// emitted; such a composable stays incomplete.
func From[T any](value T) *Composable[T] {
	c := New[T]()
	c.delayed = true
	if !isNilValue(value) {
		c.preValue = value
		c.hasPre = true
	}
	c.expectedAcceptCount.Store(1)
	return c
}

// FromSlice returns a delayed composable that emits the given values in order
// on the first terminal operation. The expected accept count is the slice
// length.
func FromSlice[T any](values []T) *Composable[T] {
	c := New[T]()
	c.delayed = true
	c.preValues = values
	c.expectedAcceptCount.Store(int64(len(values)))
	return c
}

// FromSeq returns a delayed composable that emits the sequence on the first
// terminal operation. The sequence size is unknown, so the expected accept
// count is -1 (streaming).
func FromSeq[T any](seq iter.Seq[T]) *Composable[T] {
	c := New[T]()
	c.delayed = true
	c.preSeq = seq
	return c
}

// FromError returns a delayed composable that reports err on the first
// terminal operation.
func FromError[T any](err error) *Composable[T] {
	c := New[T]()
	c.delayed = true
	c.preErr = err
	c.expectedAcceptCount.Store(1)
	return c
}

// FromComposable returns a composable that live-forwards every value accepted
// by other. The expected accept count snapshots other's current count.
func FromComposable[T any](other *Composable[T]) *Composable[T] {
	c := newChild[T](other)
	other.observable.On(other.acceptSel, func(ev any) error {
		c.Accept(ev.(Event[T]).Data)
		return nil
	})
	return c
}

// FromNotify returns a one-shot delayed composable that, when triggered by
// its first terminal operation, notifies obs with (sel, ev).
func FromNotify[T any](sel Selector, ev Event[T], obs Observable) *Composable[T] {
	c := newComposable[T](obs)
	c.delayed = true
	c.expectedAcceptCount.Store(1)
	c.trigger = func() { obs.NotifySelector(sel, ev) }
	return c
}

// Observable returns the event bus this composable dispatches through.
func (c *Composable[T]) Observable() Observable { return c.observable }

// AcceptedCount returns the number of successful accepts so far.
func (c *Composable[T]) AcceptedCount() int64 { return c.acceptedCount.Load() }

// ExpectedAcceptCount returns the current target accept count; -1 means
// unbounded.
func (c *Composable[T]) ExpectedAcceptCount() int64 { return c.expectedAcceptCount.Load() }

// SetExpectedAcceptCount sets the target accept count. If the accepted count
// has already reached n, the last channel fires with the latched value and
// blocked waiters wake. The new count does not propagate to children created
// earlier; they snapshot the count at creation.
func (c *Composable[T]) SetExpectedAcceptCount(n int64) *Composable[T] {
	c.expectedAcceptCount.Store(n)
	if n >= 0 && c.acceptedCount.Load() >= n {
		c.mu.Lock()
		v, ok := c.value, c.hasValue
		if c.blockers > 0 {
			c.cond.Broadcast()
		}
		c.mu.Unlock()
		if ok {
			c.observable.NotifySelector(c.lastSel, NewEvent(v))
		}
	}
	return c
}

// DecreaseAcceptLength atomically decrements the expected accept count and
// wakes blocked waiters if completion has been reached. Filter rejections and
// per-item combinator failures use this so one input stays accounted for even
// though it produced no output.
func (c *Composable[T]) DecreaseAcceptLength() {
	if n := c.expectedAcceptCount.Add(-1); n <= c.acceptedCount.Load() {
		c.mu.Lock()
		if c.blockers > 0 {
			c.cond.Broadcast()
		}
		c.mu.Unlock()
	}
}

// Accept latches value, notifies the accept channel with a fresh event, and
// increments the accepted count. On delayed composables the first accept also
// fires the first channel, the accept reaching the expected count fires the
// last channel, and every event carries the expected-count header.
func (c *Composable[T]) Accept(value T) *Composable[T] {
	if c.delayed {
		c.acceptDelayed(value)
		return c
	}
	c.mu.Lock()
	c.value = value
	c.hasValue = true
	if c.blockers > 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	c.observable.NotifySelector(c.acceptSel, NewEvent(value))

	accepted := c.acceptedCount.Add(1)
	if exp := c.expectedAcceptCount.Load(); exp >= 0 && accepted >= exp {
		c.mu.Lock()
		if c.blockers > 0 {
			c.cond.Broadcast()
		}
		c.mu.Unlock()
	}
	return c
}

func (c *Composable[T]) acceptDelayed(value T) {
	c.mu.Lock()
	c.value = value
	c.hasValue = true
	if c.blockers > 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	accepted := c.acceptedCount.Add(1)
	expected := c.expectedAcceptCount.Load()
	ev := NewEvent(value).WithHeader(HeaderExpectedAcceptCount, strconv.FormatInt(expected, 10))

	if accepted == 1 {
		c.observable.NotifySelector(c.firstSel, ev)
	}
	c.observable.NotifySelector(c.acceptSel, ev)
	if expected >= 0 && accepted == expected {
		c.observable.NotifySelector(c.lastSel, ev)
		c.mu.Lock()
		if c.blockers > 0 {
			c.cond.Broadcast()
		}
		c.mu.Unlock()
	}
}

// AcceptError latches err as this composable's failure, wakes blocked
// waiters, and routes err through the exception-type channel so When
// registrations fire. Only the first error is latched.
func (c *Composable[T]) AcceptError(err error) *Composable[T] {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	if c.blockers > 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	c.observable.Notify(err, NewEvent[error](err))
	return c
}

// routeError reports a per-item combinator failure on this composable: the
// error goes through the exception-type channel and the expected accept count
// drops by one. The error is not latched, so waiters observe completion
// rather than failure.
func (c *Composable[T]) routeError(err error) {
	c.observable.Notify(err, NewEvent[error](err))
	c.DecreaseAcceptLength()
}

// Consume subscribes fn on the accept channel. If a value is already latched,
// fn is additionally scheduled once with that value (late-subscribe replay of
// the last value only).
func (c *Composable[T]) Consume(fn func(value T) error) *Composable[T] {
	c.observable.On(c.acceptSel, func(ev any) error {
		return fn(ev.(Event[T]).Data)
	})
	c.mu.Lock()
	v, ok := c.value, c.hasValue
	c.mu.Unlock()
	if ok {
		dispatcherOf(c.observable).Schedule(func() { _ = fn(v) })
	}
	return c
}

// ConsumeEvent re-publishes every accepted value as an event on obs under
// sel. A value that is itself a reactor event is forwarded as-is; anything
// else is wrapped.
func (c *Composable[T]) ConsumeEvent(sel Selector, obs Observable) *Composable[T] {
	c.observable.On(c.acceptSel, func(ev any) error {
		e := ev.(Event[T])
		var out any = e
		if IsEvent(any(e.Data)) {
			out = e.Data
		}
		obs.NotifySelector(sel, out)
		return nil
	})
	return c
}

// First returns a composable accepting only the first value this composable
// accepts. Its expected accept count is 1. The first channel only fires on
// delayed composables and combinator children.
func (c *Composable[T]) First() *Composable[T] {
	child := newChild[T](c)
	child.expectedAcceptCount.Store(1)
	c.observable.On(c.firstSel, func(ev any) error {
		child.Accept(ev.(Event[T]).Data)
		return nil
	})
	return child
}

// Last returns a composable accepting only the value that completes this
// composable's expected accept count. Its expected accept count is 1. On a
// streaming composable (expected count -1) the last channel never fires.
func (c *Composable[T]) Last() *Composable[T] {
	child := newChild[T](c)
	child.expectedAcceptCount.Store(1)
	c.observable.On(c.lastSel, func(ev any) error {
		child.Accept(ev.(Event[T]).Data)
		return nil
	})
	return child
}

// Get returns the latched value. If an error has been latched, Get returns a
// wrapped failure instead. Before any accept it returns the zero value with a
// nil error. Get triggers delayed emission but never blocks on completion.
func (c *Composable[T]) Get() (T, error) {
	c.delayedAccept()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked()
}

// Await blocks until the composable is complete or the default await timeout
// elapses, then returns Get. The default timeout comes from the
// reactor.max.await.timeout configuration knob.
func (c *Composable[T]) Await(ctx context.Context) (T, error) {
	return c.AwaitTimeout(ctx, DefaultAwaitTimeout())
}

// AwaitTimeout blocks until the composable is complete or timeout elapses,
// then returns Get; after a timeout that may surface a partial value. A
// negative timeout waits forever; a zero timeout polls once. Context
// cancellation interrupts the wait and returns the context error.
func (c *Composable[T]) AwaitTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	c.delayedAccept()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isCompleteLocked() {
		return c.getLocked()
	}
	if timeout == 0 {
		return c.getLocked()
	}

	// Wake the monitor on context cancellation and on deadline expiry so the
	// wait loop can re-check. Spurious wakeups are safe: every wake re-checks
	// completion.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer stop()

	hasDeadline := timeout > 0
	var deadline time.Time
	if hasDeadline {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, func() {
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		})
		defer timer.Stop()
	}

	c.blockers++
	defer func() { c.blockers-- }()

	for !c.isCompleteLocked() {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, fmt.Errorf("await interrupted: %w", err)
		}
		if hasDeadline && !time.Now().Before(deadline) {
			break
		}
		c.cond.Wait()
	}
	return c.getLocked()
}

// SetDispatcher stores d on the composable and propagates it to the backing
// observable if the observable accepts dispatchers.
func (c *Composable[T]) SetDispatcher(d Dispatcher) *Composable[T] {
	c.dispatcher = d
	if aware, ok := c.observable.(DispatcherAware); ok {
		aware.SetDispatcher(d)
	}
	return c
}

func (c *Composable[T]) isCompleteLocked() bool {
	if c.err != nil {
		return true
	}
	exp := c.expectedAcceptCount.Load()
	return c.hasValue && exp >= 0 && c.acceptedCount.Load() >= exp
}

func (c *Composable[T]) getLocked() (T, error) {
	if c.err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrCompositionFailed, c.err)
	}
	return c.value, nil
}

// childObservable builds the bus for a derived composable. A Reactor parent
// yields a reactor sharing the registry with a synchronous dispatcher, so the
// child's fan-out runs on the parent's dispatch goroutine. Other
// dispatcher-aware observables hand their dispatcher to a fresh reactor.
// Anything else gets a default reactor.
func (c *Composable[T]) childObservable() Observable {
	switch o := c.observable.(type) {
	case *Reactor:
		return o.syncClone()
	case DispatcherAware:
		return NewReactor(WithDispatcher(o.Dispatcher()))
	default:
		return NewReactor()
	}
}

// newChild creates the derived composable a combinator returns: expected
// accept count snapshotted from the parent, delayed accept semantics, and
// delayed emission delegated up the chain.
func newChild[V any, T any](parent *Composable[T]) *Composable[V] {
	child := newComposable[V](parent.childObservable())
	child.expectedAcceptCount.Store(parent.expectedAcceptCount.Load())
	child.delayed = true
	child.drain = parent.delayedAccept
	return child
}

// delayedAccept triggers emission of pre-bound values. Composables derived by
// combinators delegate to their parent so the first terminal operation
// anywhere in a chain drains the source. Exactly one caller emits; concurrent
// callers block until emission is done.
func (c *Composable[T]) delayedAccept() {
	if c.drain != nil {
		c.drain()
		return
	}
	if !c.delayed {
		return
	}

	c.stateMu.Lock()
	for c.state == stateAccepting {
		c.stateCond.Wait()
	}
	if c.state == stateAccepted {
		c.stateMu.Unlock()
		return
	}
	c.state = stateAccepting
	c.stateMu.Unlock()

	// Snapshot pre-bound data under the data monitor; emit outside both
	// locks so consumers are free to touch the composable.
	c.mu.Lock()
	preErr := c.preErr
	values := c.preValues
	seq := c.preSeq
	v, hasV := c.preValue, c.hasPre
	trigger := c.trigger
	c.mu.Unlock()

	switch {
	case trigger != nil:
		trigger()
	case preErr != nil:
		c.AcceptError(preErr)
	case values != nil:
		for _, t := range values {
			c.Accept(t)
		}
	case seq != nil:
		for t := range seq {
			c.Accept(t)
		}
	case hasV:
		c.Accept(v)
	}

	c.stateMu.Lock()
	c.state = stateAccepted
	c.stateCond.Broadcast()
	c.stateMu.Unlock()
}

func dispatcherOf(obs Observable) Dispatcher {
	if aware, ok := obs.(DispatcherAware); ok {
		return aware.Dispatcher()
	}
	return NewSyncDispatcher()
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
