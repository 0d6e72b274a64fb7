package reactor

import (
	"errors"
	"sync"
)

// Reduction is the value pair handed to reduction functions: the accumulated
// value so far and the next incoming value.
type Reduction[T any, V any] struct {
	LastValue V
	NextValue T
}

// Map returns a composable accepting fn(v) for every value v the parent
// accepts. A failing fn routes its error through the child's exception-type
// channel and decrements the child's expected accept count; the parent is
// unaffected.
func Map[T any, V any](c *Composable[T], fn func(value T) (V, error)) *Composable[V] {
	child := newChild[V](c)
	c.observable.On(c.acceptSel, func(ev any) error {
		out, err := fn(ev.(Event[T]).Data)
		if err != nil {
			child.routeError(err)
			return nil
		}
		child.Accept(out)
		return nil
	})
	return child
}

// MapBySelector stitches a request/reply pair across obs: every value the
// parent accepts is wrapped as an event with a fresh reply-to selector and
// notified on obs under sel; the reply notified back on the reply-to selector
// feeds the returned composable. Replies may be raw values or events wrapping
// them.
func MapBySelector[T any, V any](c *Composable[T], sel Selector, obs Observable) *Composable[V] {
	child := newChild[V](c)
	c.observable.On(c.acceptSel, func(ev any) error {
		e := ev.(Event[T])
		replyTo := NewAnonymousSelector()

		var reg Registration
		var once sync.Once
		reg = obs.On(replyTo, func(rev any) error {
			once.Do(func() {
				if reg != nil {
					reg.Cancel()
				}
			})
			switch r := rev.(type) {
			case Event[V]:
				child.Accept(r.Data)
			case V:
				child.Accept(r)
			default:
				child.routeError(errReplyTypeMismatch(rev))
			}
			return nil
		})

		// A value that is itself an event goes out as the request, with the
		// reply-to stitched on; anything else ships inside the wrapping event.
		var out any = e.WithReplyTo(replyTo)
		if ec, ok := any(e.Data).(eventCarrier); ok {
			out = ec.withReplySelector(replyTo)
		}
		obs.NotifySelector(sel, out)
		return nil
	})
	return child
}

// Filter returns a composable accepting only the parent's values for which
// pred is true. A rejection decrements the child's expected accept count so
// blocking completion stays consistent. A failing pred routes its error like
// a failing Map function.
func Filter[T any](c *Composable[T], pred func(value T) (bool, error)) *Composable[T] {
	child := newChild[T](c)
	c.observable.On(c.acceptSel, func(ev any) error {
		v := ev.(Event[T]).Data
		ok, err := pred(v)
		if err != nil {
			child.routeError(err)
			return nil
		}
		if ok {
			child.Accept(v)
		} else {
			child.DecreaseAcceptLength()
		}
		return nil
	})
	return child
}

// Reduce folds the parent's values with fn starting from initial. On a
// bounded parent the accumulated value is emitted once, when the parent's
// last channel fires; on a streaming parent (expected count -1) every step's
// accumulated value is emitted. The returned composable's expected accept
// count is 1.
func Reduce[T any, V any](c *Composable[T], fn func(r Reduction[T, V]) (V, error), initial V) *Composable[V] {
	child := newChild[V](c)
	child.expectedAcceptCount.Store(1)

	var mu sync.Mutex
	acc := initial

	c.observable.On(c.acceptSel, func(ev any) error {
		mu.Lock()
		next, err := fn(Reduction[T, V]{LastValue: acc, NextValue: ev.(Event[T]).Data})
		if err != nil {
			mu.Unlock()
			child.routeError(err)
			return nil
		}
		acc = next
		mu.Unlock()

		if c.expectedAcceptCount.Load() < 0 {
			child.Accept(next)
		}
		return nil
	})

	c.observable.On(c.lastSel, func(ev any) error {
		mu.Lock()
		final := acc
		mu.Unlock()
		child.Accept(final)
		return nil
	})

	return child
}

// When registers a typed error handler on this composable's bus. The handler
// fires for every routed error assignable to E, including errors wrapping one
// along their Unwrap chain.
func When[T any, E error](c *Composable[T], fn func(err E)) *Composable[T] {
	c.observable.On(TypeSelectorFor[E](), func(ev any) error {
		e, ok := ev.(Event[error])
		if !ok {
			return nil
		}
		var target E
		if errors.As(e.Data, &target) {
			fn(target)
		}
		return nil
	})
	return c
}
