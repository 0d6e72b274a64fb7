package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncReactor builds a reactor with an inline dispatcher so tests observe
// consumer effects deterministically.
func syncReactor() *Reactor {
	return NewReactor(WithDispatcher(NewSyncDispatcher()))
}

func TestReactorNotifyMatchesRegisteredSelectors(t *testing.T) {
	r := syncReactor()

	var got []string
	r.On(NewObjectSelector("orders.created"), func(ev any) error {
		got = append(got, "created")
		return nil
	})
	r.On(NewObjectSelector("orders.deleted"), func(ev any) error {
		got = append(got, "deleted")
		return nil
	})

	r.Notify("orders.created", NewEvent("o-1"))

	assert.Equal(t, []string{"created"}, got)
}

func TestReactorDispatchOrderMatchesRegistrationOrder(t *testing.T) {
	r := syncReactor()
	sel := NewObjectSelector("topic")

	var got []int
	for i := 1; i <= 5; i++ {
		r.On(sel, func(ev any) error {
			got = append(got, i)
			return nil
		})
	}

	r.Notify("topic", NewEvent("x"))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestReactorNotifySelectorAddressesOneSelector(t *testing.T) {
	r := syncReactor()
	a := NewAnonymousSelector()
	b := NewAnonymousSelector()

	var aCount, bCount int
	r.On(a, func(ev any) error { aCount++; return nil })
	r.On(b, func(ev any) error { bCount++; return nil })

	r.NotifySelector(a, NewEvent("x"))

	assert.Equal(t, 1, aCount)
	assert.Zero(t, bCount)
}

func TestReactorRegistrationCancel(t *testing.T) {
	r := syncReactor()
	sel := NewObjectSelector("topic")

	var count int
	reg := r.On(sel, func(ev any) error { count++; return nil })

	r.Notify("topic", NewEvent("x"))
	reg.Cancel()
	r.Notify("topic", NewEvent("y"))

	assert.Equal(t, 1, count, "cancelled registration must not fire")
}

func TestReactorConsumerPanicIsRecovered(t *testing.T) {
	r := syncReactor()
	sel := NewObjectSelector("topic")

	var after int
	r.On(sel, func(ev any) error { panic("boom") })
	r.On(sel, func(ev any) error { after++; return nil })

	assert.NotPanics(t, func() { r.Notify("topic", NewEvent("x")) })
	assert.Equal(t, 1, after, "a panicking consumer must not stop dispatch")
}

func TestReactorReply(t *testing.T) {
	r := syncReactor()
	replyTo := NewAnonymousSelector()

	var got string
	r.On(replyTo, func(ev any) error {
		got = ev.(Event[string]).Data
		return nil
	})

	request := NewEvent("ping").WithReplyTo(replyTo)
	require.NoError(t, r.Reply(request, NewEvent("pong")))
	assert.Equal(t, "pong", got)

	assert.ErrorIs(t, r.Reply(NewEvent("no-reply-to"), NewEvent("x")), ErrNoReplyToSelector)
	assert.ErrorIs(t, r.Reply("not an event", NewEvent("x")), ErrNotAnEvent)
}

func TestReactorErrorRoutingByType(t *testing.T) {
	r := syncReactor()

	var timeouts, all int
	r.On(TypeSelectorFor[*timeoutError](), func(ev any) error { timeouts++; return nil })
	r.On(TypeSelectorFor[error](), func(ev any) error { all++; return nil })

	r.Notify(&timeoutError{op: "read"}, NewEvent[error](&timeoutError{op: "read"}))
	r.Notify(assert.AnError, NewEvent[error](assert.AnError))

	assert.Equal(t, 1, timeouts, "subtype channel fires for its type only")
	assert.Equal(t, 2, all, "supertype channel fires for every error")
}

func TestSyncCloneSharesRegistry(t *testing.T) {
	r := syncReactor()
	clone := r.syncClone()
	sel := NewAnonymousSelector()

	var count int
	r.On(sel, func(ev any) error { count++; return nil })
	clone.NotifySelector(sel, NewEvent("x"))

	assert.Equal(t, 1, count, "clone must dispatch to registrations made on the original")
}
