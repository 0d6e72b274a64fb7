package reactor

import (
	"github.com/google/uuid"
)

// HeaderExpectedAcceptCount is the reserved event header carrying the target
// accept count of the delayed source that dispatched the event.
const HeaderExpectedAcceptCount = "x-reactor-expectedAcceptCount"

// Event is the payload type carried through an Observable. It wraps a data
// value with string headers and an optional reply-to selector used for
// request/reply correlation.
type Event[T any] struct {
	// ID uniquely identifies this event.
	ID string

	// Data is the event payload.
	Data T

	// Headers carries additional string metadata. Reserved keys use the
	// "x-reactor-" prefix.
	Headers map[string]string

	// ReplyTo, when set, names the selector a response to this event should
	// be notified under.
	ReplyTo Selector
}

// NewEvent creates an event wrapping data with a generated ID. Headers stay
// nil until the first WithHeader call.
func NewEvent[T any](data T) Event[T] {
	return Event[T]{
		ID:   uuid.New().String(),
		Data: data,
	}
}

// WithHeader returns a copy of the event with the header set.
func (e Event[T]) WithHeader(key, value string) Event[T] {
	headers := make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		headers[k] = v
	}
	headers[key] = value
	e.Headers = headers
	return e
}

// WithReplyTo returns a copy of the event with the reply-to selector set.
func (e Event[T]) WithReplyTo(sel Selector) Event[T] {
	e.ReplyTo = sel
	return e
}

// eventCarrier is implemented by every Event instantiation. It lets untyped
// bus plumbing recognize events and extract reply-to information without
// knowing the data type.
type eventCarrier interface {
	eventID() string
	eventData() any
	eventHeaders() map[string]string
	replySelector() Selector
	withReplySelector(sel Selector) any
}

func (e Event[T]) eventID() string                 { return e.ID }
func (e Event[T]) eventData() any                  { return e.Data }
func (e Event[T]) eventHeaders() map[string]string { return e.Headers }
func (e Event[T]) replySelector() Selector         { return e.ReplyTo }

func (e Event[T]) withReplySelector(sel Selector) any {
	e.ReplyTo = sel
	return e
}

// IsEvent reports whether v is a reactor event of any data type.
func IsEvent(v any) bool {
	_, ok := v.(eventCarrier)
	return ok
}
