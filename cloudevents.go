package reactor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvents integration: reactor events convert to and from CloudEvents
// 1.0 so accepted values can cross into systems that speak the
// specification, and CloudEvents arriving from such systems can feed a
// composable.

// ToCloudEvent converts a reactor event to a CloudEvent. The data value is
// JSON-encoded, headers become extensions (names sanitized to the CloudEvents
// attribute charset), and the event ID carries over. A reply-to selector does
// not survive the conversion; it is an in-process construct.
func ToCloudEvent[T any](e Event[T], eventType, source string) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	ce.SetID(id)
	ce.SetSource(source)
	ce.SetType(eventType)
	ce.SetTime(time.Now())
	ce.SetSpecVersion(cloudevents.VersionV1)

	if err := ce.SetData(cloudevents.ApplicationJSON, e.Data); err != nil {
		return cloudevents.Event{}, fmt.Errorf("failed to encode event data: %w", err)
	}
	for key, value := range e.Headers {
		ce.SetExtension(extensionName(key), value)
	}
	return ce, nil
}

// FromCloudEvent converts a CloudEvent back to a reactor event, unmarshaling
// the data into T and carrying extensions over as headers.
func FromCloudEvent[T any](ce cloudevents.Event) (Event[T], error) {
	var data T
	if ce.Data() != nil {
		if err := ce.DataAs(&data); err != nil {
			return Event[T]{}, fmt.Errorf("failed to decode event data: %w", err)
		}
	}
	e := Event[T]{
		ID:      ce.ID(),
		Data:    data,
		Headers: make(map[string]string, len(ce.Extensions())),
	}
	for key, value := range ce.Extensions() {
		e.Headers[key] = fmt.Sprint(value)
	}
	return e, nil
}

// IsCloudEventsPayload reports whether raw is a serialized CloudEvents 1.0
// envelope, detected by the presence of a "specversion" key.
func IsCloudEventsPayload(raw []byte) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m["specversion"]
	return ok
}

// ConsumeCloudEvents subscribes fn on the composable's accept channel,
// handing it each accepted value converted to a CloudEvent of the given type
// and source. Conversion failures are returned to the bus, which logs them.
func ConsumeCloudEvents[T any](c *Composable[T], eventType, source string, fn func(ctx context.Context, ce cloudevents.Event) error) *Composable[T] {
	c.observable.On(c.acceptSel, func(ev any) error {
		ce, err := ToCloudEvent(ev.(Event[T]), eventType, source)
		if err != nil {
			return err
		}
		return fn(context.Background(), ce)
	})
	return c
}

// extensionName maps a header key onto the CloudEvents extension attribute
// charset: lowercase letters and digits only.
func extensionName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "header"
	}
	return b.String()
}
