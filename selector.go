// Package reactor provides an in-process reactive composition engine: deferred
// or streaming values onto which transformation, filtering, reduction, and
// consumption stages can be chained, with propagation of accepted values and
// errors dispatched through a selector-keyed event bus.
package reactor

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Selector is an opaque matcher used as a subscription key and for routing.
// Selectors are registered on an Observable via On and matched against
// notification keys. Implementations must be safe for concurrent use.
type Selector interface {
	// ID returns a unique identifier for this selector. Two selectors with
	// the same ID are considered the same subscription key.
	ID() string

	// Matches reports whether the given notification key is routed to
	// consumers registered under this selector.
	Matches(key any) bool
}

// ObjectSelector matches a notification key by equality with a fixed object.
type ObjectSelector struct {
	id  string
	obj any
}

// NewObjectSelector creates a selector that matches keys equal to obj.
// Comparable keys are matched with ==; everything else falls back to
// reflect.DeepEqual.
func NewObjectSelector(obj any) *ObjectSelector {
	return &ObjectSelector{id: uuid.New().String(), obj: obj}
}

// ID returns the selector's unique identifier.
func (s *ObjectSelector) ID() string { return s.id }

// Object returns the key object this selector matches against.
func (s *ObjectSelector) Object() any { return s.obj }

// Matches reports whether key equals the selector's object.
func (s *ObjectSelector) Matches(key any) bool {
	if s.obj == nil || key == nil {
		return s.obj == nil && key == nil
	}
	if reflect.TypeOf(s.obj).Comparable() && reflect.TypeOf(key).Comparable() {
		return s.obj == key
	}
	return reflect.DeepEqual(s.obj, key)
}

// AnonymousSelector is a selector with a generated unique identity that
// matches only itself or its own ID. Composables use anonymous selectors for
// their private accept/first/last channels and for reply-to correlation.
type AnonymousSelector struct {
	id string
}

// NewAnonymousSelector creates a selector with a fresh unique identity.
func NewAnonymousSelector() *AnonymousSelector {
	return &AnonymousSelector{id: uuid.New().String()}
}

// ID returns the selector's unique identifier.
func (s *AnonymousSelector) ID() string { return s.id }

// Matches reports whether key is this selector or its ID string.
func (s *AnonymousSelector) Matches(key any) bool {
	switch k := key.(type) {
	case *AnonymousSelector:
		return k.id == s.id
	case Selector:
		return k.ID() == s.id
	case string:
		return k == s.id
	}
	return false
}

// TypeSelector matches error values (and reflect.Type keys) whose type is
// assignable to a target type. It backs the exception-class routing channel:
// notifying with an error value matches every TypeSelector registered for the
// error's type, any type it is assignable to, and any type found along its
// Unwrap chain.
type TypeSelector struct {
	id  string
	typ reflect.Type
}

// NewTypeSelector creates a selector for the given target type.
func NewTypeSelector(typ reflect.Type) *TypeSelector {
	return &TypeSelector{id: uuid.New().String(), typ: typ}
}

// TypeSelectorFor creates a selector for the type parameter E.
func TypeSelectorFor[E error]() *TypeSelector {
	return NewTypeSelector(reflect.TypeFor[E]())
}

// ID returns the selector's unique identifier.
func (s *TypeSelector) ID() string { return s.id }

// Type returns the target type.
func (s *TypeSelector) Type() reflect.Type { return s.typ }

// Matches reports whether key's type is assignable to the target type. Error
// keys additionally match through their Unwrap chain, mirroring errors.As.
func (s *TypeSelector) Matches(key any) bool {
	if t, ok := key.(reflect.Type); ok {
		return t.AssignableTo(s.typ)
	}
	kt := reflect.TypeOf(key)
	if kt == nil {
		return false
	}
	if kt.AssignableTo(s.typ) {
		return true
	}
	err, ok := key.(error)
	if !ok {
		return false
	}
	if s.typ.Kind() == reflect.Interface || s.typ.Implements(errorType) {
		target := reflect.New(s.typ)
		return errors.As(err, target.Interface())
	}
	return false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegexSelector matches string keys against a compiled regular expression.
type RegexSelector struct {
	id string
	re *regexp.Regexp
}

// NewRegexSelector compiles pattern and returns a selector matching string
// keys against it. An invalid pattern returns an error.
func NewRegexSelector(pattern string) (*RegexSelector, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errInvalidRegexPattern(pattern, err)
	}
	return &RegexSelector{id: uuid.New().String(), re: re}, nil
}

// ID returns the selector's unique identifier.
func (s *RegexSelector) ID() string { return s.id }

// Matches reports whether key is a string matching the pattern.
func (s *RegexSelector) Matches(key any) bool {
	str, ok := key.(string)
	if !ok {
		return false
	}
	return s.re.MatchString(str)
}

// URISelector matches '/'-segmented string keys against a template in which
// segments of the form {name} match any single non-empty segment.
type URISelector struct {
	id       string
	template string
	segments []string
}

// NewURISelector creates a selector for the given path template, e.g.
// "/orders/{id}/items".
func NewURISelector(template string) *URISelector {
	return &URISelector{
		id:       uuid.New().String(),
		template: template,
		segments: splitPath(template),
	}
}

// ID returns the selector's unique identifier.
func (s *URISelector) ID() string { return s.id }

// Template returns the path template.
func (s *URISelector) Template() string { return s.template }

// Matches reports whether key is a string path matching the template
// segment-for-segment.
func (s *URISelector) Matches(key any) bool {
	str, ok := key.(string)
	if !ok {
		return false
	}
	parts := splitPath(str)
	if len(parts) != len(s.segments) {
		return false
	}
	for i, seg := range s.segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg != parts[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

// PredicateSelector matches keys with an arbitrary predicate function.
type PredicateSelector struct {
	id   string
	pred func(any) bool
}

// NewPredicateSelector creates a selector whose Matches delegates to pred.
func NewPredicateSelector(pred func(any) bool) *PredicateSelector {
	return &PredicateSelector{id: uuid.New().String(), pred: pred}
}

// ID returns the selector's unique identifier.
func (s *PredicateSelector) ID() string { return s.id }

// Matches reports whether pred accepts the key.
func (s *PredicateSelector) Matches(key any) bool {
	if s.pred == nil {
		return false
	}
	return s.pred(key)
}
