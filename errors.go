package reactor

import (
	"errors"
	"fmt"
)

// Static error definitions for the reactor core.

// Bus and dispatcher errors
var (
	ErrConsumerNil         = errors.New("consumer cannot be nil")
	ErrDispatcherClosed    = errors.New("dispatcher closed")
	ErrNoReplyToSelector   = errors.New("event carries no reply-to selector")
	ErrNotAnEvent          = errors.New("value is not a reactor event")
	ErrInvalidRegexPattern = errors.New("invalid regex selector pattern")
)

// Composable errors
var (
	ErrCompositionFailed = errors.New("composition failed")
	ErrReplyTypeMismatch = errors.New("reply value has unexpected type")
)

// Configuration errors
var (
	ErrInvalidTimeout = errors.New("invalid timeout value")
)

// Helper functions to create wrapped errors with context
func errInvalidRegexPattern(pattern string, cause error) error {
	return fmt.Errorf("%w %q: %v", ErrInvalidRegexPattern, pattern, cause)
}

func errReplyTypeMismatch(v any) error {
	return fmt.Errorf("%w: %T", ErrReplyTypeMismatch, v)
}

func errInvalidTimeout(raw string) error {
	return fmt.Errorf("%w: %q (want <number><ns|ms|s>)", ErrInvalidTimeout, raw)
}
