package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"seconds suffix", "15s", 15 * time.Second},
		{"milliseconds suffix", "250ms", 250 * time.Millisecond},
		{"nanoseconds suffix", "100ns", 100 * time.Nanosecond},
		{"no suffix defaults to seconds", "45", 45 * time.Second},
		{"surrounding whitespace", " 5s ", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeout(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeoutRejectsMalformedValues(t *testing.T) {
	for _, raw := range []string{"", "abc", "-5s", "5m", "5 s", "s5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTimeout(raw)
			assert.ErrorIs(t, err, ErrInvalidTimeout)
		})
	}
}

func TestSetDefaultAwaitTimeoutOverrides(t *testing.T) {
	orig := DefaultAwaitTimeout()
	t.Cleanup(func() { SetDefaultAwaitTimeout(orig) })

	SetDefaultAwaitTimeout(123 * time.Millisecond)
	assert.Equal(t, 123*time.Millisecond, DefaultAwaitTimeout())
}

func TestApplySettingsTimeout(t *testing.T) {
	orig := DefaultAwaitTimeout()
	t.Cleanup(func() { SetDefaultAwaitTimeout(orig) })

	ApplySettings(Settings{MaxAwaitTimeout: "2s"})
	assert.Equal(t, 2*time.Second, DefaultAwaitTimeout())

	// A malformed knob is ignored; the previous value stands.
	ApplySettings(Settings{MaxAwaitTimeout: "nonsense"})
	assert.Equal(t, 2*time.Second, DefaultAwaitTimeout())
}

func TestApplySettingsDispatcher(t *testing.T) {
	t.Cleanup(func() { setDefaultDispatcherFactory(func() Dispatcher { return NewRingBufferDispatcher(0) }) })

	ApplySettings(Settings{DefaultDispatcher: "sync"})
	d := newDefaultDispatcher()
	t.Cleanup(func() { _ = d.Close() })

	_, ok := d.(*SyncDispatcher)
	assert.True(t, ok, "settings select the dispatcher fresh buses run on")
}

func TestPropertyToEnv(t *testing.T) {
	assert.Equal(t, "REACTOR_MAX_AWAIT_TIMEOUT", propertyToEnv(MaxAwaitTimeoutProperty))
}
