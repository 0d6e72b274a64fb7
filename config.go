package reactor

import (
	"os"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golobby/cast"
)

// MaxAwaitTimeoutProperty is the configuration property naming the default
// timeout applied by Await without an explicit duration. The value is an
// integer with an optional ns/ms/s suffix; without a suffix seconds are
// assumed. It is read from the environment variable form of the property
// name (REACTOR_MAX_AWAIT_TIMEOUT) once, on first use.
const MaxAwaitTimeoutProperty = "reactor.max.await.timeout"

const fallbackAwaitTimeout = 30 * time.Second

var (
	defaultAwaitTimeout atomic.Pointer[time.Duration]
	loadTimeoutOnce     sync.Once

	configLogger atomic.Pointer[Logger]

	timeoutPattern = regexp.MustCompile(`^(\d+)(ns|ms|s)?$`)
)

// SetConfigLogger sets the logger used to report configuration parse
// failures. The default discards them.
func SetConfigLogger(l Logger) {
	if l != nil {
		configLogger.Store(&l)
	}
}

func getConfigLogger() Logger {
	if l := configLogger.Load(); l != nil {
		return *l
	}
	return NewNopLogger()
}

// DefaultAwaitTimeout returns the process-wide default Await timeout. The
// first call reads the reactor.max.await.timeout knob from the environment;
// a parse failure is logged and the 30s fallback stands.
func DefaultAwaitTimeout() time.Duration {
	loadTimeoutOnce.Do(func() {
		if defaultAwaitTimeout.Load() != nil {
			return
		}
		d := fallbackAwaitTimeout
		raw := os.Getenv(propertyToEnv(MaxAwaitTimeoutProperty))
		if raw != "" {
			parsed, err := ParseTimeout(raw)
			if err != nil {
				getConfigLogger().Warn("Ignoring unparseable await timeout", "property", MaxAwaitTimeoutProperty, "value", raw, "error", err)
			} else {
				d = parsed
			}
		}
		defaultAwaitTimeout.Store(&d)
	})
	return *defaultAwaitTimeout.Load()
}

// SetDefaultAwaitTimeout overrides the process-wide default Await timeout.
// Intended for tests and for applications that load Settings at startup.
func SetDefaultAwaitTimeout(d time.Duration) {
	defaultAwaitTimeout.Store(&d)
}

// ParseTimeout parses a timeout knob value of the form <number><unit?> with
// unit ns, ms, or s. Without a unit, seconds are assumed.
func ParseTimeout(raw string) (time.Duration, error) {
	m := timeoutPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, errInvalidTimeout(raw)
	}
	n, err := cast.FromType(m[1], reflect.TypeOf(int64(0)))
	if err != nil {
		return 0, errInvalidTimeout(raw)
	}
	value := n.(int64)
	switch m[2] {
	case "ns":
		return time.Duration(value) * time.Nanosecond, nil
	case "ms":
		return time.Duration(value) * time.Millisecond, nil
	default:
		return time.Duration(value) * time.Second, nil
	}
}

// propertyToEnv converts a dotted property name to its environment variable
// form: reactor.max.await.timeout -> REACTOR_MAX_AWAIT_TIMEOUT.
func propertyToEnv(property string) string {
	return strings.ToUpper(strings.ReplaceAll(property, ".", "_"))
}

// Settings is the feedable configuration of the reactor library. Fields are
// populated by the feeders package from environment variables, YAML, or TOML.
type Settings struct {
	// MaxAwaitTimeout is the default Await timeout in knob syntax
	// (<number><ns|ms|s>).
	MaxAwaitTimeout string `env:"REACTOR_MAX_AWAIT_TIMEOUT" yaml:"maxAwaitTimeout" toml:"max_await_timeout"`

	// DefaultDispatcher selects the dispatcher New builds buses with:
	// "goroutine", "sync", or "ringbuffer".
	DefaultDispatcher string `env:"REACTOR_DEFAULT_DISPATCHER" yaml:"defaultDispatcher" toml:"default_dispatcher"`

	// RingBufferSize bounds the ring-buffer dispatcher queue; 0 means
	// unlimited.
	RingBufferSize int `env:"REACTOR_RING_BUFFER_SIZE" yaml:"ringBufferSize" toml:"ring_buffer_size"`
}

// ApplySettings installs loaded settings process-wide: the default await
// timeout and the dispatcher New uses for fresh buses. Unset fields keep
// their current values; an unparseable timeout is logged and ignored.
func ApplySettings(s Settings) {
	if s.MaxAwaitTimeout != "" {
		d, err := ParseTimeout(s.MaxAwaitTimeout)
		if err != nil {
			getConfigLogger().Warn("Ignoring unparseable await timeout", "property", MaxAwaitTimeoutProperty, "value", s.MaxAwaitTimeout, "error", err)
		} else {
			SetDefaultAwaitTimeout(d)
		}
	}
	switch s.DefaultDispatcher {
	case "sync":
		setDefaultDispatcherFactory(func() Dispatcher { return NewSyncDispatcher() })
	case "goroutine":
		setDefaultDispatcherFactory(func() Dispatcher { return NewGoroutineDispatcher() })
	case "ringbuffer":
		size := s.RingBufferSize
		setDefaultDispatcherFactory(func() Dispatcher { return NewRingBufferDispatcher(size) })
	case "":
	default:
		getConfigLogger().Warn("Ignoring unknown default dispatcher", "value", s.DefaultDispatcher)
	}
}

var defaultDispatcherFactory atomic.Pointer[func() Dispatcher]

func setDefaultDispatcherFactory(f func() Dispatcher) {
	defaultDispatcherFactory.Store(&f)
}

// newDefaultDispatcher builds the dispatcher fresh buses run on. The default
// is an unbounded ring buffer: dispatch is asynchronous but a single worker
// keeps consumer execution in dispatch order, so bounded sources interleave
// accept and last deterministically.
func newDefaultDispatcher() Dispatcher {
	if f := defaultDispatcherFactory.Load(); f != nil {
		return (*f)()
	}
	return NewRingBufferDispatcher(0)
}
