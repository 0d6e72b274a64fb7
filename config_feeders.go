package reactor

import (
	"github.com/CrisisTextLine/reactor/feeders"
)

// Feeder defines the interface for configuration feeders that provide
// configuration data.
type Feeder interface {
	// Feed gets a struct and feeds it using configuration data.
	Feed(structure interface{}) error
}

// ConfigFeeders provides a default set of configuration feeders for common
// use cases.
var ConfigFeeders = []Feeder{
	feeders.NewEnvFeeder(),
}

// LoadSettings runs Settings through the given feeders in order (later
// feeders override earlier ones) and returns the result. With no feeders the
// default set is used.
func LoadSettings(fs ...Feeder) (Settings, error) {
	if len(fs) == 0 {
		fs = ConfigFeeders
	}
	var s Settings
	for _, f := range fs {
		if err := f.Feed(&s); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// Configure loads settings through the given feeders and applies them
// process-wide. Feed errors are returned without applying anything.
func Configure(fs ...Feeder) error {
	s, err := LoadSettings(fs...)
	if err != nil {
		return err
	}
	ApplySettings(s)
	return nil
}
