package feeders

import (
	"reflect"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file into a settings struct.
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a feeder for the TOML file at path.
func NewTomlFeeder(path string) TomlFeeder {
	return TomlFeeder{Path: path}
}

// Feed populates the provided pointer-to-struct from the TOML file.
func (f TomlFeeder) Feed(structure interface{}) error {
	rv := reflect.ValueOf(structure)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return ErrTomlInvalidStructure
	}

	if _, err := toml.DecodeFile(f.Path, structure); err != nil {
		return wrapReadError(ErrTomlReadFailed, f.Path, err)
	}
	return nil
}
