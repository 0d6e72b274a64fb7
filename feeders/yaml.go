package feeders

import (
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file into a settings struct.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a feeder for the YAML file at path.
func NewYamlFeeder(path string) YamlFeeder {
	return YamlFeeder{Path: path}
}

// Feed populates the provided pointer-to-struct from the YAML file.
func (f YamlFeeder) Feed(structure interface{}) error {
	rv := reflect.ValueOf(structure)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return ErrYamlInvalidStructure
	}

	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return wrapReadError(ErrYamlReadFailed, f.Path, err)
	}
	return yaml.Unmarshal(raw, structure)
}
