package feeders

import (
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// EnvFeeder reads environment variables into struct fields tagged with `env`.
// Nested structs are walked; unset variables leave fields untouched.
type EnvFeeder struct {
	// Prefix, when non-empty, is prepended to every variable name with an
	// underscore separator.
	Prefix string
}

// NewEnvFeeder creates an environment variable feeder without a prefix.
func NewEnvFeeder() EnvFeeder {
	return EnvFeeder{}
}

// NewPrefixedEnvFeeder creates an environment variable feeder whose variable
// names are prefixed.
func NewPrefixedEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed populates the provided pointer-to-struct from environment variables.
func (f EnvFeeder) Feed(structure interface{}) error {
	rv := reflect.ValueOf(structure)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	return f.processStructFields(rv.Elem())
}

func (f EnvFeeder) processStructFields(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)

		if field.Kind() == reflect.Struct {
			if err := f.processStructFields(field); err != nil {
				return err
			}
			continue
		}

		envTag, exists := fieldType.Tag.Lookup("env")
		if !exists {
			continue
		}
		if err := f.setFieldFromEnv(field, envTag); err != nil {
			return err
		}
	}
	return nil
}

func (f EnvFeeder) setFieldFromEnv(field reflect.Value, envTag string) error {
	envName := strings.ToUpper(envTag)
	if f.Prefix != "" {
		envName = strings.ToUpper(f.Prefix) + "_" + envName
	}

	envValue := os.Getenv(envName)
	if envValue == "" {
		return nil
	}

	converted, err := cast.FromType(envValue, field.Type())
	if err != nil {
		return wrapEnvConvertError(envName, err)
	}
	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}
