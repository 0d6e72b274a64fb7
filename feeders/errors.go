// Package feeders provides configuration feeders for reading reactor
// settings from environment variables, YAML files, and TOML files.
package feeders

import (
	"errors"
	"fmt"
)

// Static error definitions for feeders

// Env feeder errors
var (
	ErrEnvInvalidStructure = errors.New("env: expected pointer to struct")
	ErrEnvCannotConvert    = errors.New("env: cannot convert value to field type")
	ErrEnvFieldCannotBeSet = errors.New("env: field cannot be set")
)

// YAML feeder errors
var (
	ErrYamlInvalidStructure = errors.New("yaml: expected pointer to struct")
	ErrYamlReadFailed       = errors.New("yaml: cannot read file")
)

// TOML feeder errors
var (
	ErrTomlInvalidStructure = errors.New("toml: expected pointer to struct")
	ErrTomlReadFailed       = errors.New("toml: cannot read file")
)

// Helper functions to create wrapped errors with context
func wrapEnvConvertError(envName string, cause error) error {
	return fmt.Errorf("%w (variable %s): %v", ErrEnvCannotConvert, envName, cause)
}

func wrapReadError(base error, path string, cause error) error {
	return fmt.Errorf("%w %q: %v", base, path, cause)
}
