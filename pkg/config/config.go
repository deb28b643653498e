// Package config loads YAML configuration files, expanding ${VAR}
// references from the environment before parsing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNotExist reports that the config file is missing. Callers that treat a
// missing file as "use defaults" can test for it with errors.Is.
var ErrNotExist = fs.ErrNotExist

// Validator lets a config type check itself after parsing.
type Validator interface {
	Validate() error
}

// Load reads filename, expands environment references and unmarshals the
// result into target. When target implements Validator, the parsed config is
// validated before Load returns.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s: %w", filename, ErrNotExist)
		}
		return fmt.Errorf("read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadOptional is Load, except a missing file is not an error: target is
// left untouched and ok reports whether the file was found.
func LoadOptional[T any](filename string, target *T) (ok bool, err error) {
	if err := Load(filename, target); err != nil {
		if errors.Is(err, ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
