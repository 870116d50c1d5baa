// Package config loads YAML configuration files with environment variable expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configurations that can check themselves.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references against the environment and
// decodes the result into target. Fields absent from the file keep the values
// target already holds, so callers can pass a pre-filled default.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
