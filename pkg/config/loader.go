package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs with cross-field rules that tags
// cannot express. Load calls it after parsing.
type Validator interface {
	Validate() error
}

// Load fills cfg from the process environment using its `env` tags, then
// validates it when cfg implements Validator.
func Load(cfg any) error {
	return load(cfg, env.Options{})
}

// LoadFrom is Load against an explicit environment; the process environment
// is not consulted.
func LoadFrom(cfg any, environ map[string]string) error {
	return load(cfg, env.Options{Environment: environ})
}

func load(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
