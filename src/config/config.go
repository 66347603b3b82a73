package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the runtime configuration of the client core.
type Config struct {
	// DatabasePath is where the durable snapshot lives.
	DatabasePath string `validate:"required"`
	// Namespace keys the snapshot row.
	Namespace string `validate:"required"`
	// SyncDebounce is the coalescing window for cross-tab broadcasts.
	SyncDebounce time.Duration `validate:"gte=0,lte=5s"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `validate:"oneof=debug info warn error"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: GetDefaultStoragePaths().DatabasePath,
		Namespace:    "chatfold.state.v1",
		SyncDebounce: 150 * time.Millisecond,
		LogLevel:     "warn",
	}
}

// Validator validates configurations.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a config validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks the config and returns a descriptive error on failure.
func (v *Validator) Validate(cfg *Config) error {
	if err := v.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
