package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigurationError.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvariantViolation signals the battery left its SoC band. It is only
	// ever raised through a panic since it denotes a bug.
	ErrInvariantViolation = errors.New("soc invariant violated")
	// ErrEmptySeries is returned when a price lookup is made on an empty series.
	ErrEmptySeries = errors.New("empty price series")
	// ErrUnorderedSeries is returned when timestamps are not strictly increasing.
	ErrUnorderedSeries = errors.New("price series timestamps not strictly increasing")
)

// ConfigurationError reports an invalid parameter detected at construction.
type ConfigurationError struct {
	Field  string
	Reason string
}

func newConfigError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// NewConfigurationError builds a ConfigurationError for packages outside model.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return newConfigError(field, reason)
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }
