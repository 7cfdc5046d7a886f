package game

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid slot configuration")
	ErrInvalidBet    = errors.New("invalid bet amount")
)

// ConfigurationError reports why a machine could not be built. It matches
// ErrConfiguration under errors.Is.
type ConfigurationError struct {
	Reason string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error: " + e.Reason
	if e.Cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Is makes every ConfigurationError match ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(format string, a ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, a...)}
}

// in prefixes the reason with where the problem was found.
func (e *ConfigurationError) in(format string, a ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, a...) + ": " + e.Reason, Cause: e.Cause}
}

// WrapConfig wraps cause as a ConfigurationError.
func WrapConfig(cause error, reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Cause: cause}
}
