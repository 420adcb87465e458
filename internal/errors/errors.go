// Package errors defines the error types that cross rtspscout package
// boundaries. A discovery run fails with exactly one DiscoveryError carrying
// a human-readable description; configuration problems are reported as
// ConfigError values naming the offending field.
package errors

import (
	stderrors "errors"
	"fmt"
)

// DiscoveryError is the single failure type returned by a discovery run.
// Collaborator failures (capture, RTSP client, I/O) are wrapped into it
// with a prefix that names their origin.
type DiscoveryError struct {
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *DiscoveryError) WithContext(key string, value any) *DiscoveryError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a discovery error from an explicit message.
func New(message string) *DiscoveryError {
	return &DiscoveryError{Message: message}
}

// Newf creates a discovery error from a format string.
func Newf(format string, args ...any) *DiscoveryError {
	return &DiscoveryError{Message: fmt.Sprintf(format, args...)}
}

// WrapCapture wraps a packet capture or scanner failure.
func WrapCapture(err error) *DiscoveryError {
	return wrap("capture error", err)
}

// WrapRTSP wraps an RTSP client failure.
func WrapRTSP(err error) *DiscoveryError {
	return wrap("RTSP client error", err)
}

// WrapIO wraps a resource or I/O failure.
func WrapIO(err error) *DiscoveryError {
	return wrap("IO error", err)
}

// Wrap converts any error into a discovery error. Errors that already are
// discovery errors are returned as they are.
func Wrap(err error) *DiscoveryError {
	if err == nil {
		return nil
	}
	var de *DiscoveryError
	if stderrors.As(err, &de) {
		return de
	}
	return &DiscoveryError{Message: err.Error(), Cause: err}
}

func wrap(prefix string, err error) *DiscoveryError {
	if err == nil {
		return nil
	}
	return &DiscoveryError{
		Message: fmt.Sprintf("%s: %v", prefix, err),
		Cause:   err,
	}
}

// IsDiscoveryError reports whether err is, or wraps, a discovery error.
func IsDiscoveryError(err error) bool {
	var de *DiscoveryError
	return stderrors.As(err, &de)
}

// ConfigError represents an invalid or unloadable configuration.
type ConfigError struct {
	Field   string
	Value   any
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError reports a problem with a single configuration field.
func NewConfigFieldError(field, message string, value any) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// WrapConfigError wraps a failure to load or decode configuration.
func WrapConfigError(message string, err error) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf("%s: %v", message, err), Cause: err}
}

// ErrConfigInvalid creates an error for an invalid configuration value.
func ErrConfigInvalid(field string, value any) *ConfigError {
	return NewConfigFieldError(field, fmt.Sprintf("invalid value %v", value), value)
}
