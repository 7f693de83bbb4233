// Package errs defines the error kinds shared by the token and credential
// layers. Callers branch on the kind: configuration errors are fatal and
// never retried, auth errors need operator intervention, transport errors
// are safe to retry on a later cycle.
package errs

import (
	"errors"
	"fmt"
)

// ConfigError reports a missing or invalid configuration value, or a
// requested mode that is incompatible with the configured provider type.
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Name, e.Reason)
}

// Config builds a ConfigError for the named configuration item.
func Config(name, format string, args ...interface{}) error {
	return &ConfigError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// AuthError reports an explicit rejection by the identity provider or the
// exchange endpoint. Message carries the provider's error payload for
// diagnostics; it never contains secret material.
type AuthError struct {
	Op      string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s rejected request (status %d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s rejected request: %s", e.Op, e.Message)
}

// Auth builds an AuthError for a rejection by the named collaborator.
func Auth(op string, status int, message string) error {
	return &AuthError{Op: op, Status: status, Message: message}
}

// TransportError reports a network failure, timeout, 5xx response or a
// success-shaped response that couldn't be parsed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a TransportError for the named collaborator.
func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// Transportf builds a TransportError from a formatted message.
func Transportf(op, format string, args ...interface{}) error {
	return &TransportError{Op: op, Err: fmt.Errorf(format, args...)}
}

func IsConfig(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// Kind names the error's class for log fields and metric labels.
func Kind(err error) string {
	switch {
	case IsConfig(err):
		return "config"
	case IsAuth(err):
		return "auth"
	case IsTransport(err):
		return "transport"
	default:
		return "unknown"
	}
}
