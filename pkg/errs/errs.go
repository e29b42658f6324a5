// Package errs defines the closed set of failure categories used across the
// rally core. Callers classify failures with the Is* helpers instead of
// inspecting backend-native error types.
package errs

import (
	"errors"
	"fmt"
)

// InvalidArgumentError reports a malformed call, e.g. node-scoped meta info
// without a node id. Never retried.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

// InvalidArgument creates an InvalidArgumentError with a formatted message.
func InvalidArgument(format string, args ...interface{}) error {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// IllegalStateError reports an operation attempted in the wrong lifecycle
// state, e.g. a write against a store that is not open.
type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string { return e.Message }

// IllegalState creates an IllegalStateError with a formatted message.
func IllegalState(format string, args ...interface{}) error {
	return &IllegalStateError{Message: fmt.Sprintf(format, args...)}
}

// SystemSetupError reports a condition the user is expected to fix
// themselves, typically connectivity or credentials for the metrics store.
// The message always carries a remediation hint.
type SystemSetupError struct {
	Message string
}

func (e *SystemSetupError) Error() string { return e.Message }

// SystemSetup creates a SystemSetupError with a formatted message.
func SystemSetup(format string, args ...interface{}) error {
	return &SystemSetupError{Message: fmt.Sprintf(format, args...)}
}

// RallyError reports an unexpected, unclassified failure. It carries no
// remediation hint.
type RallyError struct {
	Message string
	Cause   error
}

func (e *RallyError) Error() string { return e.Message }

func (e *RallyError) Unwrap() error { return e.Cause }

// Rally creates a RallyError with a formatted message.
func Rally(format string, args ...interface{}) error {
	return &RallyError{Message: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument reports whether err is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}

// IsIllegalState reports whether err is an IllegalStateError.
func IsIllegalState(err error) bool {
	var target *IllegalStateError
	return errors.As(err, &target)
}

// IsSystemSetup reports whether err is a SystemSetupError.
func IsSystemSetup(err error) bool {
	var target *SystemSetupError
	return errors.As(err, &target)
}

// IsRally reports whether err is a RallyError.
func IsRally(err error) bool {
	var target *RallyError
	return errors.As(err, &target)
}
