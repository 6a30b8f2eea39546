// Package common - shared error taxonomy for the quantization toolkit.
package common

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

// ConfigurationError reports a malformed or missing piece of range-initialization
// configuration: an unknown initializer type, invalid percentile bounds, or the
// absence of any usable global rule. It is always surfaced before calibration
// starts, never mid-run.
type ConfigurationError struct {
	// Reason describes what is wrong with the configuration.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError builds a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err (or anything it wraps) is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ShapeMismatchError reports a calibration batch whose shape is inconsistent
// with the shape a collector was configured with. The offending batch is
// rejected; it is not retried.
type ShapeMismatchError struct {
	// Want is the configured input shape.
	Want tensor.Shape
	// Got is the shape of the rejected batch.
	Got tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: want %v, got %v", e.Want, e.Got)
}

// IsShapeMismatchError reports whether err (or anything it wraps) is a
// ShapeMismatchError.
func IsShapeMismatchError(err error) bool {
	var se *ShapeMismatchError
	return errors.As(err, &se)
}

// InvalidStateError reports a usage error in the collector lifecycle, such as
// registering inputs after statistics have been finalized.
type InvalidStateError struct {
	// Op is the operation that was attempted.
	Op string
	// State is the lifecycle state the object was in.
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s called in state %s", e.Op, e.State)
}

// IsInvalidStateError reports whether err (or anything it wraps) is an
// InvalidStateError.
func IsInvalidStateError(err error) bool {
	var ie *InvalidStateError
	return errors.As(err, &ie)
}
