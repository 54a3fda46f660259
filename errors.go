package hydrotwin

import (
	"errors"
	"fmt"
)

// ErrConfiguration classifies errors caused by a model that violates a
// precondition of the whole operation, such as a network without exactly one
// fixed head. Test for it with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ErrUnknownFeature is returned when an operation names a feature id that
// the model does not contain.
var ErrUnknownFeature = errors.New("unknown feature")

// ErrNotSubModel is returned when a sub-model is requested for a feature that
// does not root a sub-network.
var ErrNotSubModel = errors.New("feature does not root a sub-model")

// ConfigurationError describes why a model cannot be processed at all. It
// matches ErrConfiguration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AlignmentError reports a sensor whose readings could not be aligned. It
// affects that sensor only; the rest of the batch is aligned regardless.
type AlignmentError struct {
	SensorID string
	Err      error
}

func (e AlignmentError) Error() string {
	return fmt.Sprintf("align %s: %v", e.SensorID, e.Err)
}

func (e AlignmentError) Unwrap() error { return e.Err }
