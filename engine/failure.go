package engine

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
)

// FailureKind is the category a host uses to report a failed call.
type FailureKind int

const (
	// FailureNone is the classification of a nil error.
	FailureNone FailureKind = iota
	FailureUnknownParameter
	FailureNotScalar
	FailureInvalidField
	FailureUnresolvablePipeline
	FailureGPUSubmission
	// FailureOther covers errors outside the host contract, such as a malformed source tile or a cancelled context.
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureUnknownParameter:
		return "unknown parameter"
	case FailureNotScalar:
		return "not scalar"
	case FailureInvalidField:
		return "invalid field"
	case FailureUnresolvablePipeline:
		return "unresolvable pipeline"
	case FailureGPUSubmission:
		return "gpu submission"
	default:
		return "other"
	}
}

// Classify maps an error returned by a Plugin to its FailureKind.
//
// Parameters:
//   - err: the error to classify
//
// Returns:
//   - FailureKind: the category of err, FailureNone for nil
func Classify(err error) FailureKind {
	var gpuErr *renderer.GPUSubmissionError
	switch {
	case err == nil:
		return FailureNone
	case errors.As(err, &gpuErr):
		return FailureGPUSubmission
	case errors.Is(err, pipeline.ErrUnresolvablePipeline):
		return FailureUnresolvablePipeline
	case errors.Is(err, parameter.ErrUnknownParameter):
		return FailureUnknownParameter
	case errors.Is(err, parameter.ErrNotScalar):
		return FailureNotScalar
	case errors.Is(err, state.ErrInvalidField):
		return FailureInvalidField
	default:
		return FailureOther
	}
}
