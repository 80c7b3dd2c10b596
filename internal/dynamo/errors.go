package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integrator operations.
var (
	// ErrEvaluation indicates the Hamiltonian provider could not produce a
	// valid matrix or gradient at the requested nuclear configuration.
	ErrEvaluation = errors.New("dynamo: hamiltonian evaluation failed")

	// ErrNumericalInstability indicates an intermediate quantity became NaN or Inf.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (NaN or Inf detected)")

	// ErrConfiguration indicates invalid construction or call parameters.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrPredictorHistory indicates a multistep scheme was stepped before its
	// derivative history was populated.
	ErrPredictorHistory = errors.New("dynamo: predictor history not populated")

	// ErrNotInitialized indicates a trajectory was stepped before Initialize.
	ErrNotInitialized = errors.New("dynamo: trajectory not initialized")

	// ErrDimensionMismatch indicates mismatched state, matrix or force dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")
)

// StepError wraps an error with the context of the sub-step that failed.
type StepError struct {
	Step    int
	Time    float64
	Scheme  string
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d (t=%.4f): %v", e.Scheme, e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
