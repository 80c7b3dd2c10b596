package hamiltonian

import (
	"fmt"
	"math"

	"github.com/san-kum/mmst/internal/dynamo"
)

// Provider evaluates the electronic Hamiltonian and its nuclear gradient.
// Evaluate must be a pure function of positions; providers used by
// sim.Ensemble must also be safe for concurrent calls.
type Provider interface {
	NumStates() int
	Evaluate(positions []float64) (*Matrix, *Gradient, error)
}

// EvaluationError reports a configuration at which a provider is undefined.
type EvaluationError struct {
	Model      string
	Coordinate int
	Reason     string
}

func (e *EvaluationError) Error() string {
	if e.Coordinate >= 0 {
		return fmt.Sprintf("%s: coordinate %d: %s", e.Model, e.Coordinate, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Model, e.Reason)
}

func (e *EvaluationError) Unwrap() error { return dynamo.ErrEvaluation }

// CheckPositions rejects non-finite coordinates and, when ndof > 0, a
// coordinate count different from ndof.
func CheckPositions(model string, positions []float64, ndof int) error {
	if ndof > 0 && len(positions) != ndof {
		return &EvaluationError{Model: model, Coordinate: -1, Reason: fmt.Sprintf("expected %d coordinates, got %d", ndof, len(positions))}
	}
	for k, v := range positions {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &EvaluationError{Model: model, Coordinate: k, Reason: "non-finite position"}
		}
	}
	return nil
}

// Constant is a position-independent Hamiltonian with zero gradient.
type Constant struct {
	H *Matrix
}

func NewConstant(h *Matrix) *Constant {
	return &Constant{H: h}
}

func (c *Constant) NumStates() int { return c.H.Dim() }

func (c *Constant) Evaluate(positions []float64) (*Matrix, *Gradient, error) {
	if err := CheckPositions("constant", positions, 0); err != nil {
		return nil, nil, err
	}
	return c.H, NewGradient(c.H.Dim(), len(positions)), nil
}

// Func adapts a closure to the Provider interface.
type Func struct {
	States int
	Fn     func(positions []float64) (*Matrix, *Gradient, error)
}

func (f Func) NumStates() int { return f.States }

func (f Func) Evaluate(positions []float64) (*Matrix, *Gradient, error) {
	return f.Fn(positions)
}
