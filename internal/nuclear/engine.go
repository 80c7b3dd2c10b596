package nuclear

import (
	"fmt"

	"github.com/san-kum/mmst/internal/dynamo"
)

// Engine is the classical mechanics engine that owns the nuclear state.
//
// Getters return copies. ClassicalForces must not depend on or modify the
// engine's stored state: integrators call it at trial positions.
type Engine interface {
	Positions() []float64
	Velocities() []float64
	Masses() []float64
	SetPositions(positions []float64) error
	SetVelocities(velocities []float64) error
	ClassicalForces(positions []float64) (forces []float64, potential float64, err error)
}

// Cloner is an Engine that can produce an independent copy of itself,
// required to run ensembles.
type Cloner interface {
	Engine
	Clone() Engine
}

// holder implements the state accessors shared by the shipped engines.
type holder struct {
	state *State
}

func (h *holder) Positions() []float64  { return append([]float64(nil), h.state.Positions...) }
func (h *holder) Velocities() []float64 { return append([]float64(nil), h.state.Velocities...) }
func (h *holder) Masses() []float64     { return append([]float64(nil), h.state.Masses...) }

func (h *holder) SetPositions(positions []float64) error {
	if len(positions) != h.state.NumDOF() {
		return fmt.Errorf("%w: %d positions for %d coordinates", dynamo.ErrDimensionMismatch, len(positions), h.state.NumDOF())
	}
	copy(h.state.Positions, positions)
	return nil
}

func (h *holder) SetVelocities(velocities []float64) error {
	if len(velocities) != h.state.NumDOF() {
		return fmt.Errorf("%w: %d velocities for %d coordinates", dynamo.ErrDimensionMismatch, len(velocities), h.state.NumDOF())
	}
	copy(h.state.Velocities, velocities)
	return nil
}

// State returns the engine's nuclear state. Callers must not modify it
// while a trajectory is stepping.
func (h *holder) State() *State { return h.state }

// Free is an engine with no classical potential.
type Free struct {
	holder
}

func NewFree(state *State) *Free {
	return &Free{holder{state: state}}
}

func (f *Free) ClassicalForces(positions []float64) ([]float64, float64, error) {
	if len(positions) != f.state.NumDOF() {
		return nil, 0, fmt.Errorf("%w: %d positions for %d coordinates", dynamo.ErrDimensionMismatch, len(positions), f.state.NumDOF())
	}
	return make([]float64, len(positions)), 0, nil
}

func (f *Free) Clone() Engine {
	return NewFree(f.state.Clone())
}
