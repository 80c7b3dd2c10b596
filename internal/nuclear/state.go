// Package nuclear holds the classical nuclear subsystem and the engine
// contract through which the integrator reads and commits it.
package nuclear

import (
	"fmt"

	"github.com/san-kum/mmst/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

const DefaultDims = 3

// State is the flattened nuclear phase point. Masses are stored per
// coordinate, so a particle of mass m in three dimensions contributes
// three entries of m.
type State struct {
	Positions  []float64
	Velocities []float64
	Masses     []float64
}

// NewState builds a State for len(particleMasses) particles in dims
// dimensions. positions and velocities hold dims entries per particle.
func NewState(positions, velocities, particleMasses []float64, dims int) (*State, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dims must be positive, got %d", dynamo.ErrConfiguration, dims)
	}
	ndof := len(particleMasses) * dims
	if len(positions) != ndof || len(velocities) != ndof {
		return nil, fmt.Errorf("%w: %d particles in %d dims need %d coordinates, got %d positions and %d velocities",
			dynamo.ErrDimensionMismatch, len(particleMasses), dims, ndof, len(positions), len(velocities))
	}
	masses := make([]float64, ndof)
	for i, m := range particleMasses {
		for d := 0; d < dims; d++ {
			masses[i*dims+d] = m
		}
	}
	s := &State{
		Positions:  append([]float64(nil), positions...),
		Velocities: append([]float64(nil), velocities...),
		Masses:     masses,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) NumDOF() int { return len(s.Positions) }

func (s *State) Validate() error {
	n := len(s.Positions)
	if len(s.Velocities) != n || len(s.Masses) != n {
		return fmt.Errorf("%w: %d positions, %d velocities, %d masses", dynamo.ErrDimensionMismatch, n, len(s.Velocities), len(s.Masses))
	}
	for i, m := range s.Masses {
		if !(m > 0) {
			return fmt.Errorf("%w: mass of coordinate %d must be positive, got %g", dynamo.ErrConfiguration, i, m)
		}
	}
	if !dynamo.State(s.Positions).IsValid() || !dynamo.State(s.Velocities).IsValid() {
		return fmt.Errorf("%w: nuclear state", dynamo.ErrNumericalInstability)
	}
	return nil
}

func (s *State) Clone() *State {
	return &State{
		Positions:  append([]float64(nil), s.Positions...),
		Velocities: append([]float64(nil), s.Velocities...),
		Masses:     append([]float64(nil), s.Masses...),
	}
}

// Acceleration stores force/mass into dst and returns it. dst may be nil.
func (s *State) Acceleration(force, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(force))
	}
	floats.DivTo(dst, force, s.Masses)
	return dst
}

// ApplyForce kicks the velocities: v += dt·F/m.
func (s *State) ApplyForce(force []float64, dt float64) error {
	if len(force) != len(s.Velocities) {
		return fmt.Errorf("%w: force has %d components for %d coordinates", dynamo.ErrDimensionMismatch, len(force), len(s.Velocities))
	}
	floats.AddScaled(s.Velocities, dt, s.Acceleration(force, nil))
	if !dynamo.State(s.Velocities).IsValid() {
		return fmt.Errorf("%w: velocities", dynamo.ErrNumericalInstability)
	}
	return nil
}

// AdvancePositions drifts the positions: R += dt·v.
func (s *State) AdvancePositions(dt float64) error {
	floats.AddScaled(s.Positions, dt, s.Velocities)
	if !dynamo.State(s.Positions).IsValid() {
		return fmt.Errorf("%w: positions", dynamo.ErrNumericalInstability)
	}
	return nil
}

func (s *State) KineticEnergy() float64 {
	return KineticEnergy(s.Masses, s.Velocities)
}

// KineticEnergy returns Σ ½ m v².
func KineticEnergy(masses, velocities []float64) float64 {
	ke := 0.0
	for i, v := range velocities {
		ke += 0.5 * masses[i] * v * v
	}
	return ke
}
