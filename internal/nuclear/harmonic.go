package nuclear

import (
	"fmt"

	"github.com/san-kum/mmst/internal/dynamo"
)

const DefaultStiffness = 1.0

// Harmonic is a bath of harmonic coordinates, each tied to its center by
// Stiffness[i], optionally chained to its neighbour by Coupling.
type Harmonic struct {
	holder
	Stiffness []float64
	Centers   []float64
	Coupling  float64
}

func NewHarmonic(state *State, stiffness []float64) (*Harmonic, error) {
	n := state.NumDOF()
	if len(stiffness) != n {
		return nil, fmt.Errorf("%w: %d stiffness values for %d coordinates", dynamo.ErrDimensionMismatch, len(stiffness), n)
	}
	return &Harmonic{
		holder:    holder{state: state},
		Stiffness: append([]float64(nil), stiffness...),
		Centers:   make([]float64, n),
	}, nil
}

// NewHarmonicChain returns n unit-mass coordinates with uniform stiffness
// and nearest-neighbour coupling.
func NewHarmonicChain(positions, velocities []float64, stiffness, coupling float64) (*Harmonic, error) {
	masses := make([]float64, len(positions))
	k := make([]float64, len(positions))
	for i := range masses {
		masses[i] = 1
		k[i] = stiffness
	}
	state, err := NewState(positions, velocities, masses, 1)
	if err != nil {
		return nil, err
	}
	h, err := NewHarmonic(state, k)
	if err != nil {
		return nil, err
	}
	h.Coupling = coupling
	return h, nil
}

func (h *Harmonic) ClassicalForces(positions []float64) ([]float64, float64, error) {
	n := h.state.NumDOF()
	if len(positions) != n {
		return nil, 0, fmt.Errorf("%w: %d positions for %d coordinates", dynamo.ErrDimensionMismatch, len(positions), n)
	}

	forces := make([]float64, n)
	potential := 0.0
	for i := 0; i < n; i++ {
		stretch := positions[i] - h.Centers[i]
		forces[i] -= h.Stiffness[i] * stretch
		potential += 0.5 * h.Stiffness[i] * stretch * stretch
	}

	if h.Coupling != 0 {
		for i := 0; i < n-1; i++ {
			stretch := positions[i+1] - positions[i]
			forces[i] += h.Coupling * stretch
			forces[i+1] -= h.Coupling * stretch
			potential += 0.5 * h.Coupling * stretch * stretch
		}
	}

	return forces, potential, nil
}

func (h *Harmonic) Clone() Engine {
	return &Harmonic{
		holder:    holder{state: h.state.Clone()},
		Stiffness: append([]float64(nil), h.Stiffness...),
		Centers:   append([]float64(nil), h.Centers...),
		Coupling:  h.Coupling,
	}
}
