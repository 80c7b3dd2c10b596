package hamiltonian

import (
	"fmt"
	"math"

	"github.com/san-kum/mmst/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearVibronic is a linear vibronic coupling model:
//
//	H_ii(R) = ε_i + Σ_k κ_ik R_k
//	H_ij(R) = Δ_ij, i ≠ j
//
// With two states and a harmonic bath supplied by the nuclear engine this
// is the spin-boson model. A positive Domain bounds every |R_k|; outside
// it the model is undefined and Evaluate fails.
type LinearVibronic struct {
	Energies  []float64
	Couplings *mat.SymDense
	Kappa     [][]float64
	Domain    float64
}

func NewLinearVibronic(energies []float64, couplings *mat.SymDense, kappa [][]float64) (*LinearVibronic, error) {
	n := len(energies)
	if n == 0 {
		return nil, fmt.Errorf("%w: linear vibronic model needs at least one state", dynamo.ErrConfiguration)
	}
	if couplings == nil {
		couplings = mat.NewSymDense(n, nil)
	}
	if couplings.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: couplings are %d×%d for %d states", dynamo.ErrDimensionMismatch, couplings.SymmetricDim(), couplings.SymmetricDim(), n)
	}
	if len(kappa) != n {
		return nil, fmt.Errorf("%w: kappa has %d rows for %d states", dynamo.ErrDimensionMismatch, len(kappa), n)
	}
	for i := 1; i < n; i++ {
		if len(kappa[i]) != len(kappa[0]) {
			return nil, fmt.Errorf("%w: kappa row %d has %d modes, want %d", dynamo.ErrDimensionMismatch, i, len(kappa[i]), len(kappa[0]))
		}
	}
	return &LinearVibronic{Energies: energies, Couplings: couplings, Kappa: kappa}, nil
}

// NewSpinBoson builds the two-state model with bias ±epsilon, tunnelling
// delta and linear couplings ±c_k to each bath mode.
func NewSpinBoson(epsilon, delta float64, c []float64) *LinearVibronic {
	neg := make([]float64, len(c))
	floats.ScaleTo(neg, -1, c)
	pos := make([]float64, len(c))
	copy(pos, c)
	return &LinearVibronic{
		Energies:  []float64{epsilon, -epsilon},
		Couplings: mat.NewSymDense(2, []float64{0, delta, delta, 0}),
		Kappa:     [][]float64{pos, neg},
	}
}

func (m *LinearVibronic) NumStates() int { return len(m.Energies) }

func (m *LinearVibronic) NumDOF() int { return len(m.Kappa[0]) }

func (m *LinearVibronic) Evaluate(positions []float64) (*Matrix, *Gradient, error) {
	if err := CheckPositions("linear_vibronic", positions, m.NumDOF()); err != nil {
		return nil, nil, err
	}
	if m.Domain > 0 {
		for k, r := range positions {
			if math.Abs(r) > m.Domain {
				return nil, nil, &EvaluationError{Model: "linear_vibronic", Coordinate: k, Reason: fmt.Sprintf("|R|=%g outside domain %g", math.Abs(r), m.Domain)}
			}
		}
	}

	n := m.NumStates()
	h := mat.NewSymDense(n, nil)
	h.CopySym(m.Couplings)
	for i := 0; i < n; i++ {
		h.SetSym(i, i, m.Energies[i]+floats.Dot(m.Kappa[i], positions))
	}

	grad := NewGradient(n, len(positions))
	for k := range positions {
		for i := 0; i < n; i++ {
			grad.Set(k, i, i, m.Kappa[i][k])
		}
	}
	return &Matrix{sym: h}, grad, nil
}
