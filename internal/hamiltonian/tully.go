package hamiltonian

import "math"

// Tully's simple avoided crossing, one nuclear coordinate, two diabatic states.
const (
	TullyA = 0.01
	TullyB = 1.6
	TullyC = 0.005
	TullyD = 1.0
)

type TullySimple struct {
	A, B, C, D float64
}

func NewTullySimple() *TullySimple {
	return &TullySimple{A: TullyA, B: TullyB, C: TullyC, D: TullyD}
}

func (m *TullySimple) NumStates() int { return 2 }

func (m *TullySimple) Evaluate(positions []float64) (*Matrix, *Gradient, error) {
	if err := CheckPositions("tully", positions, 1); err != nil {
		return nil, nil, err
	}
	x := positions[0]

	decay := math.Exp(-m.B * math.Abs(x))
	v11 := math.Copysign(m.A*(1-decay), x)
	dv11 := m.A * m.B * decay

	gauss := math.Exp(-m.D * x * x)
	v12 := m.C * gauss
	dv12 := -2 * m.C * m.D * x * gauss

	grad := NewGradient(2, 1)
	grad.Set(0, 0, 0, dv11)
	grad.Set(0, 1, 1, -dv11)
	grad.Set(0, 0, 1, dv12)

	return TwoLevel(v11, -v11, v12), grad, nil
}
