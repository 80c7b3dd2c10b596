// Package mapping holds the Meyer-Miller-Stock-Thoss electronic mapping
// variables and the quantities derived from them.
//
// State i is represented by a canonical pair (q_i, p_i) with amplitude
// c_i = (q_i + i p_i)/√2. With zero-point parameter γ the population of
// state i is (q_i² + p_i²)/2 − γ and the mapping Hamiltonian is
//
//	H_map = ½ Σ_ij H_ij (q_i q_j + p_i p_j − γ δ_ij)
package mapping

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/hamiltonian"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sampling selects how the initial mapping angles are chosen.
type Sampling int

const (
	// Focused places every amplitude on the real axis.
	Focused Sampling = iota
	// Sampled draws each angle uniformly from [0, 2π).
	Sampled
)

func (s Sampling) String() string {
	switch s {
	case Focused:
		return "focused"
	case Sampled:
		return "sampled"
	default:
		return fmt.Sprintf("sampling(%d)", int(s))
	}
}

// ParseSampling accepts "focused" or "sampled".
func ParseSampling(name string) (Sampling, error) {
	switch name {
	case "", "focused":
		return Focused, nil
	case "sampled":
		return Sampled, nil
	default:
		return 0, fmt.Errorf("%w: unknown sampling %q", dynamo.ErrConfiguration, name)
	}
}

type Options struct {
	ZeroPoint float64
	Sampling  Sampling
}

type State struct {
	Q, P  []float64
	Gamma float64
}

// Initialize returns the mapping state for n electronic states with state
// occupied populated. The result depends only on its arguments.
func Initialize(n, occupied int, seed int64, opts Options) (*State, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: need at least one electronic state, got %d", dynamo.ErrConfiguration, n)
	}
	if occupied < 0 || occupied >= n {
		return nil, fmt.Errorf("%w: initial state %d outside [0, %d)", dynamo.ErrConfiguration, occupied, n)
	}
	if opts.ZeroPoint < 0 || math.IsNaN(opts.ZeroPoint) {
		return nil, fmt.Errorf("%w: zero-point parameter must be non-negative, got %g", dynamo.ErrConfiguration, opts.ZeroPoint)
	}

	s := &State{Q: make([]float64, n), P: make([]float64, n), Gamma: opts.ZeroPoint}
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		action := opts.ZeroPoint
		if i == occupied {
			action += 1
		}
		r := math.Sqrt(2 * action)
		theta := 0.0
		if opts.Sampling == Sampled {
			theta = 2 * math.Pi * rng.Float64()
		}
		s.Q[i] = r * math.Cos(theta)
		s.P[i] = r * math.Sin(theta)
	}
	return s, nil
}

// Wrap returns a State viewing q and p without copying.
func Wrap(q, p []float64, gamma float64) *State {
	return &State{Q: q, P: p, Gamma: gamma}
}

func (s *State) Len() int { return len(s.Q) }

func (s *State) Clone() *State {
	c := &State{Q: make([]float64, len(s.Q)), P: make([]float64, len(s.P)), Gamma: s.Gamma}
	copy(c.Q, s.Q)
	copy(c.P, s.P)
	return c
}

func (s *State) Validate() error {
	if !dynamo.State(s.Q).IsValid() || !dynamo.State(s.P).IsValid() {
		return fmt.Errorf("%w: mapping variables", dynamo.ErrNumericalInstability)
	}
	return nil
}

func (s *State) checkDim(n int) error {
	if len(s.Q) != n || len(s.P) != n {
		return fmt.Errorf("%w: %d mapping pairs for a %d-state Hamiltonian", dynamo.ErrDimensionMismatch, len(s.Q), n)
	}
	return nil
}

// Populations returns (q_i² + p_i²)/2 − γ for each state.
func (s *State) Populations() []float64 {
	pops := make([]float64, len(s.Q))
	for i := range pops {
		pops[i] = 0.5*(s.Q[i]*s.Q[i]+s.P[i]*s.P[i]) - s.Gamma
	}
	return pops
}

// TotalPopulation is the sum of populations, the classical analogue of the
// wavefunction norm.
func (s *State) TotalPopulation() float64 {
	return floats.Sum(s.Populations())
}

// Energy returns the mapping Hamiltonian for electronic matrix h.
func (s *State) Energy(h *hamiltonian.Matrix) (float64, error) {
	if err := s.checkDim(h.Dim()); err != nil {
		return 0, err
	}
	return h.QuadForm(s.Q, s.P) - 0.5*s.Gamma*h.Trace(), nil
}

// Derivative returns Hamilton's equations for the mapping variables,
// dq/dt = H p and dp/dt = −H q.
func (s *State) Derivative(h *hamiltonian.Matrix) (dq, dp []float64, err error) {
	n := h.Dim()
	if err := s.checkDim(n); err != nil {
		return nil, nil, err
	}
	dq = make([]float64, n)
	dp = make([]float64, n)
	h.MulVec(dq, s.P)
	h.MulVec(dp, s.Q)
	floats.Scale(-1, dp)
	if !dynamo.State(dq).IsValid() || !dynamo.State(dp).IsValid() {
		return nil, nil, fmt.Errorf("%w: mapping derivative", dynamo.ErrNumericalInstability)
	}
	return dq, dp, nil
}

// Force returns the electronic contribution to the nuclear force,
// F_k = −½ Σ_ij ∂_k H_ij (q_i q_j + p_i p_j − γ δ_ij).
func (s *State) Force(h *hamiltonian.Matrix, grad *hamiltonian.Gradient) ([]float64, error) {
	n := h.Dim()
	if err := s.checkDim(n); err != nil {
		return nil, err
	}
	if grad.Dim() != n {
		return nil, fmt.Errorf("%w: gradient is for %d states, Hamiltonian for %d", dynamo.ErrDimensionMismatch, grad.Dim(), n)
	}

	q := mat.NewVecDense(n, s.Q)
	p := mat.NewVecDense(n, s.P)
	force := make([]float64, grad.NumDOF())
	for k := range force {
		dh := grad.Component(k)
		force[k] = -0.5*(mat.Inner(q, dh, q)+mat.Inner(p, dh, p)) + 0.5*s.Gamma*mat.Trace(dh)
	}
	if !dynamo.State(force).IsValid() {
		return nil, fmt.Errorf("%w: mapping force", dynamo.ErrNumericalInstability)
	}
	return force, nil
}

// Propagate advances the mapping variables by dt under a fixed Hamiltonian
// h, exactly, by rotating each eigen-component. The state is left
// unchanged if the step fails.
func (s *State) Propagate(h *hamiltonian.Matrix, dt float64) error {
	n := h.Dim()
	if err := s.checkDim(n); err != nil {
		return err
	}
	vals, vecs, err := h.Eigen()
	if err != nil {
		return err
	}

	var qt, pt mat.VecDense
	qt.MulVec(vecs.T(), mat.NewVecDense(n, s.Q))
	pt.MulVec(vecs.T(), mat.NewVecDense(n, s.P))
	for i, lambda := range vals {
		sin, cos := math.Sincos(lambda * dt)
		qi, pi := qt.AtVec(i), pt.AtVec(i)
		qt.SetVec(i, qi*cos+pi*sin)
		pt.SetVec(i, pi*cos-qi*sin)
	}

	q := make([]float64, n)
	p := make([]float64, n)
	mat.NewVecDense(n, q).MulVec(vecs, &qt)
	mat.NewVecDense(n, p).MulVec(vecs, &pt)
	if !dynamo.State(q).IsValid() || !dynamo.State(p).IsValid() {
		return fmt.Errorf("%w: mapping propagation", dynamo.ErrNumericalInstability)
	}
	copy(s.Q, q)
	copy(s.P, p)
	return nil
}
