package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Equal reports whether s and other hold bitwise identical values.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if math.Float64bits(s[i]) != math.Float64bits(other[i]) {
			return false
		}
	}
	return true
}

// Layout describes the blocks of a flat phase-space vector:
// positions and velocities of NumDOF nuclear coordinates followed by the
// mapping coordinates and momenta of NumStates electronic states.
type Layout struct {
	NumDOF    int
	NumStates int
}

func (l Layout) Len() int { return 2*l.NumDOF + 2*l.NumStates }

func (l Layout) Positions(x State) []float64  { return x[:l.NumDOF] }
func (l Layout) Velocities(x State) []float64 { return x[l.NumDOF : 2*l.NumDOF] }
func (l Layout) Q(x State) []float64          { return x[2*l.NumDOF : 2*l.NumDOF+l.NumStates] }
func (l Layout) P(x State) []float64          { return x[2*l.NumDOF+l.NumStates : l.Len()] }

// Pack assembles a phase-space vector from its blocks.
func (l Layout) Pack(positions, velocities, q, p []float64) State {
	x := make(State, l.Len())
	copy(l.Positions(x), positions)
	copy(l.Velocities(x), velocities)
	copy(l.Q(x), q)
	copy(l.P(x), p)
	return x
}

// System is the coupled nuclear + mapping equations of motion.
type System interface {
	Layout() Layout
	Derive(x State, t float64) (State, error)
}

// SplitSystem exposes the pieces used by splitting schemes. Each updates
// its block of x in place: Kick the velocities under the force at x, Drift
// the positions under the velocities, PropagateMapping the mapping block
// under H at the positions of x.
type SplitSystem interface {
	System
	Kick(x State, dt float64) error
	Drift(x State, dt float64) error
	PropagateMapping(x State, dt float64) error
}

// Hamiltonian is implemented by systems that can report a conserved energy.
type Hamiltonian interface {
	Energy(x State) (float64, error)
}

// Scheme advances a phase point by one step. Advance must not modify x.
type Scheme interface {
	Name() string
	Order() int
	Advance(sys System, x State, t, dt float64) (State, error)
}

// Memento is an opaque copy of a multistep scheme's history.
type Memento any

// Multistep is a Scheme that is not self-starting: it needs Required
// derivative samples, recorded at uniformly spaced times, before Advance
// can be called.
type Multistep interface {
	Scheme
	Required() int
	Recorded() int
	Ready() bool
	Record(sys System, x State, t float64) error
	Reset()
	Save() Memento
	Restore(m Memento)
}
