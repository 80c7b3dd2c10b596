package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/mmst/internal/dynamo"
)

// oscillator is a unit harmonic oscillator with no electronic states.
type oscillator struct {
	evals int
	fail  bool
}

func (o *oscillator) Layout() dynamo.Layout { return dynamo.Layout{NumDOF: 1} }

func (o *oscillator) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	o.evals++
	if o.fail {
		return nil, dynamo.ErrEvaluation
	}
	return dynamo.State{x[1], -x[0]}, nil
}

func (o *oscillator) Kick(x dynamo.State, dt float64) error {
	o.evals++
	if o.fail {
		return dynamo.ErrEvaluation
	}
	x[1] -= dt * x[0]
	return nil
}

func (o *oscillator) Drift(x dynamo.State, dt float64) error {
	x[0] += dt * x[1]
	return nil
}

func (o *oscillator) PropagateMapping(x dynamo.State, dt float64) error { return nil }

func (o *oscillator) energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func exact(t float64) dynamo.State {
	return dynamo.State{math.Cos(t), -math.Sin(t)}
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := exact(0)
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		var err error
		x, err = integ.Advance(dyn, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	want := exact(float64(steps) * dt)
	if math.Abs(x[0]-want[0]) > 1e-9 {
		t.Errorf("position error too large: got %.12f, expected %.12f", x[0], want[0])
	}
	if math.Abs(x[1]-want[1]) > 1e-9 {
		t.Errorf("velocity error too large: got %.12f, expected %.12f", x[1], want[1])
	}
	if dyn.evals != 4*steps {
		t.Errorf("expected %d derivative evaluations, got %d", 4*steps, dyn.evals)
	}
}

func TestRK4_DoesNotModifyInput(t *testing.T) {
	x := dynamo.State{1, 0}
	before := x.Clone()
	if _, err := NewRK4().Advance(&oscillator{}, x, 0, 0.1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !x.Equal(before) {
		t.Error("Advance modified its input")
	}
}

func TestRK4_PropagatesErrors(t *testing.T) {
	_, err := NewRK4().Advance(&oscillator{fail: true}, dynamo.State{1, 0}, 0, 0.1)
	if !errors.Is(err, dynamo.ErrEvaluation) {
		t.Errorf("expected ErrEvaluation, got %v", err)
	}
}

func TestVerlet_EnergyBounded(t *testing.T) {
	dyn := &oscillator{}
	integ := NewVerlet()

	maxDrift := func(dt float64, steps int) float64 {
		x := exact(0)
		e0 := dyn.energy(x)
		drift := 0.0
		for i := 0; i < steps; i++ {
			var err error
			x, err = integ.Advance(dyn, x, float64(i)*dt, dt)
			if err != nil {
				t.Fatalf("advance failed: %v", err)
			}
			drift = math.Max(drift, math.Abs(dyn.energy(x)-e0)/e0)
		}
		return drift
	}

	d1 := maxDrift(0.01, 10000)
	d2 := maxDrift(0.02, 10000)
	if d1 > 1e-4 {
		t.Errorf("verlet energy drift too high: %e", d1)
	}
	ratio := d2 / d1
	if ratio < 2.5 || ratio > 6 {
		t.Errorf("verlet drift should scale as dt^2, ratio %g", ratio)
	}
}

func TestVerlet_SecondOrder(t *testing.T) {
	dyn := &oscillator{}
	integ := NewVerlet()

	globalErr := func(dt float64) float64 {
		x := exact(0)
		steps := int(math.Round(1 / dt))
		for i := 0; i < steps; i++ {
			x, _ = integ.Advance(dyn, x, float64(i)*dt, dt)
		}
		return x.Sub(exact(1)).Norm()
	}

	e1, e2 := globalErr(0.01), globalErr(0.005)
	order := math.Log2(e1 / e2)
	if math.Abs(order-2) > 0.2 {
		t.Errorf("observed order %.3f, want ~2", order)
	}
}

func TestVerlet_RequiresSplitSystem(t *testing.T) {
	_, err := NewVerlet().Advance(derivOnly{}, dynamo.State{1, 0}, 0, 0.1)
	if !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

type derivOnly struct{}

func (derivOnly) Layout() dynamo.Layout { return dynamo.Layout{NumDOF: 1} }
func (derivOnly) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	return dynamo.State{x[1], -x[0]}, nil
}
