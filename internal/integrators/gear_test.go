package integrators

import (
	"errors"
	"testing"

	"github.com/san-kum/mmst/internal/dynamo"
)

// primeExact records HistoryDepth exact derivative samples ending at t0.
func primeExact(t *testing.T, g *Gear6, dyn dynamo.System, t0, dt float64) {
	t.Helper()
	for k := HistoryDepth - 1; k >= 0; k-- {
		tm := t0 - float64(k)*dt
		if err := g.Record(dyn, exact(tm), tm); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
}

func TestGear6_RequiresHistory(t *testing.T) {
	g := NewGear6()
	dyn := &oscillator{}

	_, err := g.Advance(dyn, exact(0), 0, 0.01)
	if !errors.Is(err, dynamo.ErrPredictorHistory) {
		t.Fatalf("expected ErrPredictorHistory, got %v", err)
	}

	for i := 0; i < HistoryDepth-1; i++ {
		if err := g.Record(dyn, exact(float64(i)*0.01), float64(i)*0.01); err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if g.Ready() {
			t.Fatalf("ready after %d samples", i+1)
		}
	}
	if _, err := g.Advance(dyn, exact(0.03), 0.03, 0.01); !errors.Is(err, dynamo.ErrPredictorHistory) {
		t.Errorf("expected ErrPredictorHistory with partial history, got %v", err)
	}

	if err := g.Record(dyn, exact(0.04), 0.04); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if !g.Ready() || g.Recorded() != HistoryDepth {
		t.Fatalf("expected ready after %d samples, recorded %d", HistoryDepth, g.Recorded())
	}
	if _, err := g.Advance(dyn, exact(0.04), 0.04, 0.01); err != nil {
		t.Errorf("advance after history failed: %v", err)
	}
}

func TestGear6_Accuracy(t *testing.T) {
	g := NewGear6()
	dyn := &oscillator{}
	dt := 0.01
	primeExact(t, g, dyn, 0, dt)

	x := exact(0)
	steps := 1000
	for i := 0; i < steps; i++ {
		var err error
		x, err = g.Advance(dyn, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	want := exact(float64(steps) * dt)
	if d := x.Sub(want).Norm(); d > 1e-6 {
		t.Errorf("gear6 global error too large: %e", d)
	}
	if dyn.evals != HistoryDepth+steps {
		t.Errorf("expected one evaluation per step, got %d for %d steps", dyn.evals-HistoryDepth, steps)
	}
}

func TestGear6_StepSizeFixed(t *testing.T) {
	g := NewGear6()
	dyn := &oscillator{}
	primeExact(t, g, dyn, 0, 0.01)

	x, err := g.Advance(dyn, exact(0), 0, 0.01)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := g.Advance(dyn, x, 0.01, 0.02); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration on step size change, got %v", err)
	}
}

func TestGear6_SaveRestore(t *testing.T) {
	g := NewGear6()
	dyn := &oscillator{}
	dt := 0.01
	primeExact(t, g, dyn, 0, dt)

	x1, err := g.Advance(dyn, exact(0), 0, dt)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	saved := g.Save()

	x2, err := g.Advance(dyn, x1, dt, dt)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	g.Restore(saved)
	again, err := g.Advance(dyn, x1, dt, dt)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !again.Equal(x2) {
		t.Errorf("restored history should reproduce the step: %v vs %v", again, x2)
	}

	g.Reset()
	if g.Ready() || g.Recorded() != 0 {
		t.Error("Reset should clear the history")
	}
}

func TestGear6_FailedStepKeepsHistory(t *testing.T) {
	g := NewGear6()
	dyn := &oscillator{}
	dt := 0.01
	primeExact(t, g, dyn, 0, dt)

	x1, _ := g.Advance(dyn, exact(0), 0, dt)
	saved := g.Save()

	dyn.fail = true
	if _, err := g.Advance(dyn, x1, dt, dt); !errors.Is(err, dynamo.ErrEvaluation) {
		t.Fatalf("expected ErrEvaluation, got %v", err)
	}
	dyn.fail = false

	want, _ := func() (dynamo.State, error) {
		g2 := NewGear6()
		g2.Restore(saved)
		return g2.Advance(dyn, x1, dt, dt)
	}()
	got, err := g.Advance(dyn, x1, dt, dt)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !got.Equal(want) {
		t.Error("a failed evaluation must not alter the Nordsieck history")
	}
}

func TestLocalError_Ordering(t *testing.T) {
	dt := 0.05
	t0 := 1.0
	x0 := exact(t0)
	want := exact(t0 + dt)

	verletStep, _ := NewVerlet().Advance(&oscillator{}, x0, t0, dt)
	rk4Step, _ := NewRK4().Advance(&oscillator{}, x0, t0, dt)

	g := NewGear6()
	dyn := &oscillator{}
	primeExact(t, g, dyn, t0, dt)
	gearStep, err := g.Advance(dyn, x0, t0, dt)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	ev := verletStep.Sub(want).Norm()
	er := rk4Step.Sub(want).Norm()
	eg := gearStep.Sub(want).Norm()
	t.Logf("local error: verlet %.3e, rk4 %.3e, gear6 %.3e", ev, er, eg)

	if er >= ev {
		t.Errorf("rk4 local error %e should be below verlet %e", er, ev)
	}
	if eg >= ev {
		t.Errorf("gear6 local error %e should be below verlet %e", eg, ev)
	}
}
