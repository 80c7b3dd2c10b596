package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/mmst/internal/hamiltonian"
	"github.com/san-kum/mmst/internal/nuclear"
	"github.com/san-kum/mmst/internal/sim"
)

func TestMeanEnergy(t *testing.T) {
	m := NewMeanEnergy()
	m.OnStep(sim.Sample{Energy: 1})
	m.OnStep(sim.Sample{Energy: 3})
	if m.Value() != 2 {
		t.Errorf("expected mean 2, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	tests := []struct {
		name     string
		energies []float64
		want     float64
	}{
		{"constant", []float64{2, 2, 2}, 0},
		{"relative", []float64{2, 2.1, 1.95}, 0.05},
		{"zero reference is absolute", []float64{0, 0.01, -0.03}, 0.03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewEnergyDrift()
			for _, e := range tt.energies {
				m.OnStep(sim.Sample{Energy: e})
			}
			if math.Abs(m.Value()-tt.want) > 1e-12 {
				t.Errorf("expected drift %g, got %g", tt.want, m.Value())
			}
		})
	}
}

func TestActionDrift(t *testing.T) {
	m := NewActionDrift()
	m.OnStep(sim.Sample{Populations: []float64{0.7, 0.3}})
	m.OnStep(sim.Sample{Populations: []float64{0.4, 0.6 + 1e-6}})
	if math.Abs(m.Value()-1e-6) > 1e-12 {
		t.Errorf("expected drift 1e-6, got %g", m.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	s.OnStep(sim.Sample{Positions: []float64{1}})
	s.OnStep(sim.Sample{Positions: []float64{11}})
	s.OnStep(sim.Sample{Positions: []float64{0}, Populations: []float64{math.NaN()}})
	s.OnStep(sim.Sample{Positions: []float64{-2}})
	if s.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", s.Value())
	}
}

func TestMetricsOnTrajectory(t *testing.T) {
	engine, err := nuclear.NewHarmonicChain([]float64{1}, []float64{0}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	traj, err := sim.New(sim.Config{
		StepSize:  0.05,
		Provider:  hamiltonian.NewConstant(hamiltonian.TwoLevel(0, 0.1, 0.05)),
		NumStates: 2,
	}, engine)
	if err != nil {
		t.Fatal(err)
	}
	if err := traj.Initialize(); err != nil {
		t.Fatal(err)
	}

	ms := Default()
	for _, m := range ms {
		m.OnStep(traj.Sample())
		traj.AddObserver(m)
	}
	for i := 0; i < 200; i++ {
		if err := traj.Step(1); err != nil {
			t.Fatal(err)
		}
	}

	values := Collect(ms)
	if values["energy_drift"] > 1e-3 || values["energy_drift"] == 0 {
		t.Errorf("unexpected energy drift %g", values["energy_drift"])
	}
	if math.Abs(values["energy_drift"]-traj.EnergyDrift()) > 1e-3 {
		t.Errorf("metric %g disagrees with trajectory %g", values["energy_drift"], traj.EnergyDrift())
	}
	if values["action_drift"] > 1e-10 {
		t.Errorf("unexpected action drift %g", values["action_drift"])
	}
	if values["stability"] != 1 {
		t.Errorf("expected a stable run, got %g", values["stability"])
	}
	if math.Abs(values["mean_energy"]-0.5) > 1e-3 {
		t.Errorf("mean energy %g, want ~0.5", values["mean_energy"])
	}
}
