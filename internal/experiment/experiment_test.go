package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/mmst/internal/config"
	"github.com/san-kum/mmst/internal/dynamo"
)

func TestRegistry_Lists(t *testing.T) {
	r := NewRegistry()
	models := r.ListModels()
	want := []string{"rabi", "spin_boson", "tully", "vibronic"}
	if len(models) != len(want) {
		t.Fatalf("expected models %v, got %v", want, models)
	}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("model %d: expected %s, got %s", i, want[i], models[i])
		}
	}
	if engines := r.ListEngines(); len(engines) != 2 {
		t.Errorf("expected two engines, got %v", engines)
	}
}

func TestBuild_AllPresets(t *testing.T) {
	for model, presets := range config.Presets {
		for name := range presets {
			cfg := config.GetPreset(model, name)
			simCfg, engine, err := Build(cfg, nil)
			if err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
				continue
			}
			if err := simCfg.Validate(); err != nil {
				t.Errorf("%s/%s: invalid sim config: %v", model, name, err)
			}
			if len(engine.Positions()) != len(cfg.Nuclear.Positions) {
				t.Errorf("%s/%s: engine has %d coordinates", model, name, len(engine.Positions()))
			}
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"unknown model", func(c *config.Config) { c.Model = "morse" }},
		{"unknown engine", func(c *config.Config) { c.Nuclear.Engine = "lammps" }},
		{"tully with two coordinates", func(c *config.Config) {
			c.Model = "tully"
			c.Nuclear.Positions = []float64{0, 0}
			c.Nuclear.Velocities = []float64{0, 0}
			c.Nuclear.Masses = []float64{1, 1}
		}},
		{"bath size mismatch", func(c *config.Config) {
			c.Model = "spin_boson"
			c.ModelParams.Bath = []float64{0.1, 0.2}
		}},
		{"bad sampling", func(c *config.Config) { c.Sampling = "wigner" }},
		{"bad mass", func(c *config.Config) { c.Nuclear.Masses = []float64{0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			if _, _, err := Build(cfg, nil); !errors.Is(err, dynamo.ErrConfiguration) && !errors.Is(err, dynamo.ErrDimensionMismatch) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestExperiment_RunRabi(t *testing.T) {
	cfg := config.GetPreset("rabi", "resonant")
	cfg.Steps = 400

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new experiment: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Steps != 400 || math.Abs(res.Time-20) > 1e-9 {
		t.Errorf("ran %d steps to t=%g", res.Steps, res.Time)
	}
	rec := res.Recording
	if rec.Len() != 400/cfg.RecordEvery+1 {
		t.Errorf("expected %d samples, got %d", 400/cfg.RecordEvery+1, rec.Len())
	}
	for k, tm := range rec.Times {
		want := math.Pow(math.Sin(cfg.ModelParams.Delta*tm), 2)
		if d := math.Abs(rec.Populations[k][1] - want); d > 1e-9 {
			t.Fatalf("t=%g: population %g, want %g", tm, rec.Populations[k][1], want)
		}
	}
	if res.Metrics["stability"] != 1 || res.Metrics["action_drift"] > 1e-10 {
		t.Errorf("unexpected metrics %v", res.Metrics)
	}

	meta := exp.Metadata(res)
	if meta.Scheme != "verlet" || meta.Steps != 400 || meta.NumStates != 2 || meta.Startup != "" {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestExperiment_GearRecordsStartup(t *testing.T) {
	cfg := config.GetPreset("rabi", "gear")
	cfg.Steps = 100

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new experiment: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Steps != 100 {
		t.Errorf("expected 100 steps, got %d", res.Steps)
	}
	if meta := exp.Metadata(res); meta.Startup != "verlet" {
		t.Errorf("expected startup scheme in metadata, got %q", meta.Startup)
	}
}

func TestExperiment_ShorterThanStartup(t *testing.T) {
	cfg := config.GetPreset("rabi", "gear")
	cfg.Steps = 2

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new experiment: %v", err)
	}
	if _, err := exp.Run(context.Background()); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if steps := exp.Trajectory().Steps(); steps != 0 {
		t.Errorf("rejected run still advanced %d steps", steps)
	}
}

func TestExperiment_Cancelled(t *testing.T) {
	exp, err := New(config.GetPreset("tully", "low"), nil)
	if err != nil {
		t.Fatalf("new experiment: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exp.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExperiment_Ensemble(t *testing.T) {
	cfg := config.GetPreset("spin_boson", "symmetric")
	cfg.Steps = 100

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new experiment: %v", err)
	}
	ens, err := exp.Ensemble(3)
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	res, err := ens.Run(context.Background(), cfg.Steps, cfg.RecordEvery)
	if err != nil {
		t.Fatalf("ensemble run: %v", err)
	}
	if len(res.Final) != 3 || len(res.Times) != cfg.Steps/cfg.RecordEvery+1 {
		t.Errorf("unexpected ensemble shape: %d runs, %d samples", len(res.Final), len(res.Times))
	}
}
