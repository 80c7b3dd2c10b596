package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/storage"
)

const studyYAML = `
name: rabi study
description: one scheme against another
steps:
  - name: verlet
    model: rabi
    preset: resonant
    config:
      steps: 100
      record_every: 10
    save: true
  - name: gear
    model: rabi
    preset: gear
    config:
      steps: 60
      model_params:
        delta: 0.2
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(studyYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Name != "rabi study" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	cfg, err := sc.Steps[1].Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Scheme != "gear6" || cfg.Steps != 60 || cfg.ModelParams.Delta != 0.2 {
		t.Errorf("overlay not applied on the preset: scheme %s, steps %d, delta %g", cfg.Scheme, cfg.Steps, cfg.ModelParams.Delta)
	}
	if cfg.Dt != 0.05 || cfg.RecordEvery != 5 {
		t.Errorf("preset values should survive the overlay: dt %g, every %d", cfg.Dt, cfg.RecordEvery)
	}

	if _, err := ParseScenario([]byte("name: empty\n")); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for a scenario without steps, got %v", err)
	}
}

func TestResolve_UnknownPreset(t *testing.T) {
	step := ScenarioStep{Model: "tully", Preset: "nope"}
	if _, err := step.Resolve(); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "study.yaml")
	if err := os.WriteFile(path, []byte(studyYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	store := storage.New(filepath.Join(dir, "runs"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	results, err := RunScenario(context.Background(), sc, store, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID == "" || results[1].RunID != "" {
		t.Errorf("only the first step should be saved: %q, %q", results[0].RunID, results[1].RunID)
	}
	if results[0].Result.Steps != 100 || results[1].Result.Steps != 60 {
		t.Errorf("unexpected step counts %d, %d", results[0].Result.Steps, results[1].Result.Steps)
	}

	runs, err := store.List()
	if err != nil || len(runs) != 1 || runs[0].ID != results[0].RunID {
		t.Errorf("expected the saved run in the store, got %v (%v)", runs, err)
	}
}

func TestRunScenario_StopsAtFailure(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: broken
steps:
  - name: ok
    config: {steps: 10}
  - name: bad
    config: {dt: -1}
  - name: never
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	results, err := RunScenario(context.Background(), sc, nil, nil)
	if !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if len(results) != 1 || results[0].Name != "ok" {
		t.Errorf("expected the first result only, got %d", len(results))
	}
}
