package config

import "sort"

var Presets = map[string]map[string]*Config{
	"rabi": {
		"resonant": {
			Model: "rabi", Scheme: "verlet", Dt: 0.05, Steps: 2000, Sampling: "focused", RecordEvery: 5,
			Nuclear:     NuclearConfig{Engine: "free", Positions: []float64{0}, Velocities: []float64{0}, Masses: []float64{1}, Dims: 1},
			ModelParams: ModelConfig{E0: 0, E1: 0, Delta: 0.1},
		},
		"detuned": {
			Model: "rabi", Scheme: "rk4", Dt: 0.05, Steps: 2000, Sampling: "focused", RecordEvery: 5,
			Nuclear:     NuclearConfig{Engine: "free", Positions: []float64{0}, Velocities: []float64{0}, Masses: []float64{1}, Dims: 1},
			ModelParams: ModelConfig{E0: 0, E1: 0.2, Delta: 0.1},
		},
		"gear": {
			Model: "rabi", Scheme: "gear6", Startup: "verlet", Dt: 0.05, Steps: 2000, Sampling: "focused", RecordEvery: 5,
			Nuclear:     NuclearConfig{Engine: "free", Positions: []float64{0}, Velocities: []float64{0}, Masses: []float64{1}, Dims: 1},
			ModelParams: ModelConfig{E0: 0, E1: 0, Delta: 0.1},
		},
	},
	"tully": {
		"low": {
			Model: "tully", Scheme: "verlet", Dt: 1, Steps: 4000, Sampling: "focused", RecordEvery: 20,
			Nuclear: NuclearConfig{Engine: "free", Positions: []float64{-10}, Velocities: []float64{10.0 / 2000}, Masses: []float64{2000}, Dims: 1},
		},
		"high": {
			Model: "tully", Scheme: "verlet", Dt: 1, Steps: 1600, Sampling: "focused", RecordEvery: 10,
			Nuclear: NuclearConfig{Engine: "free", Positions: []float64{-10}, Velocities: []float64{25.0 / 2000}, Masses: []float64{2000}, Dims: 1},
		},
		"sampled": {
			Model: "tully", Scheme: "gear6", Startup: "rk4", Dt: 1, Steps: 2000, Seed: 1, ZeroPoint: 0.366, Sampling: "sampled", RecordEvery: 20,
			Nuclear: NuclearConfig{Engine: "free", Positions: []float64{-10}, Velocities: []float64{20.0 / 2000}, Masses: []float64{2000}, Dims: 1},
		},
	},
	"spin_boson": {
		"symmetric": {
			Model: "spin_boson", Scheme: "verlet", Dt: 0.05, Steps: 4000, Sampling: "sampled", ZeroPoint: 0.366, RecordEvery: 10,
			Nuclear: NuclearConfig{Engine: "harmonic", Positions: []float64{0, 0}, Velocities: []float64{0, 0}, Masses: []float64{1, 1},
				Dims: 1, Stiffness: 1},
			ModelParams: ModelConfig{Epsilon: 0, Delta: 0.1, Bath: []float64{0.1, 0.05}},
		},
		"biased": {
			Model: "spin_boson", Scheme: "rk4", Dt: 0.05, Steps: 4000, Sampling: "sampled", ZeroPoint: 0.366, RecordEvery: 10,
			Nuclear: NuclearConfig{Engine: "harmonic", Positions: []float64{0, 0}, Velocities: []float64{0, 0}, Masses: []float64{1, 1},
				Dims: 1, Stiffness: 1},
			ModelParams: ModelConfig{Epsilon: 0.05, Delta: 0.1, Bath: []float64{0.1, 0.05}},
		},
	},
	"vibronic": {
		"three_state": {
			Model: "vibronic", Scheme: "gear6", Startup: "verlet", Dt: 0.05, Steps: 3000, Sampling: "focused", RecordEvery: 10,
			Nuclear: NuclearConfig{Engine: "harmonic", Positions: []float64{0.5, -0.5}, Velocities: []float64{0, 0}, Masses: []float64{1, 1},
				Dims: 1, Stiffness: 1, Coupling: 0.1},
			ModelParams: ModelConfig{
				Energies: []float64{0, 0.05, 0.1},
				Delta:    0.02,
				Kappa:    [][]float64{{0.1, 0}, {0, 0.1}, {-0.1, -0.1}},
			},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
