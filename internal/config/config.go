package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel     = "rabi"
	DefaultScheme    = "verlet"
	DefaultStartup   = "verlet"
	DefaultDt        = 0.05
	DefaultSteps     = 2000
	DefaultDelta     = 0.1
	DefaultMass      = 1.0
	DefaultStiffness = 1.0
	DefaultEvery     = 10
)

type Config struct {
	Model        string  `yaml:"model"`
	Scheme       string  `yaml:"scheme"`
	Startup      string  `yaml:"startup"`
	Dt           float64 `yaml:"dt"`
	Steps        int     `yaml:"steps"`
	Seed         int64   `yaml:"seed"`
	InitialState int     `yaml:"initial_state"`
	ZeroPoint    float64 `yaml:"zero_point"`
	Sampling     string  `yaml:"sampling"`
	RecordEvery  int     `yaml:"record_every"`

	Nuclear     NuclearConfig `yaml:"nuclear"`
	ModelParams ModelConfig   `yaml:"model_params"`
}

// NuclearConfig describes the classical engine and its initial state.
// Positions and velocities are flattened, Dims entries per particle.
type NuclearConfig struct {
	Engine     string    `yaml:"engine"`
	Positions  []float64 `yaml:"positions,omitempty"`
	Velocities []float64 `yaml:"velocities,omitempty"`
	Masses     []float64 `yaml:"masses,omitempty"`
	Dims       int       `yaml:"dims"`
	Stiffness  float64   `yaml:"stiffness"`
	Coupling   float64   `yaml:"coupling"`
}

// ModelConfig holds the parameters of the model Hamiltonians. Each model
// reads only the fields it needs.
type ModelConfig struct {
	E0       float64     `yaml:"e0"`
	E1       float64     `yaml:"e1"`
	Delta    float64     `yaml:"delta"`
	Epsilon  float64     `yaml:"epsilon"`
	Bath     []float64   `yaml:"bath,omitempty"`
	Energies []float64   `yaml:"energies,omitempty"`
	Kappa    [][]float64 `yaml:"kappa,omitempty"`
	Domain   float64     `yaml:"domain"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:       DefaultModel,
		Scheme:      DefaultScheme,
		Startup:     DefaultStartup,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		Sampling:    "focused",
		RecordEvery: DefaultEvery,
		Nuclear: NuclearConfig{
			Engine:     "free",
			Positions:  []float64{0},
			Velocities: []float64{0},
			Masses:     []float64{DefaultMass},
			Dims:       1,
			Stiffness:  DefaultStiffness,
		},
		ModelParams: ModelConfig{
			Delta: DefaultDelta,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Duration is the simulated time covered by Steps.
func (c *Config) Duration() float64 {
	return float64(c.Steps) * c.Dt
}

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	out.Nuclear.Positions = append([]float64(nil), c.Nuclear.Positions...)
	out.Nuclear.Velocities = append([]float64(nil), c.Nuclear.Velocities...)
	out.Nuclear.Masses = append([]float64(nil), c.Nuclear.Masses...)
	out.ModelParams.Bath = append([]float64(nil), c.ModelParams.Bath...)
	out.ModelParams.Energies = append([]float64(nil), c.ModelParams.Energies...)
	if c.ModelParams.Kappa != nil {
		out.ModelParams.Kappa = make([][]float64, len(c.ModelParams.Kappa))
		for i, row := range c.ModelParams.Kappa {
			out.ModelParams.Kappa[i] = append([]float64(nil), row...)
		}
	}
	return &out
}
