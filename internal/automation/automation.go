package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/mmst/internal/config"
	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/experiment"
	"github.com/san-kum/mmst/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs read from YAML.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset, or the defaults when Preset is empty,
// and overlays the keys given under config using the config file schema.
type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Model  string    `yaml:"model"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
	Save   bool      `yaml:"save"`
}

type StepResult struct {
	Name   string
	RunID  string
	Config *config.Config
	Result *experiment.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrConfiguration, scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the run configuration of one step.
func (s *ScenarioStep) Resolve() (*config.Config, error) {
	model := s.Model
	if model == "" {
		model = config.DefaultModel
	}

	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(model, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q for %s (available: %v)",
				dynamo.ErrConfiguration, s.Preset, model, config.ListPresets(model))
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfiguration, err)
		}
	}
	if s.Model != "" {
		cfg.Model = s.Model
	}
	return cfg, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results gathered so far. Steps marked save are written to
// store when it is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, logger log.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "scenario", scenario.Name)
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		level.Info(logger).Log("msg", "running step", "step", name, "index", i+1, "of", len(scenario.Steps))

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		exp, err := experiment.New(cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) setup: %w", i+1, name, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) run: %w", i+1, name, err)
		}

		sr := StepResult{Name: name, Config: cfg, Result: result}
		if step.Save && store != nil {
			if sr.RunID, err = store.Save(exp.Metadata(result), result.Recording); err != nil {
				return results, fmt.Errorf("step %d (%s) save: %w", i+1, name, err)
			}
		}
		results = append(results, sr)
	}
	return results, nil
}
