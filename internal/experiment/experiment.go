package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/mmst/internal/config"
	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/integrators"
	"github.com/san-kum/mmst/internal/mapping"
	"github.com/san-kum/mmst/internal/metrics"
	"github.com/san-kum/mmst/internal/nuclear"
	"github.com/san-kum/mmst/internal/sim"
	"github.com/san-kum/mmst/internal/storage"
)

// Experiment wires a config file into a trajectory with the default
// metrics and a recorder attached.
type Experiment struct {
	cfg      *config.Config
	simCfg   sim.Config
	template nuclear.Cloner
	traj     *sim.Trajectory
	recorder *storage.Recorder
	metrics  []metrics.Metric
	logger   log.Logger
}

type Result struct {
	Recording *storage.Recording
	Metrics   map[string]float64
	Steps     int
	Time      float64
	Elapsed   time.Duration
}

// Build turns cfg into a sim.Config and a fresh engine.
func Build(cfg *config.Config, logger log.Logger) (sim.Config, nuclear.Cloner, error) {
	reg := NewRegistry()
	engine, err := reg.Engine(cfg)
	if err != nil {
		return sim.Config{}, nil, err
	}
	provider, err := reg.Provider(cfg, len(engine.Masses()))
	if err != nil {
		return sim.Config{}, nil, err
	}
	sampling, err := mapping.ParseSampling(cfg.Sampling)
	if err != nil {
		return sim.Config{}, nil, err
	}

	return sim.Config{
		StepSize:     cfg.Dt,
		Provider:     provider,
		NumStates:    provider.NumStates(),
		InitialState: cfg.InitialState,
		Seed:         sim.Seed(cfg.Seed),
		Scheme:       cfg.Scheme,
		Startup:      cfg.Startup,
		ZeroPoint:    cfg.ZeroPoint,
		Sampling:     sampling,
		Logger:       logger,
	}, engine, nil
}

func New(cfg *config.Config, logger log.Logger) (*Experiment, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.Steps < 0 {
		return nil, fmt.Errorf("%w: negative step count %d", dynamo.ErrConfiguration, cfg.Steps)
	}
	simCfg, engine, err := Build(cfg, log.With(logger, "model", cfg.Model))
	if err != nil {
		return nil, err
	}
	traj, err := sim.New(simCfg, engine)
	if err != nil {
		return nil, err
	}

	template, ok := engine.Clone().(nuclear.Cloner)
	if !ok {
		return nil, fmt.Errorf("%w: engine %T cannot be cloned", dynamo.ErrConfiguration, engine)
	}

	e := &Experiment{
		cfg:      cfg,
		simCfg:   simCfg,
		template: template,
		traj:     traj,
		recorder: storage.NewRecorder(1),
		metrics:  metrics.Default(),
		logger:   logger,
	}
	traj.AddObserver(e.recorder)
	for _, m := range e.metrics {
		traj.AddObserver(m)
	}
	return e, nil
}

func (e *Experiment) Trajectory() *sim.Trajectory { return e.traj }

func (e *Experiment) AddObserver(o sim.Observer) { e.traj.AddObserver(o) }

// Run initializes the trajectory and integrates cfg.Steps steps in blocks
// of cfg.RecordEvery, recording one sample per block. Startup steps of a
// multistep scheme count towards cfg.Steps and are recorded as one extra
// sample, so cfg.Steps must cover the whole startup phase.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := e.traj.Initialize(); err != nil {
		return nil, err
	}
	if warm := e.traj.RequiredWarmup(); e.cfg.Steps < warm {
		return nil, fmt.Errorf("%w: %s needs %d startup steps, run has %d",
			dynamo.ErrConfiguration, e.traj.Scheme(), warm, e.cfg.Steps)
	}
	for _, m := range e.metrics {
		m.Reset()
	}
	e.observe(e.traj.Sample())

	if err := e.traj.Startup(); err != nil {
		return nil, err
	}

	block := max(e.cfg.RecordEvery, 1)
	for e.traj.Steps() < e.cfg.Steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		// keep samples on multiples of block after a startup phase
		n := block - e.traj.Steps()%block
		if err := e.traj.Step(min(n, e.cfg.Steps-e.traj.Steps())); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Recording: e.recorder.Recording(),
		Metrics:   metrics.Collect(e.metrics),
		Steps:     e.traj.Steps(),
		Time:      e.traj.Time(),
		Elapsed:   time.Since(start),
	}
	level.Info(e.logger).Log("msg", "run complete", "model", e.cfg.Model, "scheme", e.traj.Scheme(),
		"steps", res.Steps, "energy_drift", res.Metrics["energy_drift"], "elapsed", res.Elapsed)
	return res, nil
}

// observe feeds a sample taken outside Step to the recorder and metrics.
func (e *Experiment) observe(s sim.Sample) {
	e.recorder.OnStep(s)
	for _, m := range e.metrics {
		m.OnStep(s)
	}
}

// Metadata describes the run for storage.
func (e *Experiment) Metadata(result *Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Model:        e.cfg.Model,
		Seed:         e.cfg.Seed,
		Dt:           e.simCfg.StepSize,
		Scheme:       e.traj.Scheme(),
		NumStates:    e.simCfg.NumStates,
		InitialState: e.simCfg.InitialState,
		ZeroPoint:    e.simCfg.ZeroPoint,
		Sampling:     e.simCfg.Sampling.String(),
	}
	if !integrators.SelfStarting(meta.Scheme) {
		meta.Startup = e.simCfg.Startup
	}
	if result != nil {
		meta.Steps = result.Steps
		meta.Metrics = result.Metrics
	}
	return meta
}

// Ensemble builds an ensemble over seeds cfg.Seed, cfg.Seed+1, ... starting
// from the configured nuclear state.
func (e *Experiment) Ensemble(runs int) (*sim.Ensemble, error) {
	return sim.NewEnsemble(e.simCfg, e.template, runs, e.cfg.Seed)
}
