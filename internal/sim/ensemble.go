package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/nuclear"
	"gonum.org/v1/gonum/floats"
)

// Ensemble runs independent trajectories that differ only in the mapping
// seed. Run i uses seed SeedStart+i and its own clone of the engine.
type Ensemble struct {
	cfg       Config
	engine    nuclear.Cloner
	numRuns   int
	seedStart int64
}

func NewEnsemble(cfg Config, engine nuclear.Cloner, numRuns int, seedStart int64) (*Ensemble, error) {
	if numRuns <= 0 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run, got %d", dynamo.ErrConfiguration, numRuns)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: no classical engine", dynamo.ErrConfiguration)
	}
	return &Ensemble{cfg: cfg, engine: engine, numRuns: numRuns, seedStart: seedStart}, nil
}

type EnsembleResult struct {
	Times []float64
	// Populations[k] is the ensemble-averaged population vector at Times[k].
	Populations [][]float64
	// Final holds each run's last sample, indexed by run.
	Final []Sample
}

// Run integrates every trajectory for steps steps, sampling populations
// every block steps. The context is checked between blocks. Startup steps
// of a multistep scheme count towards steps.
func (e *Ensemble) Run(ctx context.Context, steps, block int) (*EnsembleResult, error) {
	if steps < 0 || block <= 0 {
		return nil, fmt.Errorf("%w: steps=%d block=%d", dynamo.ErrConfiguration, steps, block)
	}

	samples := make([][]Sample, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			samples[idx], errs[idx] = e.runOne(ctx, idx, steps, block)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("run %d (seed %d): %w", i, e.seedStart+int64(i), err)
		}
	}
	return average(samples), nil
}

func (e *Ensemble) runOne(ctx context.Context, idx, steps, block int) ([]Sample, error) {
	cfg := e.cfg
	cfg.Seed = Seed(e.seedStart + int64(idx))

	traj, err := New(cfg, e.engine.Clone())
	if err != nil {
		return nil, err
	}
	if err := traj.Initialize(); err != nil {
		return nil, err
	}

	out := []Sample{traj.Sample()}
	done := 0
	if warm := traj.RequiredWarmup(); warm > steps {
		return nil, fmt.Errorf("%w: %s needs %d startup steps, run has %d", dynamo.ErrConfiguration, traj.Scheme(), warm, steps)
	} else if warm > 0 {
		if err := traj.Startup(); err != nil {
			return nil, err
		}
		done = warm
		out = append(out, traj.Sample())
	}
	for done < steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n := min(block, steps-done)
		if err := traj.Step(n); err != nil {
			return nil, err
		}
		done += n
		out = append(out, traj.Sample())
	}
	return out, nil
}

func average(samples [][]Sample) *EnsembleResult {
	res := &EnsembleResult{Final: make([]Sample, len(samples))}
	for i, run := range samples {
		res.Final[i] = run[len(run)-1]
	}

	first := samples[0]
	for k := range first {
		mean := make([]float64, len(first[k].Populations))
		for _, run := range samples {
			floats.Add(mean, run[k].Populations)
		}
		floats.Scale(1/float64(len(samples)), mean)
		res.Times = append(res.Times, first[k].Time)
		res.Populations = append(res.Populations, mean)
	}
	return res
}
