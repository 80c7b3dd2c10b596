package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/mmst/internal/config"
	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/experiment"
)

// Setter writes one swept value into a config.
type Setter func(cfg *config.Config, v float64)

// Params lists the config values a grid can sweep.
var Params = map[string]Setter{
	"dt":         func(c *config.Config, v float64) { c.Dt = v },
	"zero_point": func(c *config.Config, v float64) { c.ZeroPoint = v },
	"e0":         func(c *config.Config, v float64) { c.ModelParams.E0 = v },
	"e1":         func(c *config.Config, v float64) { c.ModelParams.E1 = v },
	"delta":      func(c *config.Config, v float64) { c.ModelParams.Delta = v },
	"epsilon":    func(c *config.Config, v float64) { c.ModelParams.Epsilon = v },
	"stiffness":  func(c *config.Config, v float64) { c.Nuclear.Stiffness = v },
}

func ParamNames() []string {
	names := make([]string, 0, len(Params))
	for k := range Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Evaluation is one grid point. Err is set when the run failed, which for
// large step sizes is an expected outcome rather than a search failure.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// GridSearch runs one experiment per point of the Cartesian product of
// its ranges and keeps the point with the smallest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// FixedTime rescales Steps at every point so the simulated time stays
	// that of the base config.
	FixedTime bool
	Logger    log.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameters with %d ranges", dynamo.ErrConfiguration, len(params), len(ranges))
	}
	for i, p := range params {
		if _, ok := Params[p]; !ok {
			return nil, fmt.Errorf("%w: unknown parameter %q (available: %v)", dynamo.ErrConfiguration, p, ParamNames())
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("%w: empty range for %q", dynamo.ErrConfiguration, p)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Search evaluates every grid point on a copy of base and returns the best
// evaluation and all of them in grid order.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (Evaluation, []Evaluation, error) {
	logger := g.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	var all []Evaluation
	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(params map[string]float64) error {
		ev := g.evaluate(ctx, base, params, metricName, logger)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		all = append(all, ev)
		return nil
	})
	if err != nil {
		return Evaluation{}, all, err
	}

	best := -1
	for i, ev := range all {
		if ev.Err == nil && (best < 0 || ev.Value < all[best].Value) {
			best = i
		}
	}
	if best < 0 {
		return Evaluation{}, all, fmt.Errorf("all %d grid points failed, first: %w", len(all), all[0].Err)
	}
	return all[best], all, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64,
	metricName string, logger log.Logger) Evaluation {
	ev := Evaluation{Params: params, Value: math.Inf(1)}

	cfg := base.Clone()
	for name, v := range params {
		Params[name](cfg, v)
	}
	if g.FixedTime && cfg.Dt > 0 {
		cfg.Steps = int(math.Round(base.Duration() / cfg.Dt))
		cfg.RecordEvery = max(1, int(math.Round(float64(base.RecordEvery)*base.Dt/cfg.Dt)))
	}

	exp, err := experiment.New(cfg, logger)
	if err != nil {
		ev.Err = err
		return ev
	}
	res, err := exp.Run(ctx)
	if err != nil {
		ev.Err = err
		level.Debug(logger).Log("msg", "grid point failed", "params", fmt.Sprint(params), "err", err)
		return ev
	}
	v, ok := res.Metrics[metricName]
	if !ok {
		ev.Err = fmt.Errorf("%w: no metric %q", dynamo.ErrConfiguration, metricName)
		return ev
	}
	ev.Value = v
	level.Debug(logger).Log("msg", "grid point", "params", fmt.Sprint(params), metricName, v)
	return ev
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64,
	visit func(map[string]float64) error) error {
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
