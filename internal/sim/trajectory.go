package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/integrators"
	"github.com/san-kum/mmst/internal/mapping"
	"github.com/san-kum/mmst/internal/nuclear"
)

type Phase int

const (
	Uninitialized Phase = iota
	Initialized
	Running
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Sample is the observable state of a trajectory after a committed step.
type Sample struct {
	Time        float64
	Step        int
	Energy      float64
	Populations []float64
	Positions   []float64
	Velocities  []float64
}

type Observer interface {
	OnStep(s Sample)
}

// Trajectory integrates one MMST trajectory with a fixed scheme and step
// size. It owns the mapping state and the scheme history; the nuclear
// state belongs to the engine and is written back only after a Step call
// has fully succeeded.
type Trajectory struct {
	cfg     Config
	engine  nuclear.Engine
	sys     *Coupled
	scheme  dynamo.Scheme
	startup dynamo.Scheme
	multi   dynamo.Multistep
	logger  log.Logger

	phase   Phase
	x       dynamo.State
	mapping *mapping.State
	steps   int

	// multiActive is set once the multistep scheme has advanced the
	// trajectory itself.
	multiActive bool

	energy0, energy float64
	action0         float64

	observers []Observer
}

func New(cfg Config, engine nuclear.Engine) (*Trajectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: no classical engine", dynamo.ErrConfiguration)
	}
	cfg = cfg.withDefaults()

	masses := engine.Masses()
	if len(masses) == 0 {
		return nil, fmt.Errorf("%w: engine has no nuclear coordinates", dynamo.ErrConfiguration)
	}
	for i, m := range masses {
		if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("%w: mass %d is %g", dynamo.ErrConfiguration, i, m)
		}
	}
	if n, v := len(engine.Positions()), len(engine.Velocities()); n != len(masses) || v != len(masses) {
		return nil, fmt.Errorf("%w: engine has %d positions, %d velocities and %d masses",
			dynamo.ErrDimensionMismatch, n, v, len(masses))
	}

	scheme, err := integrators.New(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	startup, err := integrators.New(cfg.Startup)
	if err != nil {
		return nil, err
	}
	multi, _ := scheme.(dynamo.Multistep)

	t := &Trajectory{
		cfg:     cfg,
		engine:  engine,
		sys:     NewCoupled(engine, cfg.Provider, cfg.ZeroPoint),
		scheme:  scheme,
		startup: startup,
		multi:   multi,
		logger:  log.With(cfg.Logger, "scheme", scheme.Name()),
	}
	level.Debug(t.logger).Log("msg", "trajectory created", "dt", cfg.StepSize, "states", cfg.NumStates, "dof", len(masses))
	return t, nil
}

// Initialize builds the mapping state, snapshots the engine's nuclear
// state and records the reference energy. Calling it again restarts the
// trajectory from the engine's current state.
func (t *Trajectory) Initialize() error {
	m, err := mapping.Initialize(t.cfg.NumStates, t.cfg.InitialState, t.cfg.seed(), mapping.Options{
		ZeroPoint: t.cfg.ZeroPoint,
		Sampling:  t.cfg.Sampling,
	})
	if err != nil {
		return err
	}

	l := t.sys.Layout()
	x := l.Pack(t.engine.Positions(), t.engine.Velocities(), m.Q, m.P)
	t.sys.Forget()
	energy, err := t.sys.Energy(x)
	if err != nil {
		level.Error(t.logger).Log("msg", "initial evaluation failed", "err", err)
		return err
	}

	t.x = x
	t.mapping = m
	t.steps = 0
	t.energy0, t.energy = energy, energy
	t.action0 = m.TotalPopulation()
	if t.multi != nil {
		t.multi.Reset()
	}
	t.multiActive = false
	t.phase = Initialized

	level.Debug(t.logger).Log("msg", "trajectory initialized", "energy", energy, "sampling", t.cfg.Sampling, "seed", t.cfg.seed())
	return nil
}

// Step advances the trajectory by n steps. On any error the engine and
// the mapping state keep their values from before the call.
func (t *Trajectory) Step(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative step count %d", dynamo.ErrConfiguration, n)
	}
	if t.phase == Uninitialized {
		return dynamo.ErrNotInitialized
	}
	if n == 0 {
		return nil
	}
	if err := t.sync(); err != nil {
		return err
	}
	if t.multi != nil && !t.multi.Ready() {
		return &dynamo.StepError{
			Step:   t.steps + 1,
			Time:   t.Time(),
			Scheme: t.scheme.Name(),
			Wrapped: fmt.Errorf("%w: %d of %d history samples, call Startup first",
				dynamo.ErrPredictorHistory, t.multi.Recorded(), t.multi.Required()),
		}
	}
	return t.run(t.scheme, n, false)
}

// RequiredWarmup is the number of startup steps still needed before Step
// can be used. It is zero for self-starting schemes.
func (t *Trajectory) RequiredWarmup() int {
	if t.multi == nil || t.multi.Ready() {
		return 0
	}
	return t.multi.Required() - t.multi.Recorded()
}

// Startup runs the startup scheme until the multistep history is full.
// It is a no-op for self-starting schemes.
func (t *Trajectory) Startup() error {
	return t.Warmup(t.RequiredWarmup())
}

// Warmup advances n steps with the startup scheme, recording each new
// point into the multistep history. Only the newest points are kept once
// the history is full.
func (t *Trajectory) Warmup(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative warm-up count %d", dynamo.ErrConfiguration, n)
	}
	if t.phase == Uninitialized {
		return dynamo.ErrNotInitialized
	}
	if n == 0 {
		return nil
	}
	if err := t.sync(); err != nil {
		return err
	}
	level.Debug(t.logger).Log("msg", "warm-up", "startup", t.startup.Name(), "steps", n)
	return t.run(t.startup, n, t.multi != nil)
}

// sync picks up nuclear state written into the engine by someone else.
// A multistep history built on the old state is discarded.
func (t *Trajectory) sync() error {
	l := t.sys.Layout()
	pos, vel := t.engine.Positions(), t.engine.Velocities()
	if dynamo.State(pos).Equal(l.Positions(t.x)) && dynamo.State(vel).Equal(l.Velocities(t.x)) {
		return nil
	}

	x := l.Pack(pos, vel, l.Q(t.x), l.P(t.x))
	t.sys.Forget()
	energy, err := t.sys.Energy(x)
	if err != nil {
		return err
	}
	t.x = x
	t.energy0, t.energy = energy, energy
	level.Info(t.logger).Log("msg", "nuclear state changed outside the trajectory", "energy", energy)

	if t.multi != nil && t.multi.Recorded() > 0 {
		t.multi.Reset()
		t.multiActive = false
		return fmt.Errorf("%w: nuclear state changed outside the trajectory, history discarded", dynamo.ErrPredictorHistory)
	}
	return nil
}

func (t *Trajectory) run(scheme dynamo.Scheme, n int, record bool) error {
	var saved dynamo.Memento
	if t.multi != nil {
		saved = t.multi.Save()
		// warm-up after the scheme has taken its own steps starts a fresh history
		if record && t.multiActive {
			t.multi.Reset()
		}
	}
	fail := func(step int, time float64, err error) error {
		if t.multi != nil {
			t.multi.Restore(saved)
		}
		t.sys.Forget()
		level.Error(t.logger).Log("msg", "step failed", "step", step, "t", time, "err", err)
		return &dynamo.StepError{Step: step, Time: time, Scheme: scheme.Name(), Wrapped: err}
	}

	dt := t.cfg.StepSize
	x := t.x.Clone()
	for i := 0; i < n; i++ {
		step := t.steps + i + 1
		time := float64(step-1) * dt

		t.sys.Forget()
		next, err := scheme.Advance(t.sys, x, time, dt)
		if err == nil && record {
			err = t.multi.Record(t.sys, next, time+dt)
		}
		if err != nil {
			return fail(step, time, err)
		}
		x = next
	}

	energy, err := t.sys.Energy(x)
	if err != nil {
		return fail(t.steps+n, float64(t.steps+n)*dt, err)
	}
	if err := t.commit(scheme, x, n, energy); err != nil {
		return fail(t.steps+n, float64(t.steps+n)*dt, err)
	}
	return nil
}

func (t *Trajectory) commit(scheme dynamo.Scheme, x dynamo.State, n int, energy float64) error {
	l := t.sys.Layout()
	oldPos := t.engine.Positions()
	if err := t.engine.SetPositions(l.Positions(x)); err != nil {
		return err
	}
	if err := t.engine.SetVelocities(l.Velocities(x)); err != nil {
		if rerr := t.engine.SetPositions(oldPos); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return err
	}

	t.x = x
	copy(t.mapping.Q, l.Q(x))
	copy(t.mapping.P, l.P(x))
	t.steps += n
	t.energy = energy
	t.phase = Running
	if t.multi != nil {
		t.multiActive = scheme == t.scheme
	}

	if len(t.observers) > 0 {
		s := t.Sample()
		for _, o := range t.observers {
			o.OnStep(s)
		}
	}
	return nil
}

func (t *Trajectory) AddObserver(o Observer) { t.observers = append(t.observers, o) }

func (t *Trajectory) Phase() Phase          { return t.phase }
func (t *Trajectory) Config() Config        { return t.cfg }
func (t *Trajectory) Scheme() string        { return t.scheme.Name() }
func (t *Trajectory) Steps() int            { return t.steps }
func (t *Trajectory) Time() float64         { return float64(t.steps) * t.cfg.StepSize }
func (t *Trajectory) Energy() float64       { return t.energy }
func (t *Trajectory) Evaluations() int      { return t.sys.Evaluations() }
func (t *Trajectory) Layout() dynamo.Layout { return t.sys.Layout() }

// EnergyDrift is |E - E0| / |E0|, or the absolute drift when E0 is zero.
func (t *Trajectory) EnergyDrift() float64 {
	d := math.Abs(t.energy - t.energy0)
	if t.energy0 != 0 {
		d /= math.Abs(t.energy0)
	}
	return d
}

// ActionDrift is the change of the total mapping population since
// Initialize. It is conserved exactly by the dynamics.
func (t *Trajectory) ActionDrift() float64 {
	if t.mapping == nil {
		return 0
	}
	return math.Abs(t.mapping.TotalPopulation() - t.action0)
}

func (t *Trajectory) Populations() []float64 {
	if t.mapping == nil {
		return nil
	}
	return t.mapping.Populations()
}

// Mapping returns a copy of the mapping state.
func (t *Trajectory) Mapping() *mapping.State {
	if t.mapping == nil {
		return nil
	}
	return t.mapping.Clone()
}

// Snapshot returns a copy of the committed phase vector [R | v | q | p].
func (t *Trajectory) Snapshot() dynamo.State {
	return t.x.Clone()
}

func (t *Trajectory) Sample() Sample {
	l := t.sys.Layout()
	s := Sample{
		Time:        t.Time(),
		Step:        t.steps,
		Energy:      t.energy,
		Populations: t.Populations(),
	}
	if t.x != nil {
		s.Positions = append([]float64(nil), l.Positions(t.x)...)
		s.Velocities = append([]float64(nil), l.Velocities(t.x)...)
	}
	return s
}
