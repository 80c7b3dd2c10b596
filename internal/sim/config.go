package sim

import (
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/hamiltonian"
	"github.com/san-kum/mmst/internal/integrators"
	"github.com/san-kum/mmst/internal/mapping"
)

const (
	DefaultScheme  = "verlet"
	DefaultStartup = "verlet"
)

// Config fixes everything about a trajectory except the nuclear state,
// which belongs to the engine. It is copied by New and not read again.
type Config struct {
	StepSize     float64
	Provider     hamiltonian.Provider
	NumStates    int
	InitialState int
	// Seed for sampled mapping angles. Nil means 0.
	Seed *int64

	// Scheme and Startup are integrator names as accepted by
	// integrators.New. Startup only matters for multistep schemes and
	// must be self-starting.
	Scheme  string
	Startup string

	ZeroPoint float64
	Sampling  mapping.Sampling

	Logger log.Logger
}

func (c Config) withDefaults() Config {
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.Startup == "" {
		c.Startup = DefaultStartup
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
	return c
}

// Validate reports the first problem with c as an ErrConfiguration.
func (c Config) Validate() error {
	if c.StepSize <= 0 || math.IsNaN(c.StepSize) || math.IsInf(c.StepSize, 0) {
		return fmt.Errorf("%w: step size must be positive and finite, got %g", dynamo.ErrConfiguration, c.StepSize)
	}
	if c.Provider == nil {
		return fmt.Errorf("%w: no Hamiltonian provider", dynamo.ErrConfiguration)
	}
	if c.NumStates <= 0 {
		return fmt.Errorf("%w: number of states must be positive, got %d", dynamo.ErrConfiguration, c.NumStates)
	}
	if got := c.Provider.NumStates(); got != c.NumStates {
		return fmt.Errorf("%w: provider has %d states, config has %d", dynamo.ErrConfiguration, got, c.NumStates)
	}
	if c.InitialState < 0 || c.InitialState >= c.NumStates {
		return fmt.Errorf("%w: initial state %d outside [0, %d)", dynamo.ErrConfiguration, c.InitialState, c.NumStates)
	}
	if c.ZeroPoint < 0 || math.IsNaN(c.ZeroPoint) {
		return fmt.Errorf("%w: zero-point parameter must be non-negative, got %g", dynamo.ErrConfiguration, c.ZeroPoint)
	}

	c = c.withDefaults()
	if _, err := integrators.New(c.Scheme); err != nil {
		return err
	}
	startup, err := integrators.New(c.Startup)
	if err != nil {
		return err
	}
	if _, ok := startup.(dynamo.Multistep); ok {
		return fmt.Errorf("%w: startup scheme %q is not self-starting", dynamo.ErrConfiguration, c.Startup)
	}
	return nil
}

func (c Config) seed() int64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// Seed returns a pointer to s, for Config literals.
func Seed(s int64) *int64 { return &s }
