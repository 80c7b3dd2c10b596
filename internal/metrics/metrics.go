package metrics

import "github.com/san-kum/mmst/internal/sim"

// Metric accumulates a scalar over the samples a trajectory emits.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Default returns the metrics recorded for every run.
func Default() []Metric {
	return []Metric{
		NewEnergyDrift(),
		NewMeanEnergy(),
		NewActionDrift(),
		NewStability(DefaultBound),
	}
}

// Collect returns the current value of every metric by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
