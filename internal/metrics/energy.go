package metrics

import (
	"math"

	"github.com/san-kum/mmst/internal/sim"
)

// MeanEnergy is the time average of the total energy over the samples.
type MeanEnergy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewMeanEnergy() *MeanEnergy {
	return &MeanEnergy{name: "mean_energy"}
}

func (e *MeanEnergy) Name() string { return e.name }

func (e *MeanEnergy) OnStep(s sim.Sample) {
	e.totalEnergy += s.Energy
	e.samples++
}

func (e *MeanEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *MeanEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation of the total energy from
// the first sample seen.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) OnStep(s sim.Sample) {
	if e.samples == 0 {
		e.initialEnergy = s.Energy
	}
	e.samples++

	drift := math.Abs(s.Energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// ActionDrift is the largest deviation of the total mapping population
// from the first sample seen.
type ActionDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewActionDrift() *ActionDrift {
	return &ActionDrift{name: "action_drift"}
}

func (a *ActionDrift) Name() string { return a.name }

func (a *ActionDrift) OnStep(s sim.Sample) {
	total := 0.0
	for _, p := range s.Populations {
		total += p
	}
	if a.samples == 0 {
		a.initial = total
	}
	a.samples++
	a.maxDrift = math.Max(a.maxDrift, math.Abs(total-a.initial))
}

func (a *ActionDrift) Value() float64 { return a.maxDrift }

func (a *ActionDrift) Reset() {
	a.initial = 0
	a.maxDrift = 0
	a.samples = 0
}
