package metrics

import (
	"math"

	"github.com/san-kum/mmst/internal/sim"
)

// DefaultBound is the coordinate magnitude past which a sample counts as
// escaped.
const DefaultBound = 1e3

// Stability is the fraction of samples whose nuclear coordinates and
// populations stayed finite and within bound.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) OnStep(sample sim.Sample) {
	s.samples++
	for _, vals := range [][]float64{sample.Positions, sample.Populations} {
		for _, val := range vals {
			if math.IsNaN(val) || math.Abs(val) > s.threshold {
				s.violations++
				return
			}
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
