package integrators

import (
	"fmt"

	"github.com/san-kum/mmst/internal/dynamo"
)

// HistoryDepth is the number of derivative samples Gear6 needs before its
// first step.
const HistoryDepth = 5

// gearOrder is the number of Nordsieck rows: the state and five scaled
// derivatives y_j = dt^j x^(j) / j!.
const gearOrder = 6

// Corrector weights of the six-value Gear method for first-order equations.
var gearCorrector = [gearOrder]float64{
	95.0 / 288.0,
	1.0,
	25.0 / 24.0,
	35.0 / 72.0,
	5.0 / 48.0,
	1.0 / 120.0,
}

// pascal[j][k] = C(k, j), the Taylor predictor.
var pascal = [gearOrder][gearOrder]float64{
	{1, 1, 1, 1, 1, 1},
	{0, 1, 2, 3, 4, 5},
	{0, 0, 1, 3, 6, 10},
	{0, 0, 0, 1, 4, 10},
	{0, 0, 0, 0, 1, 5},
	{0, 0, 0, 0, 0, 1},
}

// Gear6 is a sixth-order Gear predictor-corrector. It is not self-starting:
// Record must be called with HistoryDepth derivative samples taken one
// step apart (oldest first) before Advance. The samples are kept in a ring
// buffer and converted to a Nordsieck array on the first Advance; from then
// on the array is the history.
type Gear6 struct {
	ring  [HistoryDepth]dynamo.State
	head  int
	count int

	y     [gearOrder]dynamo.State
	built bool
	dt    float64
}

func NewGear6() *Gear6 {
	return &Gear6{}
}

func (g *Gear6) Name() string { return "gear6" }
func (g *Gear6) Order() int   { return 6 }

func (g *Gear6) Required() int { return HistoryDepth }

func (g *Gear6) Recorded() int {
	if g.built {
		return HistoryDepth
	}
	return g.count
}

func (g *Gear6) Ready() bool { return g.built || g.count >= HistoryDepth }

// Record stores the derivative at x as the newest history sample. It is a
// no-op once the Nordsieck array has been built.
func (g *Gear6) Record(dyn dynamo.System, x dynamo.State, t float64) error {
	if g.built {
		return nil
	}
	f, err := dyn.Derive(x, t)
	if err != nil {
		return err
	}
	g.ring[g.head] = f.Clone()
	g.head = (g.head + 1) % HistoryDepth
	if g.count < HistoryDepth {
		g.count++
	}
	return nil
}

// sample returns the derivative recorded back steps before the newest.
func (g *Gear6) sample(back int) dynamo.State {
	return g.ring[(g.head-1-back+2*HistoryDepth)%HistoryDepth]
}

func (g *Gear6) Reset() {
	*g = Gear6{}
}

// build converts the derivative history into Nordsieck form using backward
// differences of the interpolating polynomial through the five samples.
func (g *Gear6) build(x dynamo.State, dt float64) {
	n := len(x)
	for j := range g.y {
		g.y[j] = make(dynamo.State, n)
	}
	copy(g.y[0], x)

	f0, f1, f2, f3, f4 := g.sample(0), g.sample(1), g.sample(2), g.sample(3), g.sample(4)
	for i := 0; i < n; i++ {
		d1 := f0[i] - f1[i]
		d2 := f0[i] - 2*f1[i] + f2[i]
		d3 := f0[i] - 3*f1[i] + 3*f2[i] - f3[i]
		d4 := f0[i] - 4*f1[i] + 6*f2[i] - 4*f3[i] + f4[i]

		// s-derivatives of the Newton backward polynomial at s = 0
		p1 := d1 + d2/2 + d3/3 + d4/4
		p2 := d2 + d3 + 11.0/12.0*d4
		p3 := d3 + 1.5*d4
		p4 := d4

		g.y[1][i] = dt * f0[i]
		g.y[2][i] = dt * p1 / 2
		g.y[3][i] = dt * p2 / 6
		g.y[4][i] = dt * p3 / 24
		g.y[5][i] = dt * p4 / 120
	}
	g.built = true
	g.dt = dt
}

func (g *Gear6) Advance(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if !g.Ready() {
		return nil, fmt.Errorf("%w: gear6 has %d of %d derivative samples", dynamo.ErrPredictorHistory, g.count, HistoryDepth)
	}
	if !g.built {
		g.build(x, dt)
	} else if dt != g.dt {
		return nil, fmt.Errorf("%w: gear6 history built for dt=%g, got dt=%g", dynamo.ErrConfiguration, g.dt, dt)
	} else if len(x) != len(g.y[0]) {
		return nil, fmt.Errorf("%w: gear6 history has %d components, state has %d", dynamo.ErrDimensionMismatch, len(g.y[0]), len(x))
	}

	n := len(x)
	var pred [gearOrder]dynamo.State
	for j := range pred {
		pred[j] = make(dynamo.State, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < gearOrder; j++ {
			sum := 0.0
			for k := j; k < gearOrder; k++ {
				row := g.y[k][i]
				if k == 0 {
					row = x[i]
				}
				sum += pascal[j][k] * row
			}
			pred[j][i] = sum
		}
	}

	f, err := dyn.Derive(pred[0], t+dt)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		delta := dt*f[i] - pred[1][i]
		for j := 0; j < gearOrder; j++ {
			pred[j][i] += gearCorrector[j] * delta
		}
	}
	if !pred[0].IsValid() {
		return nil, fmt.Errorf("%w: gear6 corrector", dynamo.ErrNumericalInstability)
	}

	g.y = pred
	return pred[0].Clone(), nil
}

type gear6Memento struct {
	ring  [HistoryDepth]dynamo.State
	head  int
	count int
	y     [gearOrder]dynamo.State
	built bool
	dt    float64
}

func (g *Gear6) Save() dynamo.Memento {
	m := &gear6Memento{head: g.head, count: g.count, built: g.built, dt: g.dt}
	for i, s := range g.ring {
		if s != nil {
			m.ring[i] = s.Clone()
		}
	}
	for j, s := range g.y {
		if s != nil {
			m.y[j] = s.Clone()
		}
	}
	return m
}

func (g *Gear6) Restore(m dynamo.Memento) {
	saved, ok := m.(*gear6Memento)
	if !ok {
		return
	}
	g.head, g.count, g.built, g.dt = saved.head, saved.count, saved.built, saved.dt
	for i, s := range saved.ring {
		g.ring[i] = nil
		if s != nil {
			g.ring[i] = s.Clone()
		}
	}
	for j, s := range saved.y {
		g.y[j] = nil
		if s != nil {
			g.y[j] = s.Clone()
		}
	}
}
