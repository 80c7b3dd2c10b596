package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/mmst/internal/sim"
)

type Point struct{ X, Y float64 }

// PhasePortrait is the orbit of one mapping oscillator in the (q, p) plane.
type PhasePortrait struct {
	State  int
	Points []Point
}

// GeneratePhasePortrait advances traj by steps steps one at a time,
// recording (q, p) of the given electronic state after each.
func GeneratePhasePortrait(traj *sim.Trajectory, state, steps int) (*PhasePortrait, error) {
	l := traj.Layout()
	if state < 0 || state >= l.NumStates {
		return nil, fmt.Errorf("state %d outside [0, %d)", state, l.NumStates)
	}

	portrait := &PhasePortrait{State: state, Points: make([]Point, 0, steps+1)}
	record := func() {
		x := traj.Snapshot()
		portrait.Points = append(portrait.Points, Point{X: l.Q(x)[state], Y: l.P(x)[state]})
	}

	record()
	for i := 0; i < steps; i++ {
		if err := traj.Step(1); err != nil {
			return portrait, err
		}
		record()
	}
	return portrait, nil
}

// ToASCII renders the portrait on a width×height character grid with the
// axes drawn where they are visible.
func (p *PhasePortrait) ToASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	pad := func(lo, hi float64) (float64, float64) {
		r := hi - lo
		if r == 0 {
			r = 1
		}
		return lo - 0.1*r, hi + 0.1*r
	}
	minX, maxX = pad(minX, maxX)
	minY, maxY = pad(minY, maxY)

	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}
	for _, pt := range p.Points {
		canvas[row(pt.Y)][col(pt.X)] = '•'
	}

	var sb strings.Builder
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}
