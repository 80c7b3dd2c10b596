package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mmst/internal/sim"
)

const (
	historyCapacity = 240
	trailCapacity   = 400
	canvasWidth     = 22
	canvasHeight    = 11
)

type TickMsg time.Time

// Factory builds a trajectory ready to Step. The live view calls it once
// at start and again on every reset.
type Factory func() (*sim.Trajectory, error)

// Live is a bubbletea model that advances a trajectory on a timer and
// shows its populations, energy and the (q, p) orbit of one mapping
// oscillator.
type Live struct {
	name         string
	factory      Factory
	traj         *sim.Trajectory
	stepsPerTick int
	interval     time.Duration

	populations [][]float64
	energies    []float64
	trail       [][2]float64
	radius      float64
	focus       int

	canvas   *Canvas
	running  bool
	theme    int
	showHelp bool
	err      error
}

// NewLive builds the first trajectory. The returned model starts running
// on its first tick.
func NewLive(name string, factory Factory, stepsPerTick int) (*Live, error) {
	if stepsPerTick <= 0 {
		stepsPerTick = 1
	}
	m := &Live{
		name:         name,
		factory:      factory,
		stepsPerTick: stepsPerTick,
		interval:     time.Second / 30,
		canvas:       NewCanvas(canvasWidth, canvasHeight),
		running:      true,
	}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Live) reset() error {
	traj, err := m.factory()
	if err != nil {
		return err
	}
	m.traj = traj
	m.err = nil
	n := traj.Layout().NumStates
	m.populations = make([][]float64, n)
	m.energies = m.energies[:0]
	m.trail = m.trail[:0]
	m.focus = min(m.focus, n-1)

	// q_i² + p_i² never exceeds the conserved total 2(ΣP + Nγ)
	total := 0.0
	for _, p := range traj.Populations() {
		total += p
	}
	total += float64(n) * traj.Config().ZeroPoint
	m.radius = 1.05 * math.Sqrt(2*math.Max(total, 0.5))

	m.record()
	return nil
}

func (m *Live) record() {
	for i, p := range m.traj.Populations() {
		m.populations[i] = appendCapped(m.populations[i], p, historyCapacity)
	}
	m.energies = appendCapped(m.energies, m.traj.Energy(), historyCapacity)

	l := m.traj.Layout()
	x := m.traj.Snapshot()
	m.trail = append(m.trail, [2]float64{l.Q(x)[m.focus], l.P(x)[m.focus]})
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

func appendCapped(s []float64, v float64, capacity int) []float64 {
	s = append(s, v)
	if len(s) > capacity {
		s = s[1:]
	}
	return s
}

func (m *Live) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Live) Init() tea.Cmd { return m.tick() }

// Advance steps the trajectory once by stepsPerTick and records the
// result. A failed step stops the view; the trajectory keeps its last good
// state.
func (m *Live) Advance() error {
	if m.err != nil {
		return m.err
	}
	if err := m.traj.Step(m.stepsPerTick); err != nil {
		m.err = err
		m.running = false
		return err
	}
	m.record()
	return nil
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
				m.running = false
			} else {
				m.running = true
			}
		case "n":
			if !m.running && m.err == nil {
				m.Advance()
			}
		case "tab":
			m.focus = (m.focus + 1) % m.traj.Layout().NumStates
			m.trail = m.trail[:0]
		case "+", "=":
			m.stepsPerTick *= 2
		case "-":
			m.stepsPerTick = max(1, m.stepsPerTick/2)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			SetTheme(Themes[m.theme].Name)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.Advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Live) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render("FAILED")
	case m.running:
		return StatusRunning.Render("RUNNING")
	}
	return StatusPaused.Render("PAUSED")
}

func (m *Live) drawOrbit() string {
	m.canvas.Clear()
	m.canvas.Axes()
	for _, pt := range m.trail {
		m.canvas.Plot(pt[0], pt[1], m.radius)
	}
	title := Subtle.Render(fmt.Sprintf("state %d  (q, p)", m.focus))
	return title + "\n" + m.canvas.String()
}

func (m *Live) View() string {
	theme := CurrentTheme
	header := HeaderStyle.Foreground(theme.Primary).Render(strings.ToUpper(m.name)) + "  " + m.status()

	var chart string
	if len(m.energies) > 1 {
		legends := make([]string, len(m.populations))
		for i := range legends {
			legends[i] = fmt.Sprintf("P%d", i)
		}
		chart = asciigraph.PlotMany(m.populations,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(1),
			asciigraph.SeriesColors(theme.seriesColors(len(m.populations))...),
			asciigraph.SeriesLegends(legends...),
			asciigraph.Caption("populations"))
	}

	var s strings.Builder
	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Scheme", m.traj.Scheme())
	row("Time", fmt.Sprintf("%.3f", m.traj.Time()))
	row("Steps", fmt.Sprintf("%d (×%d/tick)", m.traj.Steps(), m.stepsPerTick))
	row("Energy", fmt.Sprintf("%.8f", m.traj.Energy()))
	row("Energy drift", fmt.Sprintf("%.3e", m.traj.EnergyDrift()))
	row("Action drift", fmt.Sprintf("%.3e", m.traj.ActionDrift()))
	s.WriteString(Sparkline(m.energies, 36) + "\n\n")
	for i, p := range m.traj.Populations() {
		s.WriteString(MetricLabel.Render(fmt.Sprintf("P%d", i)) + PopulationBar(p, 20) + fmt.Sprintf(" %.4f\n", p))
	}
	if m.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Error).Width(44).Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("space pause  n step  r reset  tab state  +/- speed  t theme  q quit"))

	body := lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(m.drawOrbit()), Panel.Render(s.String()))
	view := header + "\n\n" + body
	if chart != "" {
		view += "\n" + lipgloss.NewStyle().Foreground(theme.Accent).Render(chart)
	}
	if m.showHelp {
		view = helpText + "\n" + view
	}
	return view
}

const helpText = `space  pause or resume
n      single tick while paused
r      rebuild the trajectory from its initial state
tab    cycle the mapping oscillator shown in the orbit panel
+ -    double or halve steps per tick
t      cycle colour themes
q      quit`

// RunLive runs the live view until the user quits.
func RunLive(name string, factory Factory, stepsPerTick int) error {
	m, err := NewLive(name, factory, stepsPerTick)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
