package viz

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/mmst/internal/hamiltonian"
	"github.com/san-kum/mmst/internal/nuclear"
	"github.com/san-kum/mmst/internal/sim"
	"github.com/san-kum/mmst/internal/storage"
)

func rabiFactory(scheme string) Factory {
	return func() (*sim.Trajectory, error) {
		state, err := nuclear.NewState([]float64{0}, []float64{0}, []float64{1}, 1)
		if err != nil {
			return nil, err
		}
		traj, err := sim.New(sim.Config{
			StepSize:  0.05,
			Provider:  hamiltonian.NewConstant(hamiltonian.TwoLevel(0, 0, 0.1)),
			NumStates: 2,
			Scheme:    scheme,
		}, nuclear.NewFree(state))
		if err != nil {
			return nil, err
		}
		if err := traj.Initialize(); err != nil {
			return nil, err
		}
		return traj, traj.Startup()
	}
}

func recording(t *testing.T, steps int) *storage.Recording {
	t.Helper()
	traj, err := rabiFactory("verlet")()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	rec := storage.NewRecorder(1)
	rec.OnStep(traj.Sample())
	traj.AddObserver(rec)
	for i := 0; i < steps; i++ {
		if err := traj.Step(1); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	return rec.Recording()
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLive_AdvanceAndReset(t *testing.T) {
	m, err := NewLive("rabi", rabiFactory("gear6"), 4)
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	startSteps := m.traj.Steps()

	for i := 0; i < 3; i++ {
		if err := m.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := m.traj.Steps() - startSteps; got != 12 {
		t.Errorf("expected 12 steps after three ticks, got %d", got)
	}
	if len(m.energies) != 4 || len(m.populations[0]) != 4 || len(m.trail) != 4 {
		t.Errorf("expected 4 recorded points, got %d energies, %d populations, %d trail",
			len(m.energies), len(m.populations[0]), len(m.trail))
	}

	m.Update(key("r"))
	if m.traj.Steps() != startSteps || len(m.energies) != 1 {
		t.Errorf("reset should rebuild the trajectory, got %d steps and %d energies", m.traj.Steps(), len(m.energies))
	}
}

func TestLive_Keys(t *testing.T) {
	m, err := NewLive("rabi", rabiFactory("verlet"), 1)
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}

	m.Update(key(" "))
	if m.running {
		t.Fatal("space should pause")
	}
	m.Update(TickMsg{})
	if m.traj.Steps() != 0 {
		t.Errorf("paused model stepped on tick")
	}
	m.Update(key("n"))
	if m.traj.Steps() != 1 {
		t.Errorf("n should advance one tick while paused, got %d steps", m.traj.Steps())
	}

	m.Update(key("+"))
	m.Update(key("+"))
	m.Update(key("-"))
	if m.stepsPerTick != 2 {
		t.Errorf("expected 2 steps per tick, got %d", m.stepsPerTick)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != 1 || len(m.trail) != 0 {
		t.Errorf("tab should move focus to state 1 and clear the trail, focus %d trail %d", m.focus, len(m.trail))
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("q should return a quit command")
	}
}

func TestLive_View(t *testing.T) {
	m, err := NewLive("rabi", rabiFactory("rk4"), 5)
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	for i := 0; i < 5; i++ {
		m.Advance()
	}
	view := m.View()
	for _, want := range []string{"RABI", "RUNNING", "rk4", "Energy drift", "P0", "P1", "populations"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLive_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLive("x", func() (*sim.Trajectory, error) { return nil, boom }, 1)
	if !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
}

func TestCanvas_Plot(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Plot(-1, 1, 1)
	c.Plot(1, -1, 1)
	c.Plot(5, 5, 1)

	if c.Grid[0][0] == brailleBlank {
		t.Error("top-left dot not set")
	}
	if c.Grid[1][3] == brailleBlank {
		t.Error("bottom-right dot not set")
	}
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 rows, got %d", len(lines))
	}

	c.Clear()
	for _, row := range c.Grid {
		for _, r := range row {
			if r != brailleBlank {
				t.Fatal("Clear left dots set")
			}
		}
	}
}

func TestCharts(t *testing.T) {
	rec := recording(t, 50)

	pop, err := PopulationChart(rec, 40, 8)
	if err != nil {
		t.Fatalf("population chart: %v", err)
	}
	if !strings.Contains(pop, "P0") || !strings.Contains(pop, "P1") {
		t.Error("population chart should carry a legend per state")
	}
	if _, err := EnergyChart(rec, 40, 8); err != nil {
		t.Errorf("energy chart: %v", err)
	}

	if _, err := PopulationChart(&storage.Recording{}, 40, 8); err == nil {
		t.Error("expected an error for an empty recording")
	}
}

func TestPNG(t *testing.T) {
	rec := recording(t, 50)

	p, err := PopulationPlot(rec, "rabi")
	if err != nil {
		t.Fatalf("population plot: %v", err)
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, p); err != nil {
		t.Fatalf("write png: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}

	paths, err := SavePNGs(rec, t.TempDir(), "rabi")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", path, err)
		}
	}
}
