package nuclear

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/mmst/internal/dynamo"
)

func TestNewState(t *testing.T) {
	s, err := NewState([]float64{1, 2, 3, 4, 5, 6}, make([]float64, 6), []float64{2, 3}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NumDOF() != 6 {
		t.Errorf("NumDOF() = %d, want 6", s.NumDOF())
	}
	want := []float64{2, 2, 2, 3, 3, 3}
	for i, m := range s.Masses {
		if m != want[i] {
			t.Errorf("mass[%d] = %g, want %g", i, m, want[i])
		}
	}
}

func TestNewState_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		pos     []float64
		masses  []float64
		dims    int
		wantErr error
	}{
		{"zero mass", []float64{0}, []float64{0}, 1, dynamo.ErrConfiguration},
		{"negative mass", []float64{0}, []float64{-1}, 1, dynamo.ErrConfiguration},
		{"NaN mass", []float64{0}, []float64{math.NaN()}, 1, dynamo.ErrConfiguration},
		{"wrong length", []float64{0, 1}, []float64{1}, 3, dynamo.ErrDimensionMismatch},
		{"zero dims", []float64{}, []float64{1}, 0, dynamo.ErrConfiguration},
		{"NaN position", []float64{math.NaN()}, []float64{1}, 1, dynamo.ErrNumericalInstability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewState(tt.pos, make([]float64, len(tt.pos)), tt.masses, tt.dims)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyForceAndAdvance(t *testing.T) {
	s, _ := NewState([]float64{0, 0}, []float64{1, -1}, []float64{2}, 2)

	if err := s.ApplyForce([]float64{4, 2}, 0.5); err != nil {
		t.Fatalf("apply force failed: %v", err)
	}
	if s.Velocities[0] != 2 || s.Velocities[1] != -0.5 {
		t.Errorf("velocities = %v, want [2 -0.5]", s.Velocities)
	}

	if err := s.AdvancePositions(2); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.Positions[0] != 4 || s.Positions[1] != -1 {
		t.Errorf("positions = %v, want [4 -1]", s.Positions)
	}

	if ke := s.KineticEnergy(); math.Abs(ke-4.25) > 1e-15 {
		t.Errorf("kinetic energy = %g, want 4.25", ke)
	}

	if err := s.ApplyForce([]float64{1}, 1); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	if err := s.ApplyForce([]float64{math.Inf(1), 0}, 1); !errors.Is(err, dynamo.ErrNumericalInstability) {
		t.Errorf("expected numerical instability, got %v", err)
	}
}

func TestHarmonic_ForcesMatchPotential(t *testing.T) {
	h, err := NewHarmonicChain([]float64{0.3, -0.2, 0.7}, make([]float64, 3), 2.0, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Centers[1] = 0.1

	pos := []float64{0.3, -0.2, 0.7}
	forces, _, err := h.ClassicalForces(pos)
	if err != nil {
		t.Fatalf("forces failed: %v", err)
	}

	const dx = 1e-6
	for i := range pos {
		plus := append([]float64(nil), pos...)
		minus := append([]float64(nil), pos...)
		plus[i] += dx
		minus[i] -= dx
		_, vp, _ := h.ClassicalForces(plus)
		_, vm, _ := h.ClassicalForces(minus)
		fd := -(vp - vm) / (2 * dx)
		if math.Abs(forces[i]-fd) > 1e-8 {
			t.Errorf("force[%d] = %g, -dV/dx = %g", i, forces[i], fd)
		}
	}
}

func TestEngine_CopiesAndClone(t *testing.T) {
	state, _ := NewState([]float64{1}, []float64{2}, []float64{1}, 1)
	e := NewFree(state)

	pos := e.Positions()
	pos[0] = 100
	if e.Positions()[0] != 1 {
		t.Error("Positions() should return a copy")
	}

	c := e.Clone()
	if err := c.SetVelocities([]float64{-5}); err != nil {
		t.Fatalf("set velocities failed: %v", err)
	}
	if e.Velocities()[0] != 2 {
		t.Error("clone should not share state with its source")
	}

	if err := e.SetPositions([]float64{1, 2}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}

	forces, v, err := e.ClassicalForces([]float64{3})
	if err != nil || forces[0] != 0 || v != 0 {
		t.Errorf("free engine forces = %v, %g, %v", forces, v, err)
	}
}
