package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/mmst/internal/config"
	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/hamiltonian"
	"github.com/san-kum/mmst/internal/nuclear"
	"gonum.org/v1/gonum/mat"
)

type modelFunc func(p config.ModelConfig, ndof int) (hamiltonian.Provider, error)
type engineFunc func(n config.NuclearConfig) (nuclear.Cloner, error)

type Registry struct {
	models  map[string]modelFunc
	engines map[string]engineFunc
}

func NewRegistry() *Registry {
	r := &Registry{
		models:  make(map[string]modelFunc),
		engines: make(map[string]engineFunc),
	}

	r.models["rabi"] = func(p config.ModelConfig, ndof int) (hamiltonian.Provider, error) {
		return hamiltonian.NewConstant(hamiltonian.TwoLevel(p.E0, p.E1, p.Delta)), nil
	}
	r.models["tully"] = func(p config.ModelConfig, ndof int) (hamiltonian.Provider, error) {
		if ndof != 1 {
			return nil, fmt.Errorf("%w: tully model has one nuclear coordinate, got %d", dynamo.ErrConfiguration, ndof)
		}
		return hamiltonian.NewTullySimple(), nil
	}
	r.models["spin_boson"] = func(p config.ModelConfig, ndof int) (hamiltonian.Provider, error) {
		if len(p.Bath) != ndof {
			return nil, fmt.Errorf("%w: %d bath couplings for %d nuclear coordinates", dynamo.ErrConfiguration, len(p.Bath), ndof)
		}
		m := hamiltonian.NewSpinBoson(p.Epsilon, p.Delta, p.Bath)
		m.Domain = p.Domain
		return m, nil
	}
	r.models["vibronic"] = func(p config.ModelConfig, ndof int) (hamiltonian.Provider, error) {
		n := len(p.Energies)
		couplings := mat.NewSymDense(max(n, 1), nil)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				couplings.SetSym(i, j, p.Delta)
			}
		}
		m, err := hamiltonian.NewLinearVibronic(p.Energies, couplings, p.Kappa)
		if err != nil {
			return nil, err
		}
		if m.NumDOF() != ndof {
			return nil, fmt.Errorf("%w: vibronic couplings cover %d nuclear coordinates, engine has %d", dynamo.ErrConfiguration, m.NumDOF(), ndof)
		}
		m.Domain = p.Domain
		return m, nil
	}

	r.engines["free"] = func(n config.NuclearConfig) (nuclear.Cloner, error) {
		state, err := nuclear.NewState(n.Positions, n.Velocities, n.Masses, n.Dims)
		if err != nil {
			return nil, err
		}
		return nuclear.NewFree(state), nil
	}
	r.engines["harmonic"] = func(n config.NuclearConfig) (nuclear.Cloner, error) {
		state, err := nuclear.NewState(n.Positions, n.Velocities, n.Masses, n.Dims)
		if err != nil {
			return nil, err
		}
		k := make([]float64, state.NumDOF())
		for i := range k {
			k[i] = n.Stiffness
		}
		h, err := nuclear.NewHarmonic(state, k)
		if err != nil {
			return nil, err
		}
		h.Coupling = n.Coupling
		return h, nil
	}

	return r
}

// Provider builds the Hamiltonian model named by cfg.Model for ndof
// nuclear coordinates.
func (r *Registry) Provider(cfg *config.Config, ndof int) (hamiltonian.Provider, error) {
	fn, ok := r.models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q (available: %v)", dynamo.ErrConfiguration, cfg.Model, r.ListModels())
	}
	return fn(cfg.ModelParams, ndof)
}

func (r *Registry) Engine(cfg *config.Config) (nuclear.Cloner, error) {
	name := cfg.Nuclear.Engine
	if name == "" {
		name = "free"
	}
	fn, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q (available: %v)", dynamo.ErrConfiguration, name, r.ListEngines())
	}
	return fn(cfg.Nuclear)
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListEngines() []string {
	return sortedKeys(r.engines)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
