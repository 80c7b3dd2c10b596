// Package hamiltonian defines the electronic Hamiltonian matrix H(R), its
// nuclear gradient, and the providers that evaluate them.
package hamiltonian

import (
	"fmt"
	"math"

	"github.com/san-kum/mmst/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// symmetryTol is the relative tolerance used when accepting a dense matrix
// as symmetric.
const symmetryTol = 1e-12

// Matrix is a real symmetric N×N electronic Hamiltonian. Values are never
// modified after construction. Complex Hermitian couplings are not
// supported.
type Matrix struct {
	sym *mat.SymDense
}

// NewMatrix builds a Matrix from row-major data of length n*n.
func NewMatrix(n int, data []float64) (*Matrix, error) {
	if n <= 0 || len(data) != n*n {
		return nil, fmt.Errorf("%w: matrix data length %d for dimension %d", dynamo.ErrDimensionMismatch, len(data), n)
	}
	scale := 0.0
	for _, v := range data {
		scale = math.Max(scale, math.Abs(v))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(data[i*n+j]-data[j*n+i]) > symmetryTol*math.Max(scale, 1) {
				return nil, fmt.Errorf("%w: matrix not symmetric at (%d,%d)", dynamo.ErrEvaluation, i, j)
			}
		}
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return &Matrix{sym: mat.NewSymDense(n, buf)}, nil
}

// FromSym wraps a copy of s.
func FromSym(s mat.Symmetric) *Matrix {
	n := s.SymmetricDim()
	dst := mat.NewSymDense(n, nil)
	dst.CopySym(s)
	return &Matrix{sym: dst}
}

// Diagonal returns a matrix with the given diagonal and zero couplings.
func Diagonal(vals ...float64) *Matrix {
	n := len(vals)
	sym := mat.NewSymDense(n, nil)
	for i, v := range vals {
		sym.SetSym(i, i, v)
	}
	return &Matrix{sym: sym}
}

// TwoLevel returns [[e0, delta], [delta, e1]].
func TwoLevel(e0, e1, delta float64) *Matrix {
	return &Matrix{sym: mat.NewSymDense(2, []float64{e0, delta, delta, e1})}
}

func (m *Matrix) Dim() int { return m.sym.SymmetricDim() }

func (m *Matrix) At(i, j int) float64 { return m.sym.At(i, j) }

// Sym returns a copy of the underlying symmetric matrix.
func (m *Matrix) Sym() *mat.SymDense {
	dst := mat.NewSymDense(m.Dim(), nil)
	dst.CopySym(m.sym)
	return dst
}

// MulVec stores H·v into dst.
func (m *Matrix) MulVec(dst, v []float64) {
	n := m.Dim()
	out := mat.NewVecDense(n, dst)
	out.MulVec(m.sym, mat.NewVecDense(n, v))
}

// QuadForm returns ½ Σ_ij H_ij (a_i a_j + b_i b_j).
func (m *Matrix) QuadForm(a, b []float64) float64 {
	n := m.Dim()
	av := mat.NewVecDense(n, a)
	bv := mat.NewVecDense(n, b)
	return 0.5 * (mat.Inner(av, m.sym, av) + mat.Inner(bv, m.sym, bv))
}

func (m *Matrix) Trace() float64 { return mat.Trace(m.sym) }

func (m *Matrix) IsFinite() bool {
	n := m.Dim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := m.sym.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Eigen returns the eigenvalues in ascending order and the eigenvectors
// as the columns of the returned matrix.
func (m *Matrix) Eigen() ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m.sym, true); !ok {
		return nil, nil, fmt.Errorf("%w: eigendecomposition did not converge", dynamo.ErrNumericalInstability)
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return eig.Values(nil), &vecs, nil
}

// Gradient is the derivative tensor ∂H_ij/∂R_k stored as one symmetric
// N×N matrix per nuclear coordinate k.
type Gradient struct {
	n     int
	comps []*mat.SymDense
}

// NewGradient returns a zero gradient for n states and ndof coordinates.
func NewGradient(n, ndof int) *Gradient {
	g := &Gradient{n: n, comps: make([]*mat.SymDense, ndof)}
	for k := range g.comps {
		g.comps[k] = mat.NewSymDense(n, nil)
	}
	return g
}

func (g *Gradient) Dim() int    { return g.n }
func (g *Gradient) NumDOF() int { return len(g.comps) }

func (g *Gradient) At(k, i, j int) float64 { return g.comps[k].At(i, j) }

// Set assigns ∂H_ij/∂R_k (and its symmetric partner). Providers call Set
// only while building a gradient, before returning it.
func (g *Gradient) Set(k, i, j int, v float64) { g.comps[k].SetSym(i, j, v) }

// Component returns ∂H/∂R_k. The returned matrix must not be modified.
func (g *Gradient) Component(k int) mat.Symmetric { return g.comps[k] }

func (g *Gradient) IsFinite() bool {
	for k := range g.comps {
		for i := 0; i < g.n; i++ {
			for j := i; j < g.n; j++ {
				v := g.comps[k].At(i, j)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
		}
	}
	return true
}
