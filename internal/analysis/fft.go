package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/san-kum/mmst/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the one-sided power spectrum of a uniformly
// sampled series after removing its mean and applying a Hann window.
// Bin k corresponds to frequency k / (len(data) * dt).
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	x := make([]float64, n)
	copy(x, data)
	floats.AddConst(-stat.Mean(x, nil), x)
	window.Apply(x, window.Hann)

	coeffs := fft.FFTReal(x)
	ps := make([]float64, n/2+1)
	for i := range ps {
		a := cmplx.Abs(coeffs[i])
		ps[i] = a * a
	}
	return ps
}

// DominantFrequency estimates the strongest non-zero frequency of a
// series sampled every dt, in cycles per unit time. The peak bin is
// refined by parabolic interpolation on the log power.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("%w: sample spacing must be positive, got %g", dynamo.ErrConfiguration, dt)
	}
	if len(data) < 8 {
		return 0, fmt.Errorf("%w: need at least 8 samples, got %d", dynamo.ErrConfiguration, len(data))
	}

	ps := PowerSpectrum(data)
	peak := floats.MaxIdx(ps[1:]) + 1
	if ps[peak] == 0 {
		return 0, fmt.Errorf("%w: series is constant", dynamo.ErrConfiguration)
	}

	offset := 0.0
	if peak < len(ps)-1 && ps[peak-1] > 0 && ps[peak+1] > 0 {
		a, b, c := math.Log(ps[peak-1]), math.Log(ps[peak]), math.Log(ps[peak+1])
		if den := a - 2*b + c; den != 0 {
			offset = 0.5 * (a - c) / den
		}
	}
	return (float64(peak) + offset) / (float64(len(data)) * dt), nil
}

// ObservedOrder is the convergence order implied by errors e1 at step h
// and e2 at step h/ratio.
func ObservedOrder(e1, e2, ratio float64) float64 {
	return math.Log(e1/e2) / math.Log(ratio)
}
