// Package analysis extracts physical quantities from recorded
// trajectories:
//
//   - [PowerSpectrum] and [DominantFrequency]: spectral content of a
//     population or coordinate series, e.g. the Rabi frequency
//   - [ObservedOrder]: convergence order from errors at two step sizes
//   - [GeneratePhasePortrait]: (q, p) orbit of one mapping oscillator
//
// For a resonant two-level system with coupling Δ the population of the
// second state oscillates at Δ/π:
//
//	f, err := analysis.DominantFrequency(rec.Population(1), dt)
package analysis
