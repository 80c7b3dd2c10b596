// Package viz renders trajectories for the terminal and as images.
//
//   - [Live]: bubbletea model that steps a trajectory and shows
//     populations, energy drift and one mapping oscillator's orbit
//   - [PopulationChart], [EnergyChart]: asciigraph charts of a recording
//   - [PopulationPlot], [EnergyPlot], [SavePNGs]: gonum/plot images
//   - [Canvas]: braille dot canvas used by the orbit panel
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single tick while paused
//	R     - Rebuild the trajectory
//	Tab   - Cycle the mapping oscillator shown
//	+/-   - Change steps per tick
//	T     - Cycle color themes
//	?     - Show help
package viz
