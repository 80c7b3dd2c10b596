// Package dynamo provides the core primitives shared by the nonadiabatic
// integrator packages.
//
// The package defines the fundamental interfaces and types for advancing
// a coupled nuclear + electronic-mapping phase point:
//
//   - [State]: flat phase-space vector [R | v | q | p]
//   - [Layout]: offsets of the nuclear and mapping blocks inside a [State]
//   - [System]: the coupled equations of motion dX/dt = f(X, t)
//   - [SplitSystem]: a [System] that also exposes the kick, drift and
//     rotate pieces needed by splitting schemes
//   - [Scheme]: one-step numerical update
//   - [Multistep]: a [Scheme] that carries derivative history between steps
//
// # Example
//
//	traj, _ := sim.New(cfg, engine)
//	_ = traj.Initialize()
//	_ = traj.Step(1000)
//
// # Thread Safety
//
// Schemes and systems hold scratch buffers and are NOT thread-safe. Run
// independent trajectories with their own instances, or use sim.Ensemble.
package dynamo
