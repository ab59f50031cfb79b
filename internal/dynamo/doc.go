// Package dynamo provides the vector primitives shared by the UFO plant,
// the integrator and the simulator:
//
//   - [State]: plant state vector
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//
// It also defines the domain errors returned by the validating edges of the
// program (HTTP handlers, CLI flags, the tuner). The numerical core itself
// never fails: non-finite inputs flow through and come out non-finite.
//
// # Example
//
//	plant := physics.NewUFO()
//	euler := integrators.NewEuler()
//	next := euler.Step(plant, dynamo.State{3.0, 0}, dynamo.Control{-3.0}, 0, 0.05)
package dynamo
