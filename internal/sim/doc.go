// Package sim advances the UFO plant and its PID controller.
//
//   - [State]: controller memory plus plant state, passed by value
//   - [Step]: one tick (PID, saturation, forward-Euler plant update)
//   - [Rollout]: fixed-horizon scoring of a gain triple
//   - [Record]: the same run with every tick kept as a [Trace]
//   - [Evaluate]: parallel scoring of several candidates
//
// # Usage
//
//	s := sim.NewState()
//	s.Paused = false
//	s, e, u := sim.StepDefault(0.05, s, control.Heuristic(3.0, 0.05))
//
// # Thread Safety
//
// Nothing in this package holds mutable state between calls, so every
// function may be called from many goroutines at once. The package never
// reaches the network; boundary_test.go keeps it that way.
package sim
