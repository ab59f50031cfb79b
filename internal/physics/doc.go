// Package physics provides the plant model driven by the simulator.
//
// [UFO] implements the [dynamo.System] interface with a fixed linear
// time-invariant model of a single-axis attitude body:
//
//	theta' = A11*theta + A12*omega + B1*u
//	omega' = A21*theta + A22*omega + B2*u
//
// The coefficients are constants of the model. [UFO.GetParams] reports them
// for display; [UFO.SetParam] rejects every change.
package physics
