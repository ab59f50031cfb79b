// Package control implements the UFO attitude controller.
//
//   - [Clamp]: scalar saturation helper
//   - [PIDStep]: one pure PID update (no anti-windup, no output limit)
//   - [Gains]: the kp/ki/kd triple with its ranges
//   - [Heuristic]: deterministic gain proposal from disturbance and step size
//
// # Usage
//
//	g := control.Heuristic(3.0, 0.05)
//	u, integ := control.PIDStep(e, ePrev, integ, 0.05, g.Kp, g.Ki, g.Kd)
//
// Everything here is pure and safe for concurrent use. [Gains] implements
// the GetParams/SetParam pair used by the live view to tune gains.
package control
