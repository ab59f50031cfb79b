package control

import "math"

// MinPIDDt floors the derivative denominator.
const MinPIDDt = 1e-6

// PIDStep evaluates one discrete PID update from the current error e.
//
// The integral is accumulated with a rectangular rule and is never clamped,
// so it keeps winding while the actuator is saturated. The returned control
// is not saturated either; limiting u is the caller's job.
func PIDStep(e, ePrev, integ, dt, kp, ki, kd float64) (u, integNext float64) {
	integNext = integ + e*dt
	deriv := (e - ePrev) / math.Max(dt, MinPIDDt)
	u = kp*e + ki*integNext + kd*deriv
	return u, integNext
}
