package sim

import (
	"math"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/integrators"
	"github.com/san-kum/ufosim/internal/physics"
)

const (
	// MinDt is the smallest step the simulator takes; smaller requests are
	// raised to it.
	MinDt = 1e-4

	DefaultThetaRef = 0.0
	DefaultULimit   = 3.0
)

// The plant and integrator carry no state, so one instance serves every
// caller.
var (
	plant = physics.NewUFO()
	euler = integrators.NewEuler()
)

// Step advances the controller and plant by one tick and returns the next
// state, the tracking error and the saturated control.
//
// The PID output is clamped to [-uLimit, uLimit] after the integral has been
// updated, so saturation does not unwind the integral. When s is paused the
// plant is frozen but the error, integral and previous-error bookkeeping
// still run. Step performs no I/O and never fails; non-finite inputs produce
// non-finite outputs.
func Step(dt float64, s State, g control.Gains, thetaRef, uLimit float64) (State, float64, float64) {
	dt = math.Max(dt, MinDt)

	e := thetaRef - s.Theta

	u, integ := control.PIDStep(e, s.EPrev, s.Integ, dt, g.Kp, g.Ki, g.Kd)
	u = control.Clamp(u, -uLimit, uLimit)

	theta, omega := s.Theta, s.Omega
	if !s.Paused {
		x := euler.Step(plant, dynamo.State{theta, omega}, dynamo.Control{u}, 0, dt)
		theta, omega = x[0], x[1]
	}

	next := State{
		Theta:  theta,
		Omega:  omega,
		Integ:  integ,
		EPrev:  e,
		Paused: s.Paused,
	}
	return next, e, u
}

// StepDefault is Step with a zero reference angle and the default actuator
// limit.
func StepDefault(dt float64, s State, g control.Gains) (State, float64, float64) {
	return Step(dt, s, g, DefaultThetaRef, DefaultULimit)
}
