package physics

import (
	"fmt"

	"github.com/san-kum/ufosim/internal/dynamo"
)

// Coefficients of the UFO attitude model x' = A x + B u with x = [theta, omega].
// The gain graph is fixed by the model and is not exposed as tunable.
const (
	A11, A12 = 0.0, 1.0
	A21, A22 = 0.01, 0.0
	B1, B2   = 0.0, 1.0
)

// UFO is a single-axis rotational body: theta integrates omega, and omega is
// driven by the actuator with a small positive coupling back from theta.
type UFO struct{}

func NewUFO() *UFO {
	return &UFO{}
}

func (p *UFO) StateDim() int {
	return 2
}

func (p *UFO) ControlDim() int {
	return 1
}

func (p *UFO) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta := x[0]
	omega := x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}

	thetaDot := A11*theta + A12*omega + B1*torque
	omegaDot := A21*theta + A22*omega + B2*torque

	return dynamo.State{thetaDot, omegaDot}
}

func (p *UFO) GetParams() map[string]float64 {
	return map[string]float64{
		"a11": A11,
		"a12": A12,
		"a21": A21,
		"a22": A22,
		"b1":  B1,
		"b2":  B2,
	}
}

// SetParam always fails: the UFO coefficients are part of the model.
func (p *UFO) SetParam(name string, value float64) error {
	return fmt.Errorf("ufo: parameter %s is fixed", name)
}
