package sim

import (
	"fmt"

	"github.com/san-kum/ufosim/internal/dynamo"
)

// Initial conditions of a freshly created UFO.
const (
	DefaultTheta0 = 3.0
	DefaultOmega0 = 0.0
)

// State is the plant and controller memory carried from one tick to the next.
// It is a value: Step returns a new State and never modifies its argument.
// Field names are the wire contract shared with the HTTP layer.
type State struct {
	Theta  float64 `json:"theta" yaml:"theta"`
	Omega  float64 `json:"omega" yaml:"omega"`
	Integ  float64 `json:"integ" yaml:"integ"`
	EPrev  float64 `json:"e_prev" yaml:"e_prev"`
	Paused bool    `json:"paused" yaml:"paused"`
}

// NewState returns the default paused state with the initial disturbance.
func NewState() State {
	return State{
		Theta:  DefaultTheta0,
		Omega:  DefaultOmega0,
		Paused: true,
	}
}

// Vector returns the plant part of s, [theta, omega].
func (s State) Vector() dynamo.State {
	return dynamo.State{s.Theta, s.Omega}
}

// Validate reports the first non-finite field. The error matches both
// dynamo.ErrInvalidState and dynamo.ErrInvalidInput.
func (s State) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"state.theta", s.Theta},
		{"state.omega", s.Omega},
		{"state.integ", s.Integ},
		{"state.e_prev", s.EPrev},
	}
	for _, f := range fields {
		if err := dynamo.CheckFinite(f.name, f.v); err != nil {
			return fmt.Errorf("%w: %w", dynamo.ErrInvalidState, err)
		}
	}
	return nil
}
