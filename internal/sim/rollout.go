package sim

import (
	"math"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/metrics"
)

const (
	DefaultRolloutDt      = 0.05
	DefaultRolloutSeconds = 6.0
	minRolloutSteps       = 2
	maxRolloutSteps       = math.MaxInt32
)

// RolloutConfig describes an offline scoring run. The run always starts
// unpaused from (Theta0, Omega0) with zero controller memory and tracks a
// zero reference.
type RolloutConfig struct {
	Dt      float64 `json:"dt" yaml:"dt"`
	Seconds float64 `json:"seconds" yaml:"seconds"`
	Theta0  float64 `json:"theta0" yaml:"theta0"`
	Omega0  float64 `json:"omega0" yaml:"omega0"`
	ULimit  float64 `json:"u_limit" yaml:"u_limit"`
}

func DefaultRolloutConfig() RolloutConfig {
	return RolloutConfig{
		Dt:      DefaultRolloutDt,
		Seconds: DefaultRolloutSeconds,
		Theta0:  DefaultTheta0,
		Omega0:  DefaultOmega0,
		ULimit:  DefaultULimit,
	}
}

// Steps is the number of ticks in the horizon: seconds/dt truncated toward
// zero, with dt floored to MinDt and at least two steps. A horizon that is
// not finite runs the minimum; a finite one is capped at maxRolloutSteps.
func (c RolloutConfig) Steps() int {
	n := c.Seconds / math.Max(c.Dt, MinDt)
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0) || n < minRolloutSteps:
		return minRolloutSteps
	case n > maxRolloutSteps:
		return maxRolloutSteps
	}
	return int(n)
}

// Metrics summarises a rollout.
type Metrics struct {
	IAE         float64 `json:"iae"`
	MaxAbsError float64 `json:"max_abs_error"`
	MaxAbsU     float64 `json:"max_abs_u"`
	Fuel        float64 `json:"fuel"`
	Seconds     float64 `json:"seconds"`
	Dt          float64 `json:"dt"`
}

// Map returns the scores keyed by metric name.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"iae":           m.IAE,
		"max_abs_error": m.MaxAbsError,
		"max_abs_u":     m.MaxAbsU,
		"fuel":          m.Fuel,
	}
}

// Observer receives every tick of a rollout: the step index, the state the
// tick started from, and the error and control it produced.
type Observer interface {
	OnStep(k int, s State, e, u float64)
}

// Rollout scores a gain triple by running Step over the configured horizon.
// It touches no shared state and may be called concurrently.
func Rollout(cfg RolloutConfig, g control.Gains) Metrics {
	return RolloutObserved(cfg, g)
}

// RolloutObserved is Rollout with observers attached.
//
// The metrics integrate with the requested dt rather than the floored step
// size, so a zero dt scores zero iae and fuel.
func RolloutObserved(cfg RolloutConfig, g control.Gains, observers ...Observer) Metrics {
	ms := metrics.Standard()
	s := State{Theta: cfg.Theta0, Omega: cfg.Omega0}

	steps := cfg.Steps()
	for k := 0; k < steps; k++ {
		next, e, u := Step(cfg.Dt, s, g, DefaultThetaRef, cfg.ULimit)

		for _, m := range ms {
			m.Observe(e, u, cfg.Dt)
		}
		for _, obs := range observers {
			obs.OnStep(k, s, e, u)
		}

		s = next
	}

	values := make(map[string]float64, len(ms))
	for _, m := range ms {
		values[m.Name()] = m.Value()
	}

	return Metrics{
		IAE:         values["iae"],
		MaxAbsError: values["max_abs_error"],
		MaxAbsU:     values["max_abs_u"],
		Fuel:        values["fuel"],
		Seconds:     cfg.Seconds,
		Dt:          cfg.Dt,
	}
}
