package metrics

import "math"

// Metric accumulates one scalar score over the samples of a rollout. Each
// sample is the tracking error e, the applied control u and the step size.
type Metric interface {
	Name() string
	Observe(e, u, dt float64)
	Value() float64
	Reset()
}

// IAE is the integral of absolute error, sum(|e|*dt).
type IAE struct {
	sum float64
}

func NewIAE() *IAE { return &IAE{} }

func (m *IAE) Name() string { return "iae" }

func (m *IAE) Observe(e, u, dt float64) {
	m.sum += math.Abs(e) * dt
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() { m.sum = 0 }

// PeakError tracks max |e|.
type PeakError struct {
	peak float64
}

func NewPeakError() *PeakError { return &PeakError{} }

func (m *PeakError) Name() string { return "max_abs_error" }

func (m *PeakError) Observe(e, u, dt float64) {
	m.peak = math.Max(m.peak, math.Abs(e))
}

func (m *PeakError) Value() float64 { return m.peak }

func (m *PeakError) Reset() { m.peak = 0 }

// PeakControl tracks max |u|.
type PeakControl struct {
	peak float64
}

func NewPeakControl() *PeakControl { return &PeakControl{} }

func (m *PeakControl) Name() string { return "max_abs_u" }

func (m *PeakControl) Observe(e, u, dt float64) {
	m.peak = math.Max(m.peak, math.Abs(u))
}

func (m *PeakControl) Value() float64 { return m.peak }

func (m *PeakControl) Reset() { m.peak = 0 }

// Fuel is a control-effort proxy, sum(|u|*dt).
type Fuel struct {
	sum float64
}

func NewFuel() *Fuel { return &Fuel{} }

func (m *Fuel) Name() string { return "fuel" }

func (m *Fuel) Observe(e, u, dt float64) {
	m.sum += math.Abs(u) * dt
}

func (m *Fuel) Value() float64 { return m.sum }

func (m *Fuel) Reset() { m.sum = 0 }

// Standard returns fresh instances of the four rollout metrics.
func Standard() []Metric {
	return []Metric{NewIAE(), NewPeakError(), NewPeakControl(), NewFuel()}
}
