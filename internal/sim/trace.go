package sim

import (
	"math"

	"github.com/san-kum/ufosim/internal/control"
)

// Sample is one recorded tick. Theta and Omega are the state the tick
// started from; Error and U are what the controller produced from it.
type Sample struct {
	Time  float64 `json:"t"`
	Theta float64 `json:"theta"`
	Omega float64 `json:"omega"`
	Error float64 `json:"error"`
	U     float64 `json:"u"`
}

// Trace is a recorded rollout used for plotting and export.
type Trace struct {
	Config  RolloutConfig `json:"config"`
	Gains   control.Gains `json:"gains"`
	Samples []Sample      `json:"samples"`
	Metrics Metrics       `json:"metrics"`
}

// Recorder is an Observer that collects samples, keeping one tick in
// every stride.
type Recorder struct {
	dt      float64
	stride  int
	samples []Sample
}

func NewRecorder(dt float64, capacity int) *Recorder {
	return &Recorder{
		dt:      math.Max(dt, MinDt),
		stride:  1,
		samples: make([]Sample, 0, max(0, capacity)),
	}
}

func (r *Recorder) OnStep(k int, s State, e, u float64) {
	if k%r.stride != 0 {
		return
	}
	r.samples = append(r.samples, Sample{
		Time:  float64(k) * r.dt,
		Theta: s.Theta,
		Omega: s.Omega,
		Error: e,
		U:     u,
	})
}

func (r *Recorder) Samples() []Sample {
	return r.samples
}

// Record runs a rollout and keeps every tick.
func Record(cfg RolloutConfig, g control.Gains) *Trace {
	return RecordAtMost(cfg, g, 0)
}

// RecordAtMost is Record keeping at most maxSamples ticks, evenly strided
// and always including the first. maxSamples <= 0 keeps every tick. The
// metrics still cover every tick.
func RecordAtMost(cfg RolloutConfig, g control.Gains, maxSamples int) *Trace {
	steps := cfg.Steps()
	stride := 1
	if maxSamples > 0 && steps > maxSamples {
		stride = (steps + maxSamples - 1) / maxSamples
	}

	rec := NewRecorder(cfg.Dt, (steps+stride-1)/stride)
	rec.stride = stride
	m := RolloutObserved(cfg, g, rec)
	return &Trace{
		Config:  cfg,
		Gains:   g,
		Samples: rec.Samples(),
		Metrics: m,
	}
}

// Column extracts one series from the trace by name: "t", "theta",
// "omega", "error" or "u". Unknown names return nil.
func (t *Trace) Column(name string) []float64 {
	var pick func(Sample) float64
	switch name {
	case "theta":
		pick = func(s Sample) float64 { return s.Theta }
	case "omega":
		pick = func(s Sample) float64 { return s.Omega }
	case "error":
		pick = func(s Sample) float64 { return s.Error }
	case "u":
		pick = func(s Sample) float64 { return s.U }
	case "t":
		pick = func(s Sample) float64 { return s.Time }
	default:
		return nil
	}
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = pick(s)
	}
	return out
}
