package metrics

import (
	"math"
	"testing"
)

type sample struct{ e, u, dt float64 }

var samples = []sample{
	{-3.0, -3.0, 0.05},
	{-2.5, 1.5, 0.05},
	{0.5, 2.0, 0.05},
}

func TestIAE(t *testing.T) {
	m := NewIAE()
	for _, s := range samples {
		m.Observe(s.e, s.u, s.dt)
	}

	expected := (3.0 + 2.5 + 0.5) * 0.05
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected iae %f, got %f", expected, m.Value())
	}
}

func TestPeaks(t *testing.T) {
	pe, pc := NewPeakError(), NewPeakControl()
	for _, s := range samples {
		pe.Observe(s.e, s.u, s.dt)
		pc.Observe(s.e, s.u, s.dt)
	}

	if pe.Value() != 3.0 {
		t.Errorf("expected peak error 3, got %f", pe.Value())
	}
	if pc.Value() != 3.0 {
		t.Errorf("expected peak control 3, got %f", pc.Value())
	}
}

func TestFuel(t *testing.T) {
	m := NewFuel()
	for _, s := range samples {
		m.Observe(s.e, s.u, s.dt)
	}

	expected := (3.0 + 1.5 + 2.0) * 0.05
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected fuel %f, got %f", expected, m.Value())
	}
}

func TestReset(t *testing.T) {
	for _, m := range Standard() {
		m.Observe(-1, 1, 0.1)
		if m.Value() == 0 {
			t.Errorf("%s: expected non-zero value", m.Name())
		}
		m.Reset()
		if m.Value() != 0 {
			t.Errorf("%s: expected zero after reset, got %f", m.Name(), m.Value())
		}
	}
}

func TestStandardNames(t *testing.T) {
	want := []string{"iae", "max_abs_error", "max_abs_u", "fuel"}
	got := Standard()
	if len(got) != len(want) {
		t.Fatalf("expected %d metrics, got %d", len(want), len(got))
	}
	for i, m := range got {
		if m.Name() != want[i] {
			t.Errorf("metric %d: expected %s, got %s", i, want[i], m.Name())
		}
	}
}
