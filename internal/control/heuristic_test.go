package control

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12
}

func TestHeuristicSmoothRegime(t *testing.T) {
	g := Heuristic(2.4, 0.02)

	if !almostEqual(g.Kp, 3.04) {
		t.Errorf("expected kp 3.04, got %v", g.Kp)
	}
	if !almostEqual(g.Ki, 0.054) {
		t.Errorf("expected ki 0.054, got %v", g.Ki)
	}
	if g.Kd != 0.9 {
		t.Errorf("expected kd 0.9, got %v", g.Kd)
	}
	if g.Note != HeuristicNote {
		t.Errorf("unexpected note %q", g.Note)
	}
}

func TestHeuristicLargeDisturbance(t *testing.T) {
	g := Heuristic(2.6, 0.02)

	if g.Kp != 3.9 || g.Ki != 1.17 || g.Kd != 2.9 {
		t.Errorf("expected (3.9, 1.17, 2.9), got (%v, %v, %v)", g.Kp, g.Ki, g.Kd)
	}
}

func TestHeuristicDiscontinuityBoundary(t *testing.T) {
	at := Heuristic(2.5, 0.02)
	if !almostEqual(at.Kp, 2.2+0.35*2.5) {
		t.Errorf("a = 2.5 should follow the smooth formula, got kp %v", at.Kp)
	}

	above := Heuristic(math.Nextafter(2.5, 3), 0.02)
	if above.Kp != 3.9 {
		t.Errorf("a just above 2.5 should use the override, got kp %v", above.Kp)
	}
}

func TestHeuristicSignSymmetric(t *testing.T) {
	tests := []float64{0, 0.3, 1.7, 2.5, 4.0}
	for _, theta0 := range tests {
		pos, neg := Heuristic(theta0, 0.05), Heuristic(-theta0, 0.05)
		if pos != neg {
			t.Errorf("theta0=%v: expected symmetric gains, got %v vs %v", theta0, pos, neg)
		}
	}
}

func TestHeuristicDerivativeByDt(t *testing.T) {
	tests := []struct {
		name string
		dt   float64
		kd   float64
	}{
		{"fine", 0.005, 0.9 * 0.7},
		{"zero floored to 1e-3", 0, 0.9 * 0.7},
		{"edge 0.01", 0.01, 0.9},
		{"nominal", 0.05, 0.9},
		{"edge 0.08", 0.08, 0.9},
		{"coarse", 0.1, 0.9 * 1.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Heuristic(1.0, tt.dt)
			if !almostEqual(g.Kd, tt.kd) {
				t.Errorf("expected kd %v, got %v", tt.kd, g.Kd)
			}
		})
	}
}

func TestHeuristicWithinBounds(t *testing.T) {
	for theta0 := -10.0; theta0 <= 10.0; theta0 += 0.1 {
		for _, dt := range []float64{0, 1e-4, 0.01, 0.05, 0.2, 1} {
			g := Heuristic(theta0, dt)
			if g.Kp < KpMin || g.Kp > KpMax || g.Ki < KiMin || g.Ki > KiMax || g.Kd < KdMin || g.Kd > KdMax {
				t.Fatalf("theta0=%v dt=%v: gains out of range %v", theta0, dt, g)
			}
		}
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	a := Heuristic(1.234567, 0.0173)
	b := Heuristic(1.234567, 0.0173)
	if math.Float64bits(a.Kp) != math.Float64bits(b.Kp) ||
		math.Float64bits(a.Ki) != math.Float64bits(b.Ki) ||
		math.Float64bits(a.Kd) != math.Float64bits(b.Kd) {
		t.Errorf("heuristic not bit-reproducible: %v vs %v", a, b)
	}
}

func TestHeuristicNaN(t *testing.T) {
	g := Heuristic(math.NaN(), 0.05)
	if !math.IsNaN(g.Kp) || !math.IsNaN(g.Ki) {
		t.Errorf("expected NaN to propagate to kp/ki, got %v", g)
	}
	if err := g.Validate(); err == nil {
		t.Error("expected Validate to reject NaN heuristic output")
	}
}
