package control

import "math"

// HeuristicNote is attached to every heuristic proposal.
const HeuristicNote = "Deterministic heuristic: kp scales with |theta0|, kd adjusted for dt; ki kept small."

const (
	heuristicMinDt = 1e-3

	// Above this disturbance magnitude the smooth formula is replaced by a
	// fixed large-disturbance triple, so the heuristic jumps at exactly 2.5.
	largeDisturbance = 2.5
)

var largeDisturbanceGains = Gains{Kp: 3.9, Ki: 1.17, Kd: 2.9}

// Heuristic proposes PID gains from the initial disturbance theta0 and the
// step size dt:
//
//   - kp grows with |theta0| (capped at 6 rad) for more corrective authority
//   - ki stays small but non-zero
//   - kd is softened for fine steps (dt < 0.01) and raised for coarse ones
//     (dt > 0.08)
//
// The result is deterministic and serves as the baseline that other
// proposals are scored against. A NaN theta0 yields NaN gains.
func Heuristic(theta0, dt float64) Gains {
	dt = math.Max(dt, heuristicMinDt)
	a := math.Abs(theta0)
	capped := math.Min(a, 6.0)

	// Explicit conversions round each product so it cannot be fused into
	// a multiply-add; results stay identical across architectures.
	kp := Clamp(2.2+float64(0.35*capped), KpMin, KpMax)
	ki := Clamp(0.03+float64(0.01*capped), KiMin, KiMax)

	kd := 0.9
	if dt < 0.01 {
		kd *= 0.7
	} else if dt > 0.08 {
		kd *= 1.15
	}
	kd = Clamp(kd, KdMin, KdMax)

	if a > largeDisturbance {
		kp, ki, kd = largeDisturbanceGains.Kp, largeDisturbanceGains.Ki, largeDisturbanceGains.Kd
	}

	return Gains{Kp: kp, Ki: ki, Kd: kd, Note: HeuristicNote}
}
