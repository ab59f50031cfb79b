package control

import (
	"fmt"

	"github.com/san-kum/ufosim/internal/dynamo"
)

// Gain ranges. Every gain triple is clamped into these before it reaches the
// simulator, whichever producer proposed it.
const (
	KpMin, KpMax = 0.0, 10.0
	KiMin, KiMax = 0.0, 2.0
	KdMin, KdMax = 0.0, 5.0
)

// Gains is a PID gain triple with an optional free-text note.
type Gains struct {
	Kp   float64 `json:"kp" yaml:"kp"`
	Ki   float64 `json:"ki" yaml:"ki"`
	Kd   float64 `json:"kd" yaml:"kd"`
	Note string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Clamp returns g with each gain bounded to its range.
func (g Gains) Clamp() Gains {
	return Gains{
		Kp:   Clamp(g.Kp, KpMin, KpMax),
		Ki:   Clamp(g.Ki, KiMin, KiMax),
		Kd:   Clamp(g.Kd, KdMin, KdMax),
		Note: g.Note,
	}
}

// Validate rejects gains that Clamp cannot bring into range.
func (g Gains) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"kp", g.Kp}, {"ki", g.Ki}, {"kd", g.Kd}} {
		if !dynamo.IsFinite(c.v) {
			return &dynamo.InputError{Field: c.name, Value: c.v, Wrapped: dynamo.ErrInvalidGains}
		}
	}
	return nil
}

func (g Gains) String() string {
	return fmt.Sprintf("kp=%.3f ki=%.3f kd=%.3f", g.Kp, g.Ki, g.Kd)
}

// GetParams returns tunable parameters for live adjustment
func (g *Gains) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": g.Kp,
		"Ki": g.Ki,
		"Kd": g.Kd,
	}
}

// SetParam adjusts one gain and re-clamps the triple.
func (g *Gains) SetParam(name string, value float64) error {
	next := *g
	switch name {
	case "Kp":
		next.Kp = value
	case "Ki":
		next.Ki = value
	case "Kd":
		next.Kd = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*g = next.Clamp()
	return nil
}
