package tuner

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/san-kum/ufosim/internal/control"
)

var errNoGains = errors.New("no gain object in model output")

type gainsPayload struct {
	Kp   *float64 `json:"kp"`
	Ki   *float64 `json:"ki"`
	Kd   *float64 `json:"kd"`
	Note string   `json:"note"`
}

// parseGains extracts {kp, ki, kd, note} from model text. Code fences and
// prose around the object are tolerated; missing gains are not.
func parseGains(text string) (control.Gains, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return control.Gains{}, errNoGains
	}

	var p gainsPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return control.Gains{}, err
	}
	if p.Kp == nil || p.Ki == nil || p.Kd == nil {
		return control.Gains{}, errNoGains
	}
	return control.Gains{Kp: *p.Kp, Ki: *p.Ki, Kd: *p.Kd, Note: p.Note}, nil
}
