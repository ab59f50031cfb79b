package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/sim"
	"github.com/san-kum/ufosim/internal/tuner"
)

const maxBodyBytes = 1 << 16

// controlRequest carries state as raw JSON so that fields the client
// leaves out take the sim.NewState defaults.
type controlRequest struct {
	Dt       *float64        `json:"dt"`
	ThetaRef float64         `json:"theta_ref"`
	Kp       *float64        `json:"kp"`
	Ki       *float64        `json:"ki"`
	Kd       *float64        `json:"kd"`
	ULimit   *float64        `json:"u_limit"`
	State    json.RawMessage `json:"state"`
}

type controlResponse struct {
	State sim.State `json:"state"`
	Error float64   `json:"error"`
	U     float64   `json:"u"`
}

type tuneRequest struct {
	Dt     *float64 `json:"dt"`
	Theta0 *float64 `json:"theta0"`
}

type tuneResponse struct {
	Kp   float64    `json:"kp"`
	Ki   float64    `json:"ki"`
	Kd   float64    `json:"kd"`
	Note string     `json:"note"`
	Raw  string     `json:"raw,omitempty"`
	Kind tuner.Kind `json:"kind"`
	Meta tuner.Meta `json:"meta"`
}

type rolloutRequest struct {
	Dt        *float64 `json:"dt"`
	Kp        *float64 `json:"kp"`
	Ki        *float64 `json:"ki"`
	Kd        *float64 `json:"kd"`
	Heuristic bool     `json:"heuristic"`
	Seconds   *float64 `json:"seconds"`
	Theta0    *float64 `json:"theta0"`
	Omega0    *float64 `json:"omega0"`
	ULimit    *float64 `json:"u_limit"`
	Trace     bool     `json:"trace"`
}

type rolloutResponse struct {
	Gains   control.Gains `json:"gains"`
	Metrics sim.Metrics   `json:"metrics"`
	Samples []sim.Sample  `json:"samples,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := require(map[string]*float64{"dt": req.Dt, "kp": req.Kp, "ki": req.Ki, "kd": req.Kd}); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.State) == 0 || string(req.State) == "null" {
		writeError(w, http.StatusBadRequest, errors.New("missing field: state"))
		return
	}
	st := sim.NewState()
	if err := json.Unmarshal(req.State, &st); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid state: %w", err))
		return
	}
	uLimit := s.cfg.ULimit
	if req.ULimit != nil {
		uLimit = *req.ULimit
	}
	if err := checkStep(*req.Dt, uLimit); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	g := control.Gains{Kp: *req.Kp, Ki: *req.Ki, Kd: *req.Kd}.Clamp()
	next, e, u := sim.Step(*req.Dt, st, g, req.ThetaRef, uLimit)
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("step diverged: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{State: next, Error: e, U: u})
}

func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	style, err := tuner.ParseStyle(r.URL.Query().Get("style"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mode, err := tuner.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var body tuneRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := require(map[string]*float64{"dt": body.Dt, "theta0": body.Theta0}); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req := tuner.Request{
		ID:     requestID(r.Context()),
		Dt:     *body.Dt,
		Theta0: *body.Theta0,
		Style:  style,
		Mode:   mode,
	}
	p, err := s.tuner.Propose(r.Context(), req)
	switch {
	case errors.Is(err, dynamo.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.WithFields(logrus.Fields{"request_id": req.ID, "style": style}).WithError(err).Error("tune failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, tuneResponse{
		Kp:   p.Gains.Kp,
		Ki:   p.Gains.Ki,
		Kd:   p.Gains.Kd,
		Note: p.Gains.Note,
		Raw:  p.Raw,
		Kind: p.Kind,
		Meta: p.Meta,
	})
}

func (s *Server) handleRollout(w http.ResponseWriter, r *http.Request) {
	var req rolloutRequest
	if !s.decode(w, r, &req) {
		return
	}

	cfg := s.cfg.RolloutConfig()
	if req.Dt != nil {
		cfg.Dt = *req.Dt
	}
	if req.Seconds != nil {
		cfg.Seconds = *req.Seconds
	}
	if req.Theta0 != nil {
		cfg.Theta0 = *req.Theta0
	}
	if req.Omega0 != nil {
		cfg.Omega0 = *req.Omega0
	}
	if req.ULimit != nil {
		cfg.ULimit = *req.ULimit
	}
	if err := checkStep(cfg.Dt, cfg.ULimit); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if cfg.Seconds <= 0 || cfg.Seconds > s.cfg.Server.MaxSeconds {
		writeError(w, http.StatusBadRequest, fmt.Errorf("seconds must be in (0, %g], got %g", s.cfg.Server.MaxSeconds, cfg.Seconds))
		return
	}

	var g control.Gains
	if req.Heuristic {
		g = control.Heuristic(cfg.Theta0, cfg.Dt)
	} else {
		if err := require(map[string]*float64{"kp": req.Kp, "ki": req.Ki, "kd": req.Kd}); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		g = control.Gains{Kp: *req.Kp, Ki: *req.Ki, Kd: *req.Kd}.Clamp()
	}

	resp := rolloutResponse{Gains: g}
	if req.Trace {
		tr := sim.RecordAtMost(cfg, g, s.cfg.Server.MaxSamples)
		resp.Metrics = tr.Metrics
		resp.Samples = tr.Samples
	} else {
		resp.Metrics = sim.Rollout(cfg, g)
	}
	if !finiteMetrics(resp.Metrics) {
		writeError(w, http.StatusUnprocessableEntity, errors.New("rollout diverged"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGains(w http.ResponseWriter, r *http.Request) {
	theta0, err := queryFloat(r, "theta0", s.cfg.InitState.Theta)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dt, err := queryFloat(r, "dt", s.cfg.Dt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, control.Heuristic(theta0, dt))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	kind := "heuristic"
	if _, ok := s.tuner.(*tuner.OpenAIProposer); ok {
		kind = "openai"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "tuner": kind})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	return true
}

// require reports the first missing field, checked in a fixed order.
func require(fields map[string]*float64) error {
	for _, name := range []string{"dt", "theta0", "kp", "ki", "kd"} {
		if v, ok := fields[name]; ok && v == nil {
			return fmt.Errorf("missing field: %s", name)
		}
	}
	return nil
}

func checkStep(dt, uLimit float64) error {
	if dt < 0 {
		return &dynamo.InputError{Field: "dt", Value: dt, Wrapped: dynamo.ErrInvalidInput}
	}
	if uLimit <= 0 {
		return &dynamo.InputError{Field: "u_limit", Value: uLimit, Wrapped: dynamo.ErrInvalidInput}
	}
	return nil
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if err := dynamo.CheckFinite(key, v); err != nil {
		return 0, err
	}
	return v, nil
}

func finiteMetrics(m sim.Metrics) bool {
	for _, v := range m.Map() {
		if !dynamo.IsFinite(v) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
