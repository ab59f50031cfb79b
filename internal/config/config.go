package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/sim"
	"github.com/san-kum/ufosim/internal/tuner"
)

const (
	DefaultDt         = sim.DefaultRolloutDt
	DefaultDuration   = sim.DefaultRolloutSeconds
	DefaultTheta      = sim.DefaultTheta0
	DefaultULimit     = sim.DefaultULimit
	DefaultKp         = 2.0
	DefaultKi         = 0.05
	DefaultKd         = 0.9
	DefaultAddr       = ":8000"
	DefaultMaxSeconds = 600.0
	DefaultMaxSamples = 20000
	DefaultTimeout    = 60 * time.Second
)

type Config struct {
	Dt        float64          `yaml:"dt"`
	Duration  float64          `yaml:"duration"`
	ThetaRef  float64          `yaml:"theta_ref"`
	ULimit    float64          `yaml:"u_limit"`
	InitState InitStateConfig  `yaml:"init_state"`
	Gains     ControllerConfig `yaml:"gains"`
	Server    ServerConfig     `yaml:"server"`
	Tuner     TunerConfig      `yaml:"tuner"`
	Log       LogConfig        `yaml:"log"`
}

type InitStateConfig struct {
	Theta float64 `yaml:"theta"`
	Omega float64 `yaml:"omega"`
}

type ControllerConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
	// Heuristic replaces kp, ki, kd with control.Heuristic for the
	// configured theta and dt.
	Heuristic bool `yaml:"heuristic"`
}

type ServerConfig struct {
	Addr       string  `yaml:"addr"`
	MaxSeconds float64 `yaml:"max_seconds"`
	// MaxSamples caps the samples returned by a traced /rollout; longer
	// traces are strided. Zero returns every tick.
	MaxSamples  int    `yaml:"max_samples"`
	AllowOrigin string `yaml:"allow_origin"`
}

type TunerConfig struct {
	APIKey  string        `yaml:"-"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	Style   string        `yaml:"style"`
	Mode    string        `yaml:"mode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		ULimit:   DefaultULimit,
		InitState: InitStateConfig{
			Theta: DefaultTheta,
		},
		Gains: ControllerConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
		Server: ServerConfig{
			Addr:        DefaultAddr,
			MaxSeconds:  DefaultMaxSeconds,
			MaxSamples:  DefaultMaxSamples,
			AllowOrigin: "*",
		},
		Tuner: TunerConfig{
			Model:   tuner.DefaultModel,
			Timeout: DefaultTimeout,
			Style:   string(tuner.StyleAgentTool),
			Mode:    string(tuner.ModeStructured),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the numeric fields that the simulator core accepts
// without complaint but that make no sense as configuration.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"dt", c.Dt},
		{"duration", c.Duration},
		{"theta_ref", c.ThetaRef},
		{"u_limit", c.ULimit},
		{"init_state.theta", c.InitState.Theta},
		{"init_state.omega", c.InitState.Omega},
		{"server.max_seconds", c.Server.MaxSeconds},
	} {
		if err := dynamo.CheckFinite(f.name, f.v); err != nil {
			return err
		}
	}
	if c.Dt < 0 {
		return &dynamo.InputError{Field: "dt", Value: c.Dt, Wrapped: dynamo.ErrInvalidInput}
	}
	if c.ULimit <= 0 {
		return &dynamo.InputError{Field: "u_limit", Value: c.ULimit, Wrapped: dynamo.ErrInvalidInput}
	}
	if c.Duration <= 0 || c.Duration > c.Server.MaxSeconds {
		return &dynamo.InputError{Field: "duration", Value: c.Duration, Wrapped: dynamo.ErrInvalidInput}
	}
	if c.Server.MaxSamples < 0 {
		return &dynamo.InputError{Field: "server.max_samples", Value: float64(c.Server.MaxSamples), Wrapped: dynamo.ErrInvalidInput}
	}
	if _, err := tuner.ParseStyle(c.Tuner.Style); err != nil {
		return err
	}
	if _, err := tuner.ParseMode(c.Tuner.Mode); err != nil {
		return err
	}
	return c.GetGains().Validate()
}

func (c *Config) GetInitState() sim.State {
	s := sim.NewState()
	s.Theta = c.InitState.Theta
	s.Omega = c.InitState.Omega
	return s
}

// GetGains returns the configured triple, clamped into range.
func (c *Config) GetGains() control.Gains {
	if c.Gains.Heuristic {
		return control.Heuristic(c.InitState.Theta, c.Dt)
	}
	g := control.Gains{Kp: c.Gains.Kp, Ki: c.Gains.Ki, Kd: c.Gains.Kd}
	if g.Validate() != nil {
		return g
	}
	return g.Clamp()
}

func (c *Config) RolloutConfig() sim.RolloutConfig {
	return sim.RolloutConfig{
		Dt:      c.Dt,
		Seconds: c.Duration,
		Theta0:  c.InitState.Theta,
		Omega0:  c.InitState.Omega,
		ULimit:  c.ULimit,
	}
}

func (c *Config) TunerOptions() tuner.Options {
	return tuner.Options{
		APIKey:  c.Tuner.APIKey,
		BaseURL: c.Tuner.BaseURL,
		Model:   c.Tuner.Model,
		Timeout: c.Tuner.Timeout,
	}
}
