package config

import (
	"fmt"
	"sort"
)

// Presets are named scenarios. Only dt, duration and the initial state are
// taken from a preset; gains and service settings stay as configured.
var Presets = map[string]*Config{
	"default": {
		Dt: 0.05, Duration: 6.0,
		InitState: InitStateConfig{Theta: 3.0, Omega: 0.0},
	},
	"small": {
		Dt: 0.05, Duration: 10.0,
		InitState: InitStateConfig{Theta: 0.5, Omega: 0.0},
	},
	"large": {
		Dt: 0.05, Duration: 20.0,
		InitState: InitStateConfig{Theta: 5.0, Omega: 0.0},
	},
	"spinning": {
		Dt: 0.02, Duration: 15.0,
		InitState: InitStateConfig{Theta: 0.2, Omega: 2.0},
	},
	"fine-dt": {
		Dt: 0.005, Duration: 6.0,
		InitState: InitStateConfig{Theta: 3.0, Omega: 0.0},
	},
	"coarse-dt": {
		Dt: 0.1, Duration: 6.0,
		InitState: InitStateConfig{Theta: 3.0, Omega: 0.0},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) ApplyPreset(name string) error {
	p := GetPreset(name)
	if p == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", name, ListPresets())
	}
	c.Dt = p.Dt
	c.Duration = p.Duration
	c.InitState = p.InitState
	return nil
}
