package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ApplyEnv loads the given .env files (missing files are skipped) and then
// overlays environment variables onto cfg.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	v := viper.New()
	for key, env := range map[string]string{
		"api_key":   "OPENAI_API_KEY",
		"model":     "OPENAI_MODEL",
		"base_url":  "OPENAI_BASE_URL",
		"timeout":   "UFOSIM_TUNER_TIMEOUT",
		"addr":      "UFOSIM_ADDR",
		"log_level": "UFOSIM_LOG_LEVEL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}

	if v.IsSet("api_key") {
		c.Tuner.APIKey = v.GetString("api_key")
	}
	if v.IsSet("model") {
		c.Tuner.Model = v.GetString("model")
	}
	if v.IsSet("base_url") {
		c.Tuner.BaseURL = v.GetString("base_url")
	}
	if v.IsSet("timeout") {
		if d := v.GetDuration("timeout"); d > 0 {
			c.Tuner.Timeout = d
		}
	}
	if v.IsSet("addr") {
		c.Server.Addr = v.GetString("addr")
	}
	if v.IsSet("log_level") {
		c.Log.Level = v.GetString("log_level")
	}
	return nil
}
