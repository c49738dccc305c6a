package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Survey struct {
		TTL string `yaml:"ttl"`
	} `yaml:"survey"`
	Progress struct {
		TTL string `yaml:"ttl"`
	} `yaml:"progress"`
	Reaction struct {
		CountdownSeconds *int   `yaml:"countdownSeconds"`
		MinDelay         string `yaml:"minDelay"`
		MaxDelay         string `yaml:"maxDelay"`
	} `yaml:"reaction"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, but a missing file yields the zero config.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	return cfg, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Countdown returns the configured countdown, or fallback when unset or negative.
func (c Config) Countdown(fallback int) int {
	if c.Reaction.CountdownSeconds == nil || *c.Reaction.CountdownSeconds < 0 {
		return fallback
	}
	return *c.Reaction.CountdownSeconds
}
