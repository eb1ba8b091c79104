// Package config loads the YAML configuration used by the obdtool CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Adapter AdapterConfig `yaml:"adapter"`
	Polling PollingConfig `yaml:"polling"`
	Server  ServerConfig  `yaml:"server"`
}

type AdapterConfig struct {
	Type     string `yaml:"type"`      // "ELM327" or "Virtual"
	Port     string `yaml:"port"`      // e.g. /dev/rfcomm0
	BaudRate int    `yaml:"baud_rate"`
	Protocol string `yaml:"protocol"` // ATSP argument, "0" = search
	Debug    bool   `yaml:"debug"`
}

type PollingConfig struct {
	PeriodMs     int      `yaml:"period_ms"`
	CacheTTLSecs int      `yaml:"cache_ttl_s"`
	High         []string `yaml:"high"`
	Medium       []string `yaml:"medium"`
	Low          []string `yaml:"low"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

func Default() *Config {
	return &Config{
		Adapter: AdapterConfig{
			Type:     "ELM327",
			BaudRate: 38400,
			Protocol: "0",
		},
		Polling: PollingConfig{
			PeriodMs:     1000,
			CacheTTLSecs: 30,
			High:         []string{"0C", "0D"},
			Medium:       []string{"04", "05", "10", "11"},
			Low:          []string{"0B", "0E", "0F", "2F"},
		},
		Server: ServerConfig{
			Listen: ":8327",
		},
	}
}

// Load reads the file at path, filling unset fields with defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	def := Default()
	if c.Adapter.Type == "" {
		c.Adapter.Type = def.Adapter.Type
	}
	if c.Adapter.BaudRate == 0 {
		c.Adapter.BaudRate = def.Adapter.BaudRate
	}
	if c.Adapter.Protocol == "" {
		c.Adapter.Protocol = def.Adapter.Protocol
	}
	if c.Polling.PeriodMs == 0 {
		c.Polling.PeriodMs = def.Polling.PeriodMs
	}
	if c.Polling.CacheTTLSecs == 0 {
		c.Polling.CacheTTLSecs = def.Polling.CacheTTLSecs
	}
	if len(c.Polling.High) == 0 && len(c.Polling.Medium) == 0 && len(c.Polling.Low) == 0 {
		c.Polling.High = def.Polling.High
		c.Polling.Medium = def.Polling.Medium
		c.Polling.Low = def.Polling.Low
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
}

func (c *Config) validate() error {
	if c.Polling.PeriodMs < 100 {
		return fmt.Errorf("polling period %dms is below the 100ms minimum", c.Polling.PeriodMs)
	}
	return nil
}

// Period returns the polling period as a duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Polling.PeriodMs) * time.Millisecond
}

// CacheTTL returns the latest-reading cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Polling.CacheTTLSecs) * time.Second
}
