// Package config loads the application configuration with koanf from a
// YAML, JSON or TOML file followed by K_ prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/arbitrage/core/factory"
	"github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/tracelog"
	"github.com/kilianp07/arbitrage/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. K_BATTERY__CAPACITY_KWH=200
// sets battery.capacity_kwh.
const EnvPrefix = "K_"

type Config struct {
	Battery    BatteryConfig        `json:"battery"`
	Simulation SimulationConfig     `json:"simulation"`
	Strategy   factory.ModuleConfig `json:"strategy"`
	Prices     PricesConfig         `json:"prices"`
	Trace      tracelog.Config      `json:"trace"`
	Export     ExportConfig         `json:"export"`
	Metrics    metrics.Config       `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Sentry     SentryConfig         `json:"sentry"`
	Server     ServerConfig         `json:"server"`
}

// Load reads path, applies environment overrides, defaults and validation.
// An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return TOML(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults fills unset values of every section.
func (c *Config) SetDefaults() {
	c.Battery.SetDefaults()
	c.Simulation.SetDefaults()
	if c.Strategy.Type == "" {
		c.Strategy.Type = "threshold"
	}
	c.Prices.SetDefaults()
	c.Sentry.SetDefaults()
	c.Server.SetDefaults()
}

// Validate checks every section and reports all failures at once.
func (c *Config) Validate() error {
	errs := []error{
		c.Battery.Validate(),
		c.Simulation.Validate(c.Battery),
		c.Prices.Validate(),
		c.Trace.Validate(),
		c.Sentry.Validate(),
	}
	if c.MQTT.Enabled() {
		errs = append(errs, c.MQTT.Validate())
	}
	return errors.Join(errs...)
}
