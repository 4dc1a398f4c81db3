package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// BatteryConfig describes the simulated storage asset.
type BatteryConfig struct {
	CapacityKWh float64 `json:"capacity_kwh"`
	PowerKW     float64 `json:"power_kw"`
	Efficiency  float64 `json:"efficiency"`
	SoCMin      float64 `json:"soc_min"`
	SoCMax      float64 `json:"soc_max"`
}

// SetDefaults applies the 10%-90% band when no band is configured.
func (c *BatteryConfig) SetDefaults() {
	if c.SoCMin == 0 && c.SoCMax == 0 {
		c.SoCMin, c.SoCMax = 0.1, 0.9
	}
	if c.Efficiency == 0 {
		c.Efficiency = 1
	}
}

// Params converts the section to battery parameters.
func (c BatteryConfig) Params() model.BatteryParams {
	return model.BatteryParams{
		CapacityKWh: c.CapacityKWh,
		PowerKW:     c.PowerKW,
		Efficiency:  c.Efficiency,
		SoCMin:      c.SoCMin,
		SoCMax:      c.SoCMax,
	}
}

func (c BatteryConfig) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	return nil
}

// SimulationConfig controls the simulation loop.
type SimulationConfig struct {
	Timestep time.Duration `json:"timestep"`
	// InitialSoC is the starting state of charge as a fraction of capacity.
	// Nil starts from soc_max.
	InitialSoC *float64 `json:"initial_soc"`
}

func (c *SimulationConfig) SetDefaults() {
	if c.Timestep == 0 {
		c.Timestep = time.Hour
	}
}

func (c SimulationConfig) Validate(b BatteryConfig) error {
	if c.Timestep <= 0 {
		return fmt.Errorf("simulation: timestep must be positive")
	}
	if c.InitialSoC != nil && (*c.InitialSoC < b.SoCMin || *c.InitialSoC > b.SoCMax) {
		return fmt.Errorf("simulation: initial_soc %.3f outside [%.3f, %.3f]", *c.InitialSoC, b.SoCMin, b.SoCMax)
	}
	return nil
}

// NewBattery builds the configured battery at its initial state of charge.
func (c *Config) NewBattery() (*model.Battery, error) {
	params := c.Battery.Params()
	if c.Simulation.InitialSoC == nil {
		return model.NewBattery(params)
	}
	return model.NewBatteryAt(params, *c.Simulation.InitialSoC*params.CapacityKWh)
}
