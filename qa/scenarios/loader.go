// Package scenarios replays YAML described backtests through the full
// simulation loop. It backs the regression suite of the strategies.
package scenarios

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/arbitrage/core/model"
)

// Scenario is one replayable backtest with its expected outcome.
type Scenario struct {
	Name     string         `yaml:"name"`
	Battery  Battery        `yaml:"battery"`
	Strategy StrategyConfig `yaml:"strategy"`
	Start    time.Time      `yaml:"start"`
	Timestep string         `yaml:"timestep"`
	Prices   []float64      `yaml:"prices"`
	Expect   Expect         `yaml:"expect"`
}

type Battery struct {
	CapacityKWh float64  `yaml:"capacity_kwh"`
	PowerKW     float64  `yaml:"power_kw"`
	Efficiency  float64  `yaml:"efficiency"`
	SoCMin      float64  `yaml:"soc_min"`
	SoCMax      float64  `yaml:"soc_max"`
	InitialSoC  *float64 `yaml:"initial_soc"`
}

type StrategyConfig struct {
	Type string         `yaml:"type"`
	Conf map[string]any `yaml:"conf"`
}

// Expect lists the checks applied to the run. Empty fields are skipped.
type Expect struct {
	Actions   []model.Action `yaml:"actions"`
	Revenue   *float64       `yaml:"revenue"`
	FinalSoC  *float64       `yaml:"final_soc"`
	Tolerance float64        `yaml:"tolerance"`
}

// Load parses the scenario at path.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	return sc, nil
}

// LoadDir loads every .yaml file of dir sorted by name.
func LoadDir(dir string) ([]Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (sc Scenario) step() (time.Duration, error) {
	if sc.Timestep == "" {
		return time.Hour, nil
	}
	return time.ParseDuration(sc.Timestep)
}

// Series expands the price list into a series starting at Start.
func (sc Scenario) Series() (model.PriceSeries, error) {
	step, err := sc.step()
	if err != nil {
		return nil, err
	}
	s := make(model.PriceSeries, len(sc.Prices))
	for i, p := range sc.Prices {
		s[i] = model.PricePoint{Time: sc.Start.Add(time.Duration(i) * step), Price: p}
	}
	return s, nil
}

