package model

import (
	"fmt"
	"math"
)

// BatteryParams holds the physical limits of a storage asset.
type BatteryParams struct {
	CapacityKWh float64 `json:"capacity_kwh"` // usable energy capacity
	PowerKW     float64 `json:"power_kw"`     // max charge/discharge power
	Efficiency  float64 `json:"efficiency"`   // one-way efficiency in (0,1]
	SoCMin      float64 `json:"soc_min"`      // lower SoC bound as a fraction of capacity
	SoCMax      float64 `json:"soc_max"`      // upper SoC bound as a fraction of capacity
}

// Validate checks the parameters describe a physically sound battery.
func (p BatteryParams) Validate() error {
	switch {
	case !(p.CapacityKWh > 0):
		return newConfigError("capacity_kwh", "must be positive")
	case !(p.PowerKW > 0):
		return newConfigError("power_kw", "must be positive")
	case !(p.Efficiency > 0) || p.Efficiency > 1:
		return newConfigError("efficiency", "must be in (0, 1]")
	case p.SoCMin < 0 || p.SoCMin > 1:
		return newConfigError("soc_min", "must be in [0, 1]")
	case p.SoCMax < 0 || p.SoCMax > 1:
		return newConfigError("soc_max", "must be in [0, 1]")
	case p.SoCMin >= p.SoCMax:
		return newConfigError("soc_min", "must be lower than soc_max")
	}
	return nil
}

// LowerKWh returns the minimal stored energy allowed.
func (p BatteryParams) LowerKWh() float64 { return p.CapacityKWh * p.SoCMin }

// UpperKWh returns the maximal stored energy allowed.
func (p BatteryParams) UpperKWh() float64 { return p.CapacityKWh * p.SoCMax }

// Battery tracks the state of charge of a single storage asset.
//
// The stored energy always stays within [CapacityKWh*SoCMin, CapacityKWh*SoCMax].
// Charge and Discharge clip the realised energy to the band instead of
// rejecting requests. Battery holds no references, so a plain value copy is an
// independent shadow state.
type Battery struct {
	params BatteryParams
	soc    float64 // stored energy in kWh
}

// NewBattery validates params and returns a fully charged battery
// (soc = capacity*socMax).
func NewBattery(params BatteryParams) (*Battery, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Battery{params: params, soc: params.UpperKWh()}, nil
}

// NewBatteryAt is like NewBattery but starts from the given stored energy in kWh.
func NewBatteryAt(params BatteryParams, socKWh float64) (*Battery, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(socKWh) || socKWh < params.LowerKWh() || socKWh > params.UpperKWh() {
		return nil, newConfigError("soc", fmt.Sprintf("%.3f kWh outside [%.3f, %.3f]", socKWh, params.LowerKWh(), params.UpperKWh()))
	}
	return &Battery{params: params, soc: socKWh}, nil
}

// Charge stores energy drawn at requestedPowerKW for durationH hours.
// The power is clamped to the rated power and the stored energy is reduced by
// the efficiency. It returns the energy that entered storage, which is zero
// when the battery already sits at its upper bound.
func (b *Battery) Charge(requestedPowerKW, durationH float64) float64 {
	if !validDuration(durationH) {
		return 0
	}
	energyIn := b.clampPower(requestedPowerKW) * durationH * b.params.Efficiency
	headroom := b.params.UpperKWh() - b.soc
	if headroom <= 0 {
		return 0
	}
	if energyIn >= headroom {
		b.soc = b.params.UpperKWh()
		b.mustHoldBand()
		return headroom
	}
	b.soc = math.Min(b.soc+energyIn, b.params.UpperKWh())
	b.mustHoldBand()
	return energyIn
}

// Discharge delivers requestedPowerKW to the grid for durationH hours.
// Delivering E to the grid draws E/efficiency from storage. The draw is
// clipped at the lower bound. It returns the energy delivered to the grid.
func (b *Battery) Discharge(requestedPowerKW, durationH float64) float64 {
	if !validDuration(durationH) {
		return 0
	}
	energyOut := b.clampPower(requestedPowerKW) * durationH / b.params.Efficiency
	available := b.soc - b.params.LowerKWh()
	if available <= 0 {
		return 0
	}
	if energyOut >= available {
		b.soc = b.params.LowerKWh()
		b.mustHoldBand()
		return available * b.params.Efficiency
	}
	b.soc = math.Max(b.soc-energyOut, b.params.LowerKWh())
	b.mustHoldBand()
	return energyOut * b.params.Efficiency
}

// SoC returns the state of charge as a fraction of capacity.
func (b *Battery) SoC() float64 { return b.soc / b.params.CapacityKWh }

// SoCKWh returns the stored energy in kWh.
func (b *Battery) SoCKWh() float64 { return b.soc }

// Capacity returns the energy capacity in kWh.
func (b *Battery) Capacity() float64 { return b.params.CapacityKWh }

// PowerLimit returns the rated power in kW.
func (b *Battery) PowerLimit() float64 { return b.params.PowerKW }

// Efficiency returns the one-way efficiency.
func (b *Battery) Efficiency() float64 { return b.params.Efficiency }

// SoCMin returns the lower SoC bound as a fraction.
func (b *Battery) SoCMin() float64 { return b.params.SoCMin }

// SoCMax returns the upper SoC bound as a fraction.
func (b *Battery) SoCMax() float64 { return b.params.SoCMax }

// Params returns the battery parameters.
func (b *Battery) Params() BatteryParams { return b.params }

// Clone returns an independent copy of the battery state.
func (b *Battery) Clone() Battery { return *b }

func (b *Battery) clampPower(p float64) float64 {
	if p <= 0 || math.IsNaN(p) {
		return 0
	}
	return math.Min(p, b.params.PowerKW)
}

// validDuration rejects zero, negative and non-finite step lengths.
func validDuration(h float64) bool {
	return h > 0 && !math.IsInf(h, 1)
}

func (b *Battery) mustHoldBand() {
	if math.IsNaN(b.soc) || b.soc < b.params.LowerKWh() || b.soc > b.params.UpperKWh() {
		panic(fmt.Errorf("%w: soc %.6f kWh outside [%.6f, %.6f]",
			ErrInvariantViolation, b.soc, b.params.LowerKWh(), b.params.UpperKWh()))
	}
}
