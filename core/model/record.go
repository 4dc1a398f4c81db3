package model

import "time"

// DispatchRecord captures the outcome of one simulated time step.
type DispatchRecord struct {
	Time      time.Time `json:"time"`
	Price     float64   `json:"price"`
	Action    Action    `json:"action"`
	SoCBefore float64   `json:"soc_before"` // fraction of capacity
	SoCAfter  float64   `json:"soc_after"`  // fraction of capacity
	Energy    float64   `json:"energy_kwh"` // magnitude exchanged, see Battery.Charge/Discharge
	Revenue   float64   `json:"revenue"`    // negative when charging
}

// Summary aggregates a dispatch trace.
type Summary struct {
	Steps            int            `json:"steps"`
	Actions          map[Action]int `json:"actions"`
	EnergyCharged    float64        `json:"energy_charged_kwh"`
	EnergyDischarged float64        `json:"energy_discharged_kwh"`
	Revenue          float64        `json:"revenue"`
	FinalSoC         float64        `json:"final_soc"`
	Cycles           float64        `json:"equivalent_cycles"`
}

// Summarize folds records into a Summary. Equivalent full cycles are computed
// against the usable band of params; a zero band leaves Cycles at zero.
func Summarize(records []DispatchRecord, params BatteryParams) Summary {
	sum := Summary{Steps: len(records), Actions: make(map[Action]int, len(Actions))}
	for _, r := range records {
		sum.Actions[r.Action]++
		sum.Revenue += r.Revenue
		switch r.Action {
		case ActionCharge:
			sum.EnergyCharged += r.Energy
		case ActionDischarge:
			sum.EnergyDischarged += r.Energy
		}
	}
	if n := len(records); n > 0 {
		sum.FinalSoC = records[n-1].SoCAfter
	}
	if usable := params.UpperKWh() - params.LowerKWh(); usable > 0 {
		sum.Cycles = sum.EnergyDischarged / usable
	}
	return sum
}
