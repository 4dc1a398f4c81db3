package export

import (
	"encoding/json"
	"io"

	"github.com/kilianp07/arbitrage/core/model"
)

// Report is the JSON document produced for a run.
type Report struct {
	RunID    string                 `json:"run_id,omitempty"`
	Strategy string                 `json:"strategy,omitempty"`
	Summary  model.Summary          `json:"summary"`
	Records  []model.DispatchRecord `json:"records"`
}

// WriteJSON encodes rep as indented JSON.
func WriteJSON(w io.Writer, rep Report) error {
	if rep.Records == nil {
		rep.Records = []model.DispatchRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
