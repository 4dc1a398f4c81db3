// Package export writes dispatch traces to files for offline analysis.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

var csvHeader = []string{
	"time",
	"price",
	"action",
	"soc_before",
	"soc_after",
	"energy_kwh",
	"revenue",
	"cum_revenue",
}

// WriteCSV writes one row per record with a running revenue column.
func WriteCSV(w io.Writer, records []model.DispatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	var cum float64
	for _, r := range records {
		cum += r.Revenue
		row := []string{
			fmtTime(r.Time),
			fmtFloat(r.Price),
			r.Action.String(),
			fmtFloat(r.SoCBefore),
			fmtFloat(r.SoCAfter),
			fmtFloat(r.Energy),
			fmtFloat(r.Revenue),
			fmtFloat(cum),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
