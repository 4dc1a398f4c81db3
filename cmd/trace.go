package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	apitrace "github.com/kilianp07/arbitrage/api/trace"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/tracelog"
	"github.com/kilianp07/arbitrage/pkg/export"
)

var (
	traceRunID    string
	traceStrategy string
	traceStart    string
	traceEnd      string
	traceActions  []string
	traceLimit    int
	traceFormat   string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Query persisted dispatch traces",
	RunE:  queryTrace,
}

func init() {
	f := traceCmd.Flags()
	f.StringVar(&traceRunID, "run-id", "", "filter by run id")
	f.StringVar(&traceStrategy, "strategy", "", "filter by strategy name")
	f.StringVar(&traceStart, "start", "", "RFC3339 lower bound (inclusive)")
	f.StringVar(&traceEnd, "end", "", "RFC3339 upper bound (inclusive)")
	f.StringSliceVar(&traceActions, "action", nil, "filter by action (idle, charge, discharge)")
	f.IntVar(&traceLimit, "limit", 0, "maximum number of entries")
	f.StringVar(&traceFormat, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(traceCmd)
}

func queryTrace(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q, err := apitrace.ParseQuery(url.Values{
		"run_id":   {traceRunID},
		"strategy": {traceStrategy},
		"start":    {traceStart},
		"end":      {traceEnd},
		"action":   traceActions,
		"limit":    {fmt.Sprint(traceLimit)},
	})
	if err != nil {
		return err
	}
	store, err := tracelog.Open(cfg.Trace)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	switch traceFormat {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []tracelog.Entry{}
		}
		return enc.Encode(entries)
	case "csv":
		recs := make([]model.DispatchRecord, len(entries))
		for i, e := range entries {
			recs[i] = e.DispatchRecord
		}
		return export.WriteCSV(cmd.OutOrStdout(), recs)
	default:
		return fmt.Errorf("unknown format %q", traceFormat)
	}
}
