package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/tracelog"
)

var (
	decideAt  string
	decideSoC float64
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Ask the configured strategy for a single decision",
	RunE:  decide,
}

func init() {
	decideCmd.Flags().StringVar(&decideAt, "at", "", "RFC3339 timestamp, defaults to the first price")
	decideCmd.Flags().Float64Var(&decideSoC, "soc", 0, "state of charge as a fraction of capacity, defaults to simulation.initial_soc")
	rootCmd.AddCommand(decideCmd)
}

func decide(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var at time.Time
	if decideAt != "" {
		if at, err = time.Parse(time.RFC3339, decideAt); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}
	var soc *float64
	if cmd.Flags().Changed("soc") {
		soc = &decideSoC
	}

	svc, err := app.New(cfg, app.WithMetricsSink(coremetrics.NopSink{}), app.WithTraceStore(tracelog.NopStore{}))
	if err != nil {
		return err
	}
	defer svc.Close()

	d, err := svc.Decide(cmd.Context(), at, soc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
