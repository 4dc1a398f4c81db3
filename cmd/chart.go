package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/tracelog"
	"github.com/kilianp07/arbitrage/pkg/export"
)

var chartOut string

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the configured price series to an HTML chart",
	RunE:  chart,
}

func init() {
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "prices.html", "output file")
	rootCmd.AddCommand(chartCmd)
}

func chart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg, app.WithMetricsSink(coremetrics.NopSink{}), app.WithTraceStore(tracelog.NopStore{}))
	if err != nil {
		return err
	}
	defer svc.Close()

	series, err := svc.Prices(cmd.Context())
	if err != nil {
		return err
	}
	f, err := os.Create(chartOut)
	if err != nil {
		return err
	}
	if err := export.PriceChartHTML(f, "Price Chart", series); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d prices to %s\n", len(series), chartOut)
	return nil
}
