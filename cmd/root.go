package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
	"github.com/kilianp07/arbitrage/config"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/monitoring"
	"github.com/kilianp07/arbitrage/infra/logger"
	inframon "github.com/kilianp07/arbitrage/infra/monitoring"
)

var (
	cfgPath string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:               "arbitrage",
	Short:             "Battery arbitrage dispatch engine",
	Long:              "Simulates charge, discharge and idle decisions of a battery against a price series.",
	SilenceUsage:      true,
	PersistentPreRunE: loadEnv,
	RunE:              run,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest with the configured strategy",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadEnv loads the dotenv file without overriding variables already set.
// A missing file is ignored.
func loadEnv(cmd *cobra.Command, _ []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newService(cfg *config.Config, opts ...app.Option) (*app.Service, monitoring.Monitor, error) {
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, nil, fmt.Errorf("sentry: %w", err)
	}
	svc, err := app.New(cfg, append([]app.Option{app.WithMonitor(mon)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return svc, mon, nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, mon, err := newService(cfg)
	if err != nil {
		return err
	}
	defer mon.Recover()
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	return printSummary(cmd, res)
}

func printSummary(cmd *cobra.Command, res *app.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	s := res.Summary
	fmt.Fprintf(w, "run\t%s\n", res.RunID)
	fmt.Fprintf(w, "strategy\t%s\n", res.Strategy)
	fmt.Fprintf(w, "steps\t%d\n", s.Steps)
	for _, a := range model.Actions {
		fmt.Fprintf(w, "  %s\t%d\n", a, s.Actions[a])
	}
	fmt.Fprintf(w, "energy charged (kWh)\t%.3f\n", s.EnergyCharged)
	fmt.Fprintf(w, "energy discharged (kWh)\t%.3f\n", s.EnergyDischarged)
	fmt.Fprintf(w, "equivalent cycles\t%.3f\n", s.Cycles)
	fmt.Fprintf(w, "final soc\t%.3f\n", s.FinalSoC)
	fmt.Fprintf(w, "revenue\t%.2f\n", s.Revenue)
	return w.Flush()
}
