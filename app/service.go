// Package app wires configuration, price sources, strategies and sinks around
// the simulation loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/arbitrage/config"
	"github.com/kilianp07/arbitrage/connectors"
	sources "github.com/kilianp07/arbitrage/connectors/factory"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/monitoring"
	"github.com/kilianp07/arbitrage/core/simulation"
	"github.com/kilianp07/arbitrage/core/strategy"
	"github.com/kilianp07/arbitrage/core/tracelog"
	"github.com/kilianp07/arbitrage/infra/logger"
	"github.com/kilianp07/arbitrage/infra/metrics"
	"github.com/kilianp07/arbitrage/infra/mqtt"
	"github.com/kilianp07/arbitrage/internal/eventbus"
	"github.com/kilianp07/arbitrage/pkg/export"
)

// Service runs backtests described by a configuration.
type Service struct {
	cfg      *config.Config
	source   connectors.PriceSource
	strategy strategy.Strategy
	sink     coremetrics.MetricsSink
	store    tracelog.Store
	monitor  monitoring.Monitor
	gatherer prometheus.Gatherer
	log      logger.Logger
	newRunID func() string
}

// Option overrides a component built from the configuration.
type Option func(*Service)

func WithPriceSource(src connectors.PriceSource) Option {
	return func(s *Service) { s.source = src }
}

func WithMetricsSink(sink coremetrics.MetricsSink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithTraceStore(store tracelog.Store) Option {
	return func(s *Service) { s.store = store }
}

func WithMonitor(m monitoring.Monitor) Option {
	return func(s *Service) { s.monitor = m }
}

// WithGatherer sets the registry served on metrics.addr.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Service) { s.gatherer = g }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRunID fixes the id generator, mostly for tests.
func WithRunID(f func() string) Option {
	return func(s *Service) { s.newRunID = f }
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Strategy string
	Records  []model.DispatchRecord
	Summary  model.Summary
	Dropped  uint64 // step events the metrics bus could not deliver
}

// New creates a Service from the configuration. Components not supplied
// through options are built from their config sections.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, gatherer: prometheus.DefaultGatherer, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.New("service")
	}
	s.monitor = monitoring.OrNop(s.monitor)

	strat, err := strategy.New(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	s.strategy = strat

	if s.source == nil {
		if s.source, err = sources.NewPriceSource(cfg.Prices.Source); err != nil {
			return nil, fmt.Errorf("price source: %w", err)
		}
	}
	if s.sink == nil {
		if s.sink, err = buildSink(cfg); err != nil {
			return nil, err
		}
	}
	if s.store == nil {
		if s.store, err = tracelog.Open(cfg.Trace); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func buildSink(cfg *config.Config) (coremetrics.MetricsSink, error) {
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if !cfg.MQTT.Enabled() {
		return sink, nil
	}
	pub, err := mqtt.NewPublisher(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt publisher: %w", err)
	}
	return coremetrics.NewMultiSink(sink, pub), nil
}

// Strategy returns the configured strategy.
func (s *Service) Strategy() strategy.Strategy { return s.strategy }

// Store returns the trace store.
func (s *Service) Store() tracelog.Store { return s.store }

// Prices fetches the configured price window.
func (s *Service) Prices(ctx context.Context) (model.PriceSeries, error) {
	series, err := s.source.Fetch(ctx, s.cfg.Prices.Options()...)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	return series, nil
}

// Run fetches prices and simulates the configured battery over them. While it
// runs, step events flow through a bus to the metrics sink and every record
// is appended to the trace store. When metrics.addr is set the Prometheus
// endpoint is served for the duration of the run.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	runID := s.newRunID()
	name := s.strategy.Name()
	tags := map[string]string{"run_id": runID, "strategy": name}
	res, err := s.run(ctx, runID)
	if err != nil {
		s.monitor.CaptureException(err, tags)
		s.log.Errorf("run %s failed: %v", runID, err)
	}
	return res, err
}

func (s *Service) run(ctx context.Context, runID string) (*Result, error) {
	name := s.strategy.Name()
	series, err := s.Prices(ctx)
	if err != nil {
		return nil, err
	}
	battery, err := s.cfg.NewBattery()
	if err != nil {
		return nil, err
	}

	bus := eventbus.NewTypedBuffered[coremetrics.StepEvent](len(series))
	collected := metrics.StartEventCollector(context.WithoutCancel(ctx), bus, s.sink, logger.New("collector"))
	recorder := &tracelog.Recorder{Ctx: ctx, Store: s.store, RunID: runID, Strategy: name}
	sim := simulation.New(recorder, simulation.ObserverFunc(func(rec model.DispatchRecord, latency time.Duration) {
		bus.Publish(coremetrics.StepEvent{RunID: runID, Strategy: name, Record: rec, Latency: latency})
	}))
	sim.Timestep = s.cfg.Simulation.Timestep
	sim.Log = logger.New("simulation")

	s.log.Infow("run started", map[string]any{"run_id": runID, "strategy": name, "steps": len(series)})
	start := time.Now()
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	if addr := s.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error { return metrics.StartPromServer(gctx, addr, s.gatherer) })
	}
	var records []model.DispatchRecord
	g.Go(func() error {
		defer stop()
		var err error
		records, err = sim.Run(gctx, series, battery, s.strategy)
		return err
	})
	runErr := g.Wait()
	bus.Close()
	<-collected

	res := &Result{
		RunID:    runID,
		Strategy: name,
		Records:  records,
		Summary:  model.Summarize(records, battery.Params()),
		Dropped:  bus.Dropped(),
	}
	ev := coremetrics.RunEvent{RunID: runID, Strategy: name, Summary: res.Summary, Start: start, Duration: time.Since(start)}
	if runErr != nil {
		ev.Err = runErr.Error()
	}
	if rr, ok := s.sink.(coremetrics.RunRecorder); ok {
		if err := rr.RecordRun(ev); err != nil {
			s.log.Warnf("record run: %v", err)
		}
	}
	if runErr != nil {
		return res, runErr
	}
	if err := recorder.Err(); err != nil {
		return res, fmt.Errorf("trace: %w", err)
	}
	if err := s.Export(res); err != nil {
		return res, err
	}
	s.log.Infow("run finished", map[string]any{
		"run_id":  runID,
		"revenue": res.Summary.Revenue,
		"cycles":  res.Summary.Cycles,
	})
	return res, nil
}

// Export writes the files listed in the export section.
func (s *Service) Export(res *Result) error {
	ec := s.cfg.Export
	writers := []struct {
		path  string
		write func(*os.File) error
	}{
		{ec.CSV, func(f *os.File) error { return export.WriteCSV(f, res.Records) }},
		{ec.JSON, func(f *os.File) error {
			return export.WriteJSON(f, export.Report{RunID: res.RunID, Strategy: res.Strategy, Summary: res.Summary, Records: res.Records})
		}},
		{ec.Chart, func(f *os.File) error {
			return export.DispatchChartHTML(f, fmt.Sprintf("%s run %s", res.Strategy, res.RunID), res.Records)
		}},
	}
	for _, w := range writers {
		if w.path == "" {
			continue
		}
		if err := writeFile(w.path, w.write); err != nil {
			return fmt.Errorf("export %s: %w", w.path, err)
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Close releases the sink, the trace store and flushes the monitor.
func (s *Service) Close() error {
	var errs []error
	if c, ok := s.sink.(coremetrics.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
