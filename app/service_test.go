package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/config"
	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/factory"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/tracelog"
	"github.com/kilianp07/arbitrage/infra/logger"
)

var t0 = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

type captureSink struct {
	mu    sync.Mutex
	steps []coremetrics.StepEvent
	runs  []coremetrics.RunEvent
}

func (c *captureSink) RecordStep(ev coremetrics.StepEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, ev)
	return nil
}

func (c *captureSink) RecordRun(ev coremetrics.RunEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, ev)
	return nil
}

type captureMonitor struct {
	errs []error
	tags []map[string]string
}

func (m *captureMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *captureMonitor) Recover()            {}
func (m *captureMonitor) Flush(time.Duration) {}

type failingSource struct{}

func (failingSource) Fetch(context.Context, ...connectors.Option) (model.PriceSeries, error) {
	return nil, errors.New("feed offline")
}

func writePrices(t *testing.T, dir string, prices ...float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,price\n")
	for i, p := range prices {
		b.WriteString(t0.Add(time.Duration(i) * time.Hour).Format(time.RFC3339))
		b.WriteString(",")
		b.WriteString(strconv.FormatFloat(p, 'f', -1, 64))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Battery: config.BatteryConfig{CapacityKWh: 100, PowerKW: 50, Efficiency: 0.9},
		Strategy: factory.ModuleConfig{Type: "threshold"},
		Prices: config.PricesConfig{Source: factory.ModuleConfig{
			Type: "csv",
			Conf: map[string]any{"path": writePrices(t, dir, 30, 90, 50, 10, 95)},
		}},
		Trace:  tracelog.Config{Backend: "jsonl", Path: filepath.Join(dir, "trace.jsonl")},
		Export: config.ExportConfig{CSV: filepath.Join(dir, "out", "trace.csv"), Chart: filepath.Join(dir, "out", "chart.html")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceRun(t *testing.T) {
	dir := t.TempDir()
	sink := &captureSink{}
	svc, err := New(testConfig(t, dir),
		WithMetricsSink(sink),
		WithLogger(logger.NopLogger{}),
		WithRunID(func() string { return "run-1" }),
	)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "threshold", res.Strategy)
	require.Len(t, res.Records, 5)
	assert.InDelta(t, 8800, res.Summary.Revenue, 1e-9)
	assert.Zero(t, res.Dropped)

	require.Len(t, sink.steps, 5)
	assert.Equal(t, "run-1", sink.steps[0].RunID)
	require.Len(t, sink.runs, 1)
	assert.Empty(t, sink.runs[0].Err)
	assert.InDelta(t, 8800, sink.runs[0].Summary.Revenue, 1e-9)

	entries, err := svc.Store().Query(context.Background(), tracelog.Query{RunID: "run-1", Actions: []model.Action{model.ActionDischarge}})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	f, err := os.Open(filepath.Join(dir, "out", "trace.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.FileExists(t, filepath.Join(dir, "out", "chart.html"))
}

func TestServiceRunReportsFailures(t *testing.T) {
	mon := &captureMonitor{}
	svc, err := New(testConfig(t, t.TempDir()),
		WithPriceSource(failingSource{}),
		WithMetricsSink(coremetrics.NopSink{}),
		WithTraceStore(tracelog.NopStore{}),
		WithMonitor(mon),
		WithLogger(logger.NopLogger{}),
		WithRunID(func() string { return "run-2" }),
	)
	require.NoError(t, err)

	_, err = svc.Run(context.Background())
	require.ErrorContains(t, err, "feed offline")
	require.Len(t, mon.errs, 1)
	assert.Equal(t, "run-2", mon.tags[0]["run_id"])
	assert.Equal(t, "threshold", mon.tags[0]["strategy"])
}

func TestServiceRunCanceled(t *testing.T) {
	sink := &captureSink{}
	svc, err := New(testConfig(t, t.TempDir()), WithMetricsSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Run(ctx)
	assert.Error(t, err)
}

func TestNewRejectsUnknownModules(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Strategy.Type = "oracle"
	_, err := New(cfg)
	assert.ErrorContains(t, err, "strategy")

	cfg = testConfig(t, t.TempDir())
	cfg.Prices.Source.Type = "ftp"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "price source")
}

func TestServiceDecide(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Strategy = factory.ModuleConfig{Type: "horizon", Conf: map[string]any{"horizon": 2}}
	svc, err := New(cfg, WithMetricsSink(coremetrics.NopSink{}), WithTraceStore(tracelog.NopStore{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	low := 0.1
	d, err := svc.Decide(context.Background(), t0.Add(3*time.Hour+10*time.Minute), &low)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(3*time.Hour), d.Time)
	assert.Equal(t, 10.0, d.Price)
	assert.Equal(t, model.ActionCharge, d.Action)
	assert.Equal(t, "horizon", d.Strategy)

	d, err = svc.Decide(context.Background(), time.Time{}, nil)
	require.NoError(t, err)
	assert.Equal(t, t0, d.Time)
	assert.InDelta(t, 0.9, d.SoC, 1e-12)

	bad := 0.95
	_, err = svc.Decide(context.Background(), time.Time{}, &bad)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}
