package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving dispatch points.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// StepPoint converts a step event into its line protocol point.
func StepPoint(ev coremetrics.StepEvent) *write.Point {
	r := ev.Record
	return write.NewPointWithMeasurement("dispatch_step").
		AddTag("run_id", ev.RunID).
		AddTag("strategy", ev.Strategy).
		AddTag("action", r.Action.String()).
		AddField("price", round3(r.Price)).
		AddField("soc_before", round3(r.SoCBefore)).
		AddField("soc_after", round3(r.SoCAfter)).
		AddField("energy_kwh", round3(r.Energy)).
		AddField("revenue", round3(r.Revenue)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(r.Time)
}

// RecordStep writes one point per dispatch step, stamped with the step time.
func (s *InfluxSink) RecordStep(ev coremetrics.StepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, StepPoint(ev))
}

// RecordRun writes the run summary.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", ev.RunID).
		AddTag("strategy", ev.Strategy).
		AddField("steps", ev.Summary.Steps).
		AddField("revenue", round3(ev.Summary.Revenue)).
		AddField("energy_charged_kwh", round3(ev.Summary.EnergyCharged)).
		AddField("energy_discharged_kwh", round3(ev.Summary.EnergyDischarged)).
		AddField("cycles", round3(ev.Summary.Cycles)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("error", ev.Err).
		SetTime(ev.Start)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
