package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/model"
)

// PromSink records dispatch steps in Prometheus metrics.
type PromSink struct {
	steps    *prometheus.CounterVec
	energy   *prometheus.CounterVec
	revenue  *prometheus.GaugeVec
	soc      *prometheus.GaugeVec
	price    *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbitrage_steps_total",
			Help: "Dispatch steps applied, by action",
		}, []string{"strategy", "action"}),
		energy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbitrage_energy_kwh_total",
			Help: "Energy exchanged with the grid",
		}, []string{"strategy", "direction"}),
		revenue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbitrage_revenue",
			Help: "Cumulative arbitrage revenue, negative when charging costs dominate",
		}, []string{"strategy"}),
		soc: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbitrage_soc_ratio",
			Help: "State of charge after the last step as a fraction of capacity",
		}, []string{"strategy"}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbitrage_price",
			Help: "Market price of the last dispatched step",
		}, []string{"strategy"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbitrage_decision_latency_seconds",
			Help:    "Time spent by the strategy to decide one step",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"strategy"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbitrage_runs_total",
			Help: "Simulation runs, by outcome",
		}, []string{"strategy", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbitrage_run_duration_seconds",
			Help:    "Wall time of a simulation run",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}
	var err error
	if s.steps, err = register(reg, s.steps); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, s.energy); err != nil {
		return nil, err
	}
	if s.revenue, err = register(reg, s.revenue); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, s.soc); err != nil {
		return nil, err
	}
	if s.price, err = register(reg, s.price); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordStep updates the counters and gauges for one step.
func (s *PromSink) RecordStep(ev coremetrics.StepEvent) error {
	r := ev.Record
	s.steps.WithLabelValues(ev.Strategy, r.Action.String()).Inc()
	switch r.Action {
	case model.ActionCharge:
		s.energy.WithLabelValues(ev.Strategy, "charge").Add(r.Energy)
	case model.ActionDischarge:
		s.energy.WithLabelValues(ev.Strategy, "discharge").Add(r.Energy)
	}
	s.revenue.WithLabelValues(ev.Strategy).Add(r.Revenue)
	s.soc.WithLabelValues(ev.Strategy).Set(r.SoCAfter)
	s.price.WithLabelValues(ev.Strategy).Set(r.Price)
	s.latency.WithLabelValues(ev.Strategy).Observe(ev.Latency.Seconds())
	return nil
}

// RecordRun counts finished runs and observes their duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	status := "ok"
	if ev.Err != "" {
		status = "error"
	}
	s.runs.WithLabelValues(ev.Strategy, status).Inc()
	s.duration.WithLabelValues(ev.Strategy).Observe(ev.Duration.Seconds())
	return nil
}
