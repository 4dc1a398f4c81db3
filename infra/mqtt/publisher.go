package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/core/factory"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/infra/logger"
)

// Decision is the payload published for every dispatch step.
type Decision struct {
	RunID     string       `json:"run_id"`
	Strategy  string       `json:"strategy"`
	Time      time.Time    `json:"time"`
	Price     float64      `json:"price"`
	Action    model.Action `json:"action"`
	SoCBefore float64      `json:"soc_before"`
	SoCAfter  float64      `json:"soc_after"`
	Energy    float64      `json:"energy_kwh"`
	Revenue   float64      `json:"revenue"`
	LatencyMS float64      `json:"latency_ms"`
}

// RunSummary is the retained payload published when a run ends.
type RunSummary struct {
	RunID    string        `json:"run_id"`
	Strategy string        `json:"strategy"`
	Start    time.Time     `json:"start"`
	Duration float64       `json:"duration_s"`
	Summary  model.Summary `json:"summary"`
	Error    string        `json:"error,omitempty"`
}

// Publisher sends decisions to <prefix>/<run_id>/decision and the run
// summary to <prefix>/<run_id>/summary. It implements the metrics sink
// interfaces so it can be configured next to Prometheus and InfluxDB.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	cli, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}
	p := &Publisher{
		cli:        cli,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}
	if p.prefix == "" {
		p.prefix = DefaultTopicPrefix
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	return p, nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink("mqtt", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		p, err := NewPublisher(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// DecisionTopic returns the topic receiving the decisions of runID.
func (p *Publisher) DecisionTopic(runID string) string {
	return fmt.Sprintf("%s/%s/decision", p.prefix, runID)
}

// SummaryTopic returns the topic receiving the summary of runID.
func (p *Publisher) SummaryTopic(runID string) string {
	return fmt.Sprintf("%s/%s/summary", p.prefix, runID)
}

// RecordStep publishes the decision of one step.
func (p *Publisher) RecordStep(ev coremetrics.StepEvent) error {
	r := ev.Record
	return p.publish(p.DecisionTopic(ev.RunID), p.qos["decision"], false, Decision{
		RunID:     ev.RunID,
		Strategy:  ev.Strategy,
		Time:      r.Time,
		Price:     r.Price,
		Action:    r.Action,
		SoCBefore: r.SoCBefore,
		SoCAfter:  r.SoCAfter,
		Energy:    r.Energy,
		Revenue:   r.Revenue,
		LatencyMS: float64(ev.Latency.Microseconds()) / 1000,
	})
}

// RecordRun publishes the retained run summary.
func (p *Publisher) RecordRun(ev coremetrics.RunEvent) error {
	return p.publish(p.SummaryTopic(ev.RunID), p.qos["summary"], true, RunSummary{
		RunID:    ev.RunID,
		Strategy: ev.Strategy,
		Start:    ev.Start,
		Duration: ev.Duration.Seconds(),
		Summary:  ev.Summary,
		Error:    ev.Err,
	})
}

func (p *Publisher) publish(topic string, qos byte, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.log.Errorf("publish to %s attempt %d failed: %v", topic, attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close gracefully disconnects from the broker.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
