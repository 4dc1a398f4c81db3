package metrics

import (
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// StepEvent is emitted once per applied dispatch step.
type StepEvent struct {
	RunID    string
	Strategy string
	Record   model.DispatchRecord
	Latency  time.Duration // time spent deciding
}

// MetricsSink records dispatch steps for observability purposes.
type MetricsSink interface {
	RecordStep(ev StepEvent) error
}

// RunEvent summarises a finished run. Err is empty on success.
type RunEvent struct {
	RunID    string
	Strategy string
	Summary  model.Summary
	Start    time.Time
	Duration time.Duration
	Err      string
}

// RunRecorder is implemented by sinks able to record run summaries.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordStep(StepEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error   { return nil }
