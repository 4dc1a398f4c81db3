// Package synthetic generates reproducible price curves for demos and load
// tests when no market data is at hand.
package synthetic

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/model"
)

// ErrNoStart is returned when neither the request nor the source sets a start.
var ErrNoStart = errors.New("synthetic: start time required")

// Source emits a daily sine profile peaking at PeakHour with seeded jitter.
// The same seed and window always yield the same series.
type Source struct {
	Start     time.Time     `json:"start"`
	Points    int           `json:"points"`
	Step      time.Duration `json:"step"`
	Base      float64       `json:"base"`
	Amplitude float64       `json:"amplitude"`
	PeakHour  float64       `json:"peak_hour"`
	JitterPct float64       `json:"jitter_pct"`
	Floor     float64       `json:"floor"`
	Seed      int64         `json:"seed"`
}

// New returns a source with a 24 point hourly profile around 60 peaking at 19h.
func New() *Source {
	return &Source{
		Points:    24,
		Step:      time.Hour,
		Base:      60,
		Amplitude: 40,
		PeakHour:  19,
		Floor:     math.Inf(-1),
	}
}

// Fetch generates the series. A bounded request covers [start, end);
// otherwise Points steps are produced from the request or configured start.
func (s *Source) Fetch(ctx context.Context, opts ...connectors.Option) (model.PriceSeries, error) {
	req, err := connectors.NewRequest(opts...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Step <= 0 {
		return nil, model.NewConfigurationError("step", "must be positive")
	}
	start := req.Start
	if start.IsZero() {
		start = s.Start
	}
	if start.IsZero() {
		return nil, ErrNoStart
	}
	n := s.Points
	if !req.End.IsZero() {
		n = int(math.Ceil(float64(req.End.Sub(start)) / float64(s.Step)))
	}
	if n <= 0 {
		return nil, model.NewConfigurationError("points", "must be positive")
	}

	rng := rand.New(rand.NewSource(s.Seed))
	out := make(model.PriceSeries, n)
	for i := range out {
		t := start.Add(time.Duration(i) * s.Step)
		out[i] = model.PricePoint{Time: t, Price: s.price(t, rng)}
	}
	return out, nil
}

func (s *Source) price(t time.Time, rng *rand.Rand) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	p := s.Base + s.Amplitude*math.Cos(2*math.Pi*(hour-s.PeakHour)/24)
	if s.JitterPct > 0 {
		p *= 1 + (rng.Float64()*2-1)*s.JitterPct
	}
	p = math.Max(p, s.Floor)
	return math.Round(p*100) / 100
}
