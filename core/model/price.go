package model

import (
	"sort"
	"time"
)

// PricePoint is one observation of the market price.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"` // currency per energy unit, e.g. EUR/MWh
}

// PriceSeries is an ordered sequence of prices with strictly increasing
// timestamps. It is read-only for every consumer.
type PriceSeries []PricePoint

// Validate checks timestamps are strictly increasing.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return ErrUnorderedSeries
		}
	}
	return nil
}

// Start returns the first timestamp or the zero time.
func (s PriceSeries) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time
}

// End returns the last timestamp or the zero time.
func (s PriceSeries) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Time
}

// Nearest returns the point whose timestamp is closest to t. When t sits
// exactly halfway between two points the later one wins. Times outside the
// series resolve to its first or last point.
func (s PriceSeries) Nearest(t time.Time) (PricePoint, error) {
	if len(s) == 0 {
		return PricePoint{}, ErrEmptySeries
	}
	idx := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(t) })
	switch {
	case idx == 0:
		return s[0], nil
	case idx == len(s):
		return s[len(s)-1], nil
	}
	left := t.Sub(s[idx-1].Time)
	right := s[idx].Time.Sub(t)
	if left < right {
		return s[idx-1], nil
	}
	return s[idx], nil
}

// Window returns the forecast prices for steps slots of length step starting
// at start. Slots without an exact price take the nearest one, so a horizon
// running past the end of the series repeats the last known price.
func (s PriceSeries) Window(start time.Time, steps int, step time.Duration) ([]float64, error) {
	if len(s) == 0 {
		return nil, ErrEmptySeries
	}
	out := make([]float64, steps)
	for i := range out {
		p, err := s.Nearest(start.Add(time.Duration(i) * step))
		if err != nil {
			return nil, err
		}
		out[i] = p.Price
	}
	return out, nil
}
