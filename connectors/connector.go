// Package connectors defines how price series enter the application.
package connectors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// ErrDuplicateTimestamp is returned when a source yields two prices for the
// same instant.
var ErrDuplicateTimestamp = errors.New("duplicate price timestamp")

// PriceSource loads a price series. Implementations return points sorted by
// strictly increasing time.
type PriceSource interface {
	Fetch(ctx context.Context, opts ...Option) (model.PriceSeries, error)
}

// Request carries the fetch window. A zero bound leaves that side open.
type Request struct {
	Start time.Time
	End   time.Time
}

// Option configures a fetch request.
type Option func(*Request) error

func WithStartDate(start time.Time) Option {
	return func(r *Request) error {
		r.Start = start
		return nil
	}
}

func WithEndDate(end time.Time) Option {
	return func(r *Request) error {
		r.End = end
		return nil
	}
}

// NewRequest applies opts and checks the window is not inverted.
func NewRequest(opts ...Option) (Request, error) {
	var r Request
	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return Request{}, err
		}
	}
	if r.Bounded() && !r.End.After(r.Start) {
		return Request{}, fmt.Errorf("end date %s not after start date %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return r, nil
}

// Bounded reports whether both sides of the window are set.
func (r Request) Bounded() bool { return !r.Start.IsZero() && !r.End.IsZero() }

// Contains reports whether t lies in [Start, End).
func (r Request) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// Filter keeps the points inside the window.
func (r Request) Filter(points []model.PricePoint) []model.PricePoint {
	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if r.Contains(p.Time) {
			out = append(out, p)
		}
	}
	return out
}

// Normalize sorts points by time and rejects duplicated timestamps.
func Normalize(points []model.PricePoint) (model.PriceSeries, error) {
	s := make(model.PriceSeries, len(points))
	copy(s, points)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
	for i := 1; i < len(s); i++ {
		if s[i].Time.Equal(s[i-1].Time) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTimestamp, s[i].Time.Format(time.RFC3339))
		}
	}
	return s, nil
}
