// Package file loads price series from local CSV and JSON files.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/model"
)

const (
	DefaultTimeColumn  = "timestamp"
	DefaultPriceColumn = "price"
)

// CSVSource reads a CSV file with a header row. Timestamps are parsed with
// Layout, RFC3339 when empty.
type CSVSource struct {
	Path        string `json:"path"`
	TimeColumn  string `json:"time_column"`
	PriceColumn string `json:"price_column"`
	Layout      string `json:"layout"`
	Comma       string `json:"comma"`
}

// NewCSVSource returns a source for path using the default column names.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, TimeColumn: DefaultTimeColumn, PriceColumn: DefaultPriceColumn}
}

func (s *CSVSource) Fetch(ctx context.Context, opts ...connectors.Option) (model.PriceSeries, error) {
	req, err := connectors.NewRequest(opts...)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open price csv: %w", err)
	}
	defer f.Close()

	points, err := s.Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return connectors.Normalize(req.Filter(points))
}

// Read parses CSV rows from r.
func (s *CSVSource) Read(ctx context.Context, r io.Reader) ([]model.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	if s.Comma != "" {
		cr.Comma = []rune(s.Comma)[0]
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	timeIdx, priceIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case strings.ToLower(orDefault(s.TimeColumn, DefaultTimeColumn)):
			timeIdx = i
		case strings.ToLower(orDefault(s.PriceColumn, DefaultPriceColumn)):
			priceIdx = i
		}
	}
	if timeIdx < 0 || priceIdx < 0 {
		return nil, fmt.Errorf("header %v lacks %q or %q columns", header,
			orDefault(s.TimeColumn, DefaultTimeColumn), orDefault(s.PriceColumn, DefaultPriceColumn))
	}
	layout := orDefault(s.Layout, time.RFC3339)

	var points []model.PricePoint
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := time.Parse(layout, strings.TrimSpace(rec[timeIdx]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[priceIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, model.PricePoint{Time: ts, Price: price})
	}
	return points, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
