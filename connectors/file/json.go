package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/model"
)

// JSONSource reads a JSON array of {"time": RFC3339, "price": number} objects.
type JSONSource struct {
	Path string `json:"path"`
}

func (s *JSONSource) Fetch(ctx context.Context, opts ...connectors.Option) (model.PriceSeries, error) {
	req, err := connectors.NewRequest(opts...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read price json: %w", err)
	}
	var points []model.PricePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return connectors.Normalize(req.Filter(points))
}
