package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/connectors/file"
	"github.com/kilianp07/arbitrage/connectors/synthetic"
	"github.com/kilianp07/arbitrage/connectors/wholesalemarket"
	"github.com/kilianp07/arbitrage/core/factory"
)

func TestNewPriceSource(t *testing.T) {
	tests := []struct {
		id          string
		conf        map[string]any
		expectedErr bool
	}{
		{IDCSV, map[string]any{"path": "prices.csv"}, false},
		{IDJSON, map[string]any{"path": "prices.json"}, false},
		{IDWholesaleMarket, map[string]any{"auth": map[string]any{"client_id": "id"}}, false},
		{IDSynthetic, map[string]any{"seed": "3", "step": "30m"}, false},
		{"unknown_id", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			src, err := NewPriceSource(factory.ModuleConfig{Type: tt.id, Conf: tt.conf})
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, src)
		})
	}
}

func TestCSVDefaultsKept(t *testing.T) {
	src, err := NewPriceSource(factory.ModuleConfig{Type: IDCSV, Conf: map[string]any{"path": "p.csv", "layout": "2006-01-02"}})
	require.NoError(t, err)
	c := src.(*file.CSVSource)
	assert.Equal(t, file.DefaultTimeColumn, c.TimeColumn)
	assert.Equal(t, "2006-01-02", c.Layout)
}

func TestWholesaleTimeout(t *testing.T) {
	src, err := NewPriceSource(factory.ModuleConfig{Type: IDWholesaleMarket, Conf: map[string]any{"timeout_seconds": "5", "base_url": "http://x"}})
	require.NoError(t, err)
	c := src.(*wholesalemarket.Client)
	assert.Equal(t, "http://x", c.BaseURL)
	assert.Equal(t, 5.0, c.HTTP.Timeout.Seconds())
}

func TestSyntheticDecode(t *testing.T) {
	src, err := NewPriceSource(factory.ModuleConfig{Type: IDSynthetic, Conf: map[string]any{
		"start": "2024-03-01T00:00:00Z",
		"step":  "15m",
		"seed":  42,
	}})
	require.NoError(t, err)
	s := src.(*synthetic.Source)
	assert.Equal(t, 15*time.Minute, s.Step)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.Start.UTC())
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, 24, s.Points)
}
