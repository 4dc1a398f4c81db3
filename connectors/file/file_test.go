package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/connectors"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestCSVSourceFetch(t *testing.T) {
	p := writeFile(t, "prices.csv", "timestamp,price\n"+
		"2024-01-01T01:00:00Z,90\n"+
		"2024-01-01T00:00:00Z, 30.5\n"+
		"2024-01-01T02:00:00Z,50\n")

	s, err := NewCSVSource(p).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, t0, s[0].Time)
	assert.Equal(t, 30.5, s[0].Price)
	assert.Equal(t, 90.0, s[1].Price)

	s, err = NewCSVSource(p).Fetch(context.Background(),
		connectors.WithStartDate(t0.Add(time.Hour)), connectors.WithEndDate(t0.Add(2*time.Hour)))
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, 90.0, s[0].Price)
}

func TestCSVSourceCustomColumns(t *testing.T) {
	src := &CSVSource{TimeColumn: "date", PriceColumn: "eur_mwh", Layout: "2006-01-02 15:04", Comma: ";"}
	pts, err := src.Read(context.Background(), strings.NewReader("id;date;eur_mwh\n1;2024-01-01 00:00;42\n"))
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 42.0, pts[0].Price)
	assert.Equal(t, t0, pts[0].Time)
}

func TestCSVSourceErrors(t *testing.T) {
	src := NewCSVSource("")
	_, err := src.Read(context.Background(), strings.NewReader("when,value\n"))
	assert.ErrorContains(t, err, "lacks")

	_, err = src.Read(context.Background(), strings.NewReader("timestamp,price\nnot-a-date,1\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = src.Read(context.Background(), strings.NewReader("timestamp,price\n2024-01-01T00:00:00Z,abc\n"))
	assert.ErrorContains(t, err, "line 2")

	dup := writeFile(t, "dup.csv", "timestamp,price\n2024-01-01T00:00:00Z,1\n2024-01-01T00:00:00Z,2\n")
	_, err = NewCSVSource(dup).Fetch(context.Background())
	assert.ErrorIs(t, err, connectors.ErrDuplicateTimestamp)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).Fetch(context.Background())
	assert.Error(t, err)
}

func TestJSONSourceFetch(t *testing.T) {
	p := writeFile(t, "prices.json", `[
		{"time":"2024-01-01T01:00:00Z","price":100},
		{"time":"2024-01-01T00:00:00Z","price":10}
	]`)
	s, err := (&JSONSource{Path: p}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 10.0, s[0].Price)
	assert.Equal(t, 100.0, s[1].Price)

	bad := writeFile(t, "bad.json", `{"time":1}`)
	_, err = (&JSONSource{Path: bad}).Fetch(context.Background())
	assert.Error(t, err)
}
