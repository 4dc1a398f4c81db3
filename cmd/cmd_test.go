package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/app"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/tracelog"
)

const prices = `timestamp,price
2024-03-10T00:00:00Z,30
2024-03-10T01:00:00Z,90
2024-03-10T02:00:00Z,50
2024-03-10T03:00:00Z,10
2024-03-10T04:00:00Z,95
`

func setup(t *testing.T) (dir, cfgFile string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.csv"), []byte(prices), 0o644))
	cfgFile = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`battery:
  capacity_kwh: 100
  power_kw: 50
  efficiency: 0.9
prices:
  source:
    type: csv
    conf:
      path: %s
trace:
  backend: sqlite
  path: %s
`, filepath.Join(dir, "prices.csv"), filepath.Join(dir, "trace.db"))
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o644))
	return dir, cfgFile
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunThenTrace(t *testing.T) {
	dir, cfgFile := setup(t)

	out, err := execute(t, "run", "-c", cfgFile, "--env-file", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Contains(t, out, "threshold")
	assert.Contains(t, out, "8800.00")

	out, err = execute(t, "trace", "-c", cfgFile, "--action", "discharge", "--format", "json")
	require.NoError(t, err)
	var entries []tracelog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.ActionDischarge, e.Action)
	}
}

func TestDecideCommand(t *testing.T) {
	_, cfgFile := setup(t)
	out, err := execute(t, "decide", "-c", cfgFile, "--at", "2024-03-10T01:00:00Z")
	require.NoError(t, err)
	var d app.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, model.ActionDischarge, d.Action)
	assert.Equal(t, 90.0, d.Price)
}

func TestEnvFileOverrides(t *testing.T) {
	dir, cfgFile := setup(t)
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("K_STRATEGY__TYPE=horizon\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("K_STRATEGY__TYPE") })

	out, err := execute(t, "run", "-c", cfgFile, "--env-file", envPath)
	require.NoError(t, err)
	assert.Contains(t, out, "horizon")
}

func TestPluginsCommand(t *testing.T) {
	out, err := execute(t, "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: horizon, optimal, threshold")
	assert.Contains(t, out, "price_source: csv, json, synthetic, wholesale_market")
}

func TestServeMux(t *testing.T) {
	mux := newMux(tracelog.NopStore{}, "")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/trace", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
