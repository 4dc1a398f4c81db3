package tracelog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/model"
)

var t0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func records(actions ...model.Action) []model.DispatchRecord {
	out := make([]model.DispatchRecord, len(actions))
	for i, a := range actions {
		out[i] = model.DispatchRecord{
			Time: t0.Add(time.Duration(i) * time.Hour), Price: float64(10 * (i + 1)), Action: a,
			SoCBefore: 0.5, SoCAfter: 0.5,
		}
	}
	return out
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for _, cfg := range []Config{
		{Backend: "jsonl", Path: filepath.Join(dir, "trace.jsonl")},
		{Backend: "rotating", Path: filepath.Join(dir, "rot", "trace.jsonl"), MaxSizeMB: 1, MaxBackups: 2},
		{Backend: "sqlite", Path: filepath.Join(dir, "trace.db")},
	} {
		s, err := Open(cfg)
		require.NoError(t, err, cfg.Backend)
		t.Cleanup(func() { _ = s.Close() })
		out[cfg.Backend] = s
	}
	return out
}

func TestStores_AppendQuery(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := Entries("run-a", "threshold", records(model.ActionIdle, model.ActionCharge, model.ActionDischarge, model.ActionCharge))
			b := Entries("run-b", "optimal", records(model.ActionDischarge, model.ActionIdle))
			require.NoError(t, s.Append(ctx, b...))
			require.NoError(t, s.Append(ctx, a...))

			all, err := s.Query(ctx, Query{})
			require.NoError(t, err)
			require.Len(t, all, 6)
			for i := 1; i < len(all); i++ {
				assert.False(t, all[i].Time.Before(all[i-1].Time), "ordered by time")
			}

			got, err := s.Query(ctx, Query{RunID: "run-a", Actions: []model.Action{model.ActionCharge}})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, t0.Add(time.Hour), got[0].Time.UTC())
			assert.Equal(t, 20.0, got[0].Price)
			assert.Equal(t, "threshold", got[0].Strategy)

			got, err = s.Query(ctx, Query{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour), Strategy: "threshold"})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, model.ActionCharge, got[0].Action)
			assert.Equal(t, model.ActionDischarge, got[1].Action)

			got, err = s.Query(ctx, Query{Limit: 3})
			require.NoError(t, err)
			assert.Len(t, got, 3)
		})
	}
}

func TestEntry_JSONIsFlat(t *testing.T) {
	e := Entries("r", "horizon", records(model.ActionDischarge))[0]
	data, err := json.Marshal(e)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"run_id", "strategy", "time", "price", "action", "soc_before", "soc_after", "energy_kwh", "revenue"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, "discharge", m["action"])
}

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	s, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), Entries("r", "s", records(model.ActionIdle))...))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRotatingJSONLStore_QueriesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 5, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// about 1.6 MB of entries, enough for exactly one rotation at 1 MB
	pad := strings.Repeat("x", 600)
	const n = 2000
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{RunID: "big", Strategy: pad, DispatchRecord: model.DispatchRecord{Time: t0.Add(time.Duration(i) * time.Minute)}}
	}
	require.NoError(t, s.Append(context.Background(), entries...))

	files, err := filepath.Glob(filepath.Join(filepath.Dir(path), "trace*.jsonl"))
	require.NoError(t, err)
	assert.Greater(t, len(files), 1, "expected rotated backups")

	got, err := s.Query(context.Background(), Query{RunID: "big"})
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	_, err = Open(Config{Backend: "jsonl"})
	assert.Error(t, err)
	_, err = Open(Config{Backend: "postgres", Path: "x"})
	assert.Error(t, err)
	_, err = Open(Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "missing", "trace.jsonl")})
	assert.Error(t, err)
}

type failingStore struct {
	NopStore
	calls int
}

func (f *failingStore) Append(context.Context, ...Entry) error {
	f.calls++
	return os.ErrClosed
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	s, err := NewJSONLStore(path)
	require.NoError(t, err)
	r := &Recorder{Store: s, RunID: "r1", Strategy: "threshold"}
	for _, rec := range records(model.ActionIdle, model.ActionCharge) {
		r.OnStep(rec, time.Millisecond)
	}
	require.NoError(t, r.Err())
	got, err := s.Query(context.Background(), Query{RunID: "r1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	fs := &failingStore{}
	r = &Recorder{Store: fs}
	r.OnStep(model.DispatchRecord{}, 0)
	r.OnStep(model.DispatchRecord{}, 0)
	assert.ErrorIs(t, r.Err(), os.ErrClosed)
	assert.Equal(t, 1, fs.calls)
}
