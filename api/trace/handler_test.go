package trace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/tracelog"
)

type memStore struct {
	entries []tracelog.Entry
	err     error
}

func (m *memStore) Append(_ context.Context, e ...tracelog.Entry) error {
	m.entries = append(m.entries, e...)
	return nil
}

func (m *memStore) Query(_ context.Context, q tracelog.Query) ([]tracelog.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var res []tracelog.Entry
	for _, e := range m.entries {
		if q.Match(e) {
			res = append(res, e)
		}
	}
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seeded() *memStore {
	s := &memStore{}
	_ = s.Append(context.Background(),
		tracelog.Entry{RunID: "a", Strategy: "threshold", DispatchRecord: model.DispatchRecord{Time: t0, Action: model.ActionCharge}},
		tracelog.Entry{RunID: "a", Strategy: "threshold", DispatchRecord: model.DispatchRecord{Time: t0.Add(time.Hour), Action: model.ActionDischarge}},
		tracelog.Entry{RunID: "b", Strategy: "horizon", DispatchRecord: model.DispatchRecord{Time: t0, Action: model.ActionIdle}},
	)
	return s
}

func get(t *testing.T, h http.Handler, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerFilters(t *testing.T) {
	h := NewHandler(seeded(), "tok")

	rr := get(t, h, Path+"?run_id=a&action=discharge", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []tracelog.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, model.ActionDischarge, out[0].Action)

	rr = get(t, h, Path+"?end=2024-01-01T00:30:00Z&action=charge,idle", "tok")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Len(t, out, 2)

	rr = get(t, h, Path+"?run_id=zzz", "tok")
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestHandlerRejects(t *testing.T) {
	h := NewHandler(seeded(), "tok")
	assert.Equal(t, http.StatusUnauthorized, get(t, h, Path, "").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, Path+"?start=yesterday", "tok").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, Path+"?action=sell", "tok").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, Path+"?limit=-1", "tok").Code)

	req := httptest.NewRequest(http.MethodPost, Path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	failing := NewHandler(&memStore{err: errors.New("disk gone")}, "")
	assert.Equal(t, http.StatusInternalServerError, get(t, failing, Path, "").Code)
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{
		"start":  {"2024-01-01T00:00:00Z"},
		"action": {"charge", "idle"},
		"limit":  {"5"},
	})
	require.NoError(t, err)
	assert.Equal(t, t0, q.Start)
	assert.Equal(t, []model.Action{model.ActionCharge, model.ActionIdle}, q.Actions)
	assert.Equal(t, 5, q.Limit)
}
