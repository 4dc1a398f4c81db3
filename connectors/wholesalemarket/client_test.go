package wholesalemarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/connectors"
)

const payload = `{"france_power_exchanges":[{"start_date":"2024-01-01T00:00:00+01:00","end_date":"2024-01-02T00:00:00+01:00",
"values":[
 {"start_date":"2024-01-01T01:00:00+01:00","end_date":"2024-01-01T02:00:00+01:00","value":1200,"price":85.5},
 {"start_date":"2024-01-01T00:00:00+01:00","end_date":"2024-01-01T01:00:00+01:00","value":1100,"price":72.1}
]}]}`

type staticAuth struct{ err error }

func (a staticAuth) SetAuthHeader(r *http.Request) error {
	if a.err != nil {
		return a.err
	}
	r.Header.Set("Authorization", "Bearer test")
	return nil
}

var (
	start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	end   = start.Add(24 * time.Hour)
)

func TestFetch(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client(), Auth: staticAuth{}}
	s, err := c.Fetch(context.Background(), connectors.WithStartDate(start), connectors.WithEndDate(end))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 72.1, s[0].Price)
	assert.Equal(t, 85.5, s[1].Price)
	assert.True(t, s[0].Time.Equal(start))
	assert.Equal(t, "Bearer test", gotAuth)
	assert.Contains(t, gotQuery, "start_date=2024-01-01T00%3A00%3A00%2B01%3A00")
	assert.Contains(t, gotQuery, "end_date=")
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}

	_, err := c.Fetch(context.Background(), connectors.WithStartDate(start))
	assert.ErrorIs(t, err, ErrMissingDates)

	_, err = c.Fetch(context.Background(), connectors.WithStartDate(start), connectors.WithEndDate(end))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)

	c.Auth = staticAuth{err: errors.New("no token")}
	_, err = c.Fetch(context.Background(), connectors.WithStartDate(start), connectors.WithEndDate(end))
	assert.ErrorContains(t, err, "auth header")
}

func TestResponseSeriesBadTime(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"france_power_exchanges":[{"values":[{"start_date":"yesterday","price":1}]}]}`), &r))
	_, err := r.Series()
	assert.ErrorContains(t, err, "parse time")
}
