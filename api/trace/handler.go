// Package trace exposes persisted dispatch traces over HTTP.
package trace

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/tracelog"
)

// Path is the route served by NewHandler.
const Path = "/api/trace"

// NewHandler returns an HTTP handler answering GET /api/trace with the
// entries matching the query parameters run_id, strategy, start, end, action
// and limit. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
func NewHandler(store tracelog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := ParseQuery(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entries, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []tracelog.Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// ParseQuery converts URL parameters into a trace query. Actions may be
// repeated or comma separated.
func ParseQuery(v url.Values) (tracelog.Query, error) {
	q := tracelog.Query{
		RunID:    v.Get("run_id"),
		Strategy: v.Get("strategy"),
	}
	var err error
	if q.Start, err = parseTime(v.Get("start")); err != nil {
		return q, fmt.Errorf("start: %w", err)
	}
	if q.End, err = parseTime(v.Get("end")); err != nil {
		return q, fmt.Errorf("end: %w", err)
	}
	for _, raw := range v["action"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			a, err := model.ParseAction(s)
			if err != nil {
				return q, err
			}
			q.Actions = append(q.Actions, a)
		}
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("limit: invalid value %q", s)
		}
		q.Limit = n
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
