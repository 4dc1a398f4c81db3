// Package tracelog persists dispatch traces so runs can be inspected after
// the fact. Three backends share the Store contract: a plain JSONL file, a
// size-rotated JSONL file and a SQLite database.
package tracelog

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// Entry is one persisted dispatch step.
type Entry struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`
	model.DispatchRecord
}

// Query defines filters for retrieving entries. Zero fields match everything;
// Start and End are inclusive.
type Query struct {
	Start    time.Time
	End      time.Time
	RunID    string
	Strategy string
	Actions  []model.Action
	Limit    int
}

// Match reports whether e passes the filters of q.
func (q Query) Match(e Entry) bool {
	if !q.Start.IsZero() && e.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Time.After(q.End) {
		return false
	}
	if q.RunID != "" && e.RunID != q.RunID {
		return false
	}
	if q.Strategy != "" && e.Strategy != q.Strategy {
		return false
	}
	if len(q.Actions) > 0 && !slices.Contains(q.Actions, e.Action) {
		return false
	}
	return true
}

// Store persists entries and supports querying. Query returns entries
// ordered by step time.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// NopStore discards entries.
type NopStore struct{}

func (NopStore) Append(context.Context, ...Entry) error        { return nil }
func (NopStore) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }

// finish orders filtered entries by time and applies the limit.
func finish(res []Entry, limit int) []Entry {
	sort.SliceStable(res, func(i, j int) bool { return res[i].Time.Before(res[j].Time) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

// Entries tags records with their run and strategy.
func Entries(runID, strategy string, records []model.DispatchRecord) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{RunID: runID, Strategy: strategy, DispatchRecord: r}
	}
	return out
}
