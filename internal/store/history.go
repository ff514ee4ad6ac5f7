package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/bodymetrics/internal/core"
)

// History returns the records of all that are assigned to clientID, newest
// first.
//
// Ordering compares record IDs as strings. That matches chronology only
// while IDs share the zero-padded DD/MM/YYYY-HH:MM layout the scale writes.
func (s *Store) History(ctx context.Context, clientID string, all []core.Record) ([]core.Record, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return historyOf(db, clientID, all), nil
}

// historyOf matches present assignments only. A blank client owns nothing.
func historyOf(db *Database, clientID string, all []core.Record) []core.Record {
	if clientID == "" {
		return nil
	}
	var out []core.Record
	for _, r := range all {
		if owner, ok := db.Assignments[r.ID]; ok && owner == clientID {
			out = append(out, r)
		}
	}
	sortByIDDesc(out)
	return out
}

func sortByIDDesc(recs []core.Record) {
	slices.SortStableFunc(recs, func(a, b core.Record) int {
		return strings.Compare(b.ID, a.ID)
	})
}

// Unassigned returns the records of all that belong to no client, in input
// order.
func (s *Store) Unassigned(ctx context.Context, all []core.Record) ([]core.Record, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	var out []core.Record
	for _, r := range all {
		if db.Assignments[r.ID] == "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// RangeKind selects a history window.
type RangeKind string

const (
	RangeAll        RangeKind = "all"
	RangeOneMonth   RangeKind = "1m"
	RangeThreeMonth RangeKind = "3m"
	RangeSixMonth   RangeKind = "6m"
	RangeOneYear    RangeKind = "1y"
	RangeCustom     RangeKind = "custom"
)

// dateLayout is the format of custom range bounds.
const dateLayout = "2006-01-02"

// DateRange is a history window. Start and End are YYYY-MM-DD and only
// apply to RangeCustom.
type DateRange struct {
	Kind  RangeKind
	Start string
	End   string
}

// ParseDateRange builds a DateRange from request values. An empty kind
// means RangeAll. Custom bounds, when both are given, must be YYYY-MM-DD.
func ParseDateRange(kind, start, end string) (DateRange, error) {
	r := DateRange{Kind: RangeKind(kind), Start: start, End: end}
	if r.Kind == "" {
		r.Kind = RangeAll
	}
	if r.Kind == RangeCustom && start != "" && end != "" {
		if _, err := time.Parse(dateLayout, start); err != nil {
			return DateRange{}, fmt.Errorf("invalid date range start %q: %w", start, err)
		}
		if _, err := time.Parse(dateLayout, end); err != nil {
			return DateRange{}, fmt.Errorf("invalid date range end %q: %w", end, err)
		}
	}
	return r, nil
}

// FilterByDateRange keeps the records of history that fall inside r.
//
// Relative windows keep records dated on or after now minus the window.
// Custom windows are inclusive on both ends and need both bounds; with a
// bound missing, and for unknown kinds, history is returned unchanged.
// Record dates are taken as midnight UTC.
func FilterByDateRange(history []core.Record, r DateRange, now time.Time) []core.Record {
	if r.Kind == RangeAll || len(history) == 0 {
		return history
	}

	var cutoff time.Time
	switch r.Kind {
	case RangeOneMonth:
		cutoff = now.AddDate(0, -1, 0)
	case RangeThreeMonth:
		cutoff = now.AddDate(0, -3, 0)
	case RangeSixMonth:
		cutoff = now.AddDate(0, -6, 0)
	case RangeOneYear:
		cutoff = now.AddDate(-1, 0, 0)
	case RangeCustom:
		if r.Start == "" || r.End == "" {
			return history
		}
		return filterCustom(history, r.Start, r.End)
	default:
		return history
	}

	out := []core.Record{}
	for _, rec := range history {
		day, ok := core.ParseRecordDate(rec.Date)
		if ok && !day.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}

// filterCustom applies an inclusive [start, end] window. Bounds that do not
// parse match nothing.
func filterCustom(history []core.Record, start, end string) []core.Record {
	out := []core.Record{}

	from, err1 := time.Parse(dateLayout, start)
	to, err2 := time.Parse(dateLayout, end)
	if err1 != nil || err2 != nil {
		return out
	}

	for _, rec := range history {
		day, ok := core.ParseRecordDate(rec.Date)
		if ok && !day.Before(from) && !day.After(to) {
			out = append(out, rec)
		}
	}
	return out
}
