package audit

import (
	"strings"
	"time"
)

// Recent returns the last n events, oldest first.
func Recent(events []Event, n int) []Event {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// Filter narrows the history the way the history tab does. Zero values match everything.
type Filter struct {
	Actor     string
	Action    Action
	Field     string
	ProductID int
	Text      string
}

func (f Filter) Match(ev Event) bool {
	if f.Actor != "" && ev.Actor != f.Actor {
		return false
	}
	if f.Action != "" && ev.Action != f.Action {
		return false
	}
	if f.Field != "" && ev.Field != f.Field {
		return false
	}
	if f.ProductID > 0 && ev.ProductID != f.ProductID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Text)); q != "" {
		if !strings.Contains(strings.ToLower(ev.String()), q) {
			return false
		}
	}
	return true
}

func (f Filter) Apply(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Since keeps events accepted by keep (nil keeps all) recorded at or after cutoff.
// Events with unparsable timestamps are skipped.
func Since(events []Event, cutoff time.Time, keep func(Event) bool) []Event {
	var out []Event
	for _, ev := range events {
		if keep != nil && !keep(ev) {
			continue
		}
		ts, err := ev.Time()
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
