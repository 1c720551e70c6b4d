package models

import (
	"context"
	"log/slog"

	id "issuehub/pkg/domain"
)

// Stats is the dashboard aggregation.
type Stats struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"byStatus"`
	ByPriority map[Priority]int `json:"byPriority"`
	Mine       int              `json:"mine"`
}

// Tally is one grouped count: issues sharing a status, priority and
// whether the requester created them.
type Tally struct {
	Status   Status
	Priority Priority
	Mine     bool
	Count    int
}

// Aggregator folds tallies into Stats. Skipped is called once per tally
// whose status or priority is not a known enum value.
type Aggregator struct {
	Logger  *slog.Logger
	Skipped func(field string)
}

// Aggregate counts every tally into Total and Mine. Buckets only receive
// known enum values; unknown ones are logged and skipped.
func (a Aggregator) Aggregate(ctx context.Context, tallies []Tally) Stats {
	s := newStats()
	for _, t := range tallies {
		s.Total += t.Count
		if t.Mine {
			s.Mine += t.Count
		}
		if t.Status.IsValid() {
			s.ByStatus[t.Status] += t.Count
		} else {
			a.skip(ctx, "status", string(t.Status), t.Count)
		}
		if t.Priority.IsValid() {
			s.ByPriority[t.Priority] += t.Count
		} else {
			a.skip(ctx, "priority", string(t.Priority), t.Count)
		}
	}
	return s
}

func (a Aggregator) skip(ctx context.Context, field, value string, count int) {
	if a.Logger != nil {
		a.Logger.WarnContext(ctx, "stats skipped unknown enum value",
			"field", field,
			"value", value,
			"count", count,
		)
	}
	if a.Skipped != nil {
		a.Skipped(field)
	}
}

// TallyIssues groups issues in memory the way the SQL store groups rows.
func TallyIssues(issues []*Issue, requester id.UserID) []Tally {
	type key struct {
		status   Status
		priority Priority
		mine     bool
	}
	counts := make(map[key]int)
	order := make([]key, 0)
	for _, i := range issues {
		k := key{i.Status, i.Priority, !requester.IsNil() && i.CreatedBy == requester}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make([]Tally, 0, len(order))
	for _, k := range order {
		out = append(out, Tally{Status: k.status, Priority: k.priority, Mine: k.mine, Count: counts[k]})
	}
	return out
}

func newStats() Stats {
	s := Stats{
		ByStatus:   make(map[Status]int, len(Statuses)),
		ByPriority: make(map[Priority]int, len(Priorities)),
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, p := range Priorities {
		s.ByPriority[p] = 0
	}
	return s
}
