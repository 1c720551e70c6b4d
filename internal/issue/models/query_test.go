package models

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "issuehub/pkg/domain"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(ListParams{})
	require.NoError(t, err)
	assert.Equal(t, Filter{}, q.Filter)
	assert.Equal(t, Sort{Field: SortCreatedAt, Order: SortDesc}, q.Sort)
	assert.Equal(t, Page{Number: 1, Size: 10}, q.Page)
}

func TestParseListQuery(t *testing.T) {
	q, err := ParseListQuery(ListParams{
		Page: "2", Limit: "25", Status: "In Progress", Priority: "High",
		Search: "  safari ", SortBy: "priority", SortOrder: "ASC",
	})
	require.NoError(t, err)
	assert.Equal(t, Filter{Status: StatusInProgress, Priority: PriorityHigh, Search: "safari"}, q.Filter)
	assert.Equal(t, Sort{Field: SortPriority, Order: SortAsc}, q.Sort)
	assert.Equal(t, 25, q.Page.Offset())
}

func TestParseListQuery_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params ListParams
		field  string
	}{
		{"page zero", ListParams{Page: "0"}, "page"},
		{"page not numeric", ListParams{Page: "two"}, "page"},
		{"negative limit", ListParams{Limit: "-5"}, "limit"},
		{"limit over max", ListParams{Limit: "101"}, "limit"},
		{"status wrong case", ListParams{Status: "open"}, "status"},
		{"unknown priority", ListParams{Priority: "Urgent"}, "priority"},
		{"unknown sort field", ListParams{SortBy: "severity"}, "sortBy"},
		{"unknown sort order", ListParams{SortOrder: "up"}, "sortOrder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseListQuery(tt.params)
			requireField(t, err, tt.field)
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	issue := &Issue{Title: "Login bug", Description: "Cannot log in on Safari", Status: StatusOpen, Priority: PriorityHigh}

	assert.True(t, Filter{}.Matches(issue))
	assert.True(t, Filter{Search: "SAFARI"}.Matches(issue), "description-only match")
	assert.True(t, Filter{Search: "login"}.Matches(issue), "title-only match")
	assert.False(t, Filter{Search: "firefox"}.Matches(issue))
	assert.True(t, Filter{Status: StatusOpen, Priority: PriorityHigh, Search: "bug"}.Matches(issue))
	assert.False(t, Filter{Status: StatusClosed, Search: "bug"}.Matches(issue))
	assert.False(t, Filter{Priority: PriorityLow}.Matches(issue))
}

func TestSort_Less(t *testing.T) {
	mk := func(title string, p Priority, created time.Time) *Issue {
		return &Issue{ID: id.NewIssueID(), Title: title, Priority: p, CreatedAt: created, UpdatedAt: created}
	}
	a := mk("bravo", PriorityCritical, now)
	b := mk("alpha", PriorityLow, now.Add(time.Hour))
	c := mk("Charlie", PriorityMedium, now.Add(2*time.Hour))
	issues := []*Issue{a, b, c}

	order := func(s Sort) []*Issue {
		out := append([]*Issue(nil), issues...)
		sort.SliceStable(out, func(i, j int) bool { return s.Less(out[i], out[j]) })
		return out
	}

	assert.Equal(t, []*Issue{c, b, a}, order(Sort{Field: SortCreatedAt, Order: SortDesc}))
	assert.Equal(t, []*Issue{a, b, c}, order(Sort{Field: SortUpdatedAt, Order: SortAsc}))
	assert.Equal(t, []*Issue{b, c, a}, order(Sort{Field: SortPriority, Order: SortAsc}))
	assert.Equal(t, []*Issue{a, c, b}, order(Sort{Field: SortPriority, Order: SortDesc}))
	// Bytewise: uppercase sorts before lowercase.
	assert.Equal(t, []*Issue{c, b, a}, order(Sort{Field: SortTitle, Order: SortAsc}))
}

func TestSort_TiesBreakOnID(t *testing.T) {
	x := &Issue{ID: id.NewIssueID(), CreatedAt: now}
	y := &Issue{ID: id.NewIssueID(), CreatedAt: now}
	if y.ID.String() < x.ID.String() {
		x, y = y, x
	}
	for _, o := range []SortOrder{SortAsc, SortDesc} {
		s := Sort{Field: SortCreatedAt, Order: o}
		assert.True(t, s.Less(x, y))
		assert.False(t, s.Less(y, x))
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		total, size, pages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{12, 10, 2},
		{100, 7, 15},
	}
	for _, tt := range tests {
		p := NewPagination(Page{Number: 1, Size: tt.size}, tt.total)
		assert.Equal(t, tt.pages, p.Pages, "total=%d size=%d", tt.total, tt.size)
		assert.Equal(t, tt.total, p.Total)
	}
}

func TestParseListQuery_HugePage(t *testing.T) {
	q, err := ParseListQuery(ListParams{Page: "922337203685477583", Limit: "10"})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, q.Page.Offset())

	w := Window(make([]int, 5), q.Page)
	assert.NotNil(t, w)
	assert.Empty(t, w)
}

func TestPage_Offset(t *testing.T) {
	assert.Zero(t, Page{Number: 1, Size: 10}.Offset())
	assert.Equal(t, 90, Page{Number: 10, Size: 10}.Offset())
	assert.Equal(t, math.MaxInt, Page{Number: math.MaxInt, Size: 100}.Offset())
	assert.Equal(t, math.MaxInt-(math.MaxInt%7), Page{Number: math.MaxInt/7 + 1, Size: 7}.Offset())
}

func TestWindow(t *testing.T) {
	items := make([]int, 12)
	for i := range items {
		items[i] = i
	}
	assert.Equal(t, []int{10, 11}, Window(items, Page{Number: 2, Size: 10}))
	assert.Len(t, Window(items, Page{Number: 1, Size: 10}), 10)
	past := Window(items, Page{Number: 3, Size: 10})
	assert.NotNil(t, past)
	assert.Empty(t, past)

	for size := 1; size <= 13; size++ {
		p := NewPagination(Page{Number: 1, Size: size}, len(items))
		seen := 0
		for n := 1; n <= p.Pages+1; n++ {
			w := Window(items, Page{Number: n, Size: size})
			assert.LessOrEqual(t, len(w), size)
			seen += len(w)
		}
		assert.Equal(t, len(items), seen)
	}
}

func TestAggregator(t *testing.T) {
	me := id.NewUserID()
	other := id.NewUserID()
	issues := []*Issue{
		{Status: StatusOpen, Priority: PriorityHigh, CreatedBy: me},
		{Status: StatusOpen, Priority: PriorityHigh, CreatedBy: other},
		{Status: StatusClosed, Priority: PriorityLow, CreatedBy: me},
		{Status: "Blocked", Priority: PriorityLow, CreatedBy: other},
		{Status: StatusResolved, Priority: "Urgent", CreatedBy: other},
	}

	var skipped []string
	agg := Aggregator{Skipped: func(field string) { skipped = append(skipped, field) }}
	s := agg.Aggregate(context.Background(), TallyIssues(issues, me))

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Mine)
	assert.Equal(t, 2, s.ByStatus[StatusOpen])
	assert.Equal(t, 1, s.ByStatus[StatusClosed])
	assert.Equal(t, 1, s.ByStatus[StatusResolved])
	assert.Equal(t, 0, s.ByStatus[StatusTesting])
	assert.NotContains(t, s.ByStatus, Status("Blocked"))
	assert.Equal(t, 2, s.ByPriority[PriorityHigh])
	assert.Equal(t, 2, s.ByPriority[PriorityLow])
	assert.NotContains(t, s.ByPriority, Priority("Urgent"))
	assert.ElementsMatch(t, []string{"status", "priority"}, skipped)
}

func TestAggregator_Empty(t *testing.T) {
	s := Aggregator{}.Aggregate(context.Background(), nil)
	assert.Zero(t, s.Total)
	assert.Len(t, s.ByStatus, len(Statuses))
	assert.Len(t, s.ByPriority, len(Priorities))
}
