package models

import (
	"math"
	"strconv"
	"strings"

	dErrors "issuehub/pkg/domain-errors"
	pstrings "issuehub/pkg/platform/strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filter is the composed list predicate. Zero values mean "no constraint".
type Filter struct {
	Status   Status
	Priority Priority
	Search   string
}

// Matches reports whether the issue satisfies every set constraint. Search
// is a case-insensitive substring test over title OR description.
func (f Filter) Matches(i *Issue) bool {
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if f.Priority != "" && i.Priority != f.Priority {
		return false
	}
	if f.Search != "" {
		return pstrings.ContainsFold(i.Title, f.Search) || pstrings.ContainsFold(i.Description, f.Search)
	}
	return true
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortTitle     SortField = "title"
	SortPriority  SortField = "priority"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type Sort struct {
	Field SortField
	Order SortOrder
}

// Less orders a before b. Equal keys fall back to ascending id so pages are
// stable regardless of direction.
func (s Sort) Less(a, b *Issue) bool {
	c := s.compare(a, b)
	if c == 0 {
		return a.ID.String() < b.ID.String()
	}
	if s.Order == SortAsc {
		return c < 0
	}
	return c > 0
}

func (s Sort) compare(a, b *Issue) int {
	switch s.Field {
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

type Page struct {
	Number int
	Size   int
}

// Offset is the number of records before the page. It saturates at
// math.MaxInt, so an absurd page number lands past the end of any set.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Query is a validated list request.
type Query struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

// ListParams holds raw query-string values; empty strings mean absent.
type ListParams struct {
	Page      string
	Limit     string
	Status    string
	Priority  string
	Search    string
	SortBy    string
	SortOrder string
}

// ParseListQuery validates raw parameters and applies defaults.
func ParseListQuery(p ListParams) (Query, error) {
	q := Query{
		Sort: Sort{Field: SortCreatedAt, Order: SortDesc},
		Page: Page{Number: DefaultPage, Size: DefaultPageSize},
	}

	var err error
	if q.Page.Number, err = parsePositive("page", p.Page, DefaultPage); err != nil {
		return Query{}, err
	}
	if q.Page.Size, err = parsePositive("limit", p.Limit, DefaultPageSize); err != nil {
		return Query{}, err
	}
	if q.Page.Size > MaxPageSize {
		return Query{}, dErrors.Validation("limit", "limit must be at most 100")
	}

	if s := strings.TrimSpace(p.Status); s != "" {
		if q.Filter.Status, err = ParseStatus(s); err != nil {
			return Query{}, err
		}
	}
	if s := strings.TrimSpace(p.Priority); s != "" {
		if q.Filter.Priority, err = ParsePriority(s); err != nil {
			return Query{}, err
		}
	}
	q.Filter.Search = strings.TrimSpace(p.Search)

	switch f := SortField(strings.TrimSpace(p.SortBy)); f {
	case "":
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortPriority:
		q.Sort.Field = f
	default:
		return Query{}, dErrors.Validation("sortBy", "sortBy must be one of createdAt, updatedAt, title, priority")
	}
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(p.SortOrder))); o {
	case "":
	case SortAsc, SortDesc:
		q.Sort.Order = o
	default:
		return Query{}, dErrors.Validation("sortOrder", "sortOrder must be asc or desc")
	}
	return q, nil
}

func parsePositive(field, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.Validation(field, field+" must be a positive integer")
	}
	return n, nil
}

// Pagination is the page metadata returned with a list.
type Pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

func NewPagination(page Page, total int) Pagination {
	pages := 0
	if total > 0 && page.Size > 0 {
		pages = (total + page.Size - 1) / page.Size
	}
	return Pagination{Current: page.Number, Pages: pages, Total: total}
}

// ListResult is a page of issues plus its metadata.
type ListResult struct {
	Issues     []Record
	Pagination Pagination
}

// Window returns the slice of an already filtered and sorted set that falls
// on the page. Offsets past the end yield an empty, non-nil slice.
func Window[T any](items []T, page Page) []T {
	off := page.Offset()
	if off < 0 || off >= len(items) {
		return []T{}
	}
	end := off + page.Size
	if end > len(items) || end < off {
		end = len(items)
	}
	return items[off:end]
}
