package models

import (
	"time"

	authmodels "issuehub/internal/auth/models"
	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	pstrings "issuehub/pkg/platform/strings"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxTags              = 20
	MaxTagLength         = 50
)

type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusTesting    Status = "Testing"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusTesting, StatusResolved, StatusClosed}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusTesting, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ParseStatus is case-sensitive.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Validation("status", "status must be one of Open, In Progress, Testing, Resolved, Closed")
	}
	return st, nil
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority from lowest to highest rank.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Rank orders priorities Low < Medium < High < Critical. Unknown values
// rank below Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	}
	return -1
}

func (p Priority) IsValid() bool { return p.Rank() >= 0 }

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", dErrors.Validation("priority", "priority must be one of Low, Medium, High, Critical")
	}
	return p, nil
}

type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityMajor    Severity = "Major"
	SeverityCritical Severity = "Critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

func ParseSeverity(s string) (Severity, error) {
	sv := Severity(s)
	if !sv.IsValid() {
		return "", dErrors.Validation("severity", "severity must be one of Minor, Major, Critical")
	}
	return sv, nil
}

// Issue is the stored record. References to users are IDs only; the
// store read path joins summaries into a Record.
type Issue struct {
	ID          id.IssueID
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Severity    Severity
	Tags        []string
	CreatedBy   id.UserID
	AssignedTo  *id.UserID
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy so stores never share slices or pointers with
// callers.
func (i *Issue) Clone() *Issue {
	c := *i
	if i.Tags != nil {
		c.Tags = append([]string(nil), i.Tags...)
	}
	if i.AssignedTo != nil {
		a := *i.AssignedTo
		c.AssignedTo = &a
	}
	if i.DueDate != nil {
		d := *i.DueDate
		c.DueDate = &d
	}
	return &c
}

// Validate checks field invariants before persistence.
func (i *Issue) Validate() error {
	if err := ValidateTitle(i.Title); err != nil {
		return err
	}
	if err := ValidateDescription(i.Description); err != nil {
		return err
	}
	if !i.Status.IsValid() {
		return dErrors.Validation("status", "invalid status")
	}
	if !i.Priority.IsValid() {
		return dErrors.Validation("priority", "invalid priority")
	}
	if !i.Severity.IsValid() {
		return dErrors.Validation("severity", "invalid severity")
	}
	if err := ValidateTags(i.Tags); err != nil {
		return err
	}
	if i.CreatedBy.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "issue must have a creator")
	}
	return nil
}

func ValidateTitle(title string) error {
	n := pstrings.Length(title)
	if n == 0 {
		return dErrors.Validation("title", "title is required")
	}
	if n > MaxTitleLength {
		return dErrors.Validation("title", "title must be at most 200 characters")
	}
	return nil
}

func ValidateDescription(description string) error {
	n := pstrings.Length(description)
	if n == 0 {
		return dErrors.Validation("description", "description is required")
	}
	if n > MaxDescriptionLength {
		return dErrors.Validation("description", "description must be at most 2000 characters")
	}
	return nil
}

// ValidateTags expects tags already passed through NormalizeTags.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return dErrors.Validation("tags", "at most 20 tags are allowed")
	}
	for _, t := range tags {
		if pstrings.Length(t) > MaxTagLength {
			return dErrors.Validation("tags", "each tag must be at most 50 characters")
		}
	}
	return nil
}

// NormalizeTags trims, drops empty entries and case-insensitive duplicates.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	cleaned := pstrings.CleanList(tags)
	if cleaned == nil {
		return []string{}
	}
	return cleaned
}

// Record is an issue with its user references resolved.
type Record struct {
	*Issue
	Creator  *authmodels.UserSummary
	Assignee *authmodels.UserSummary
}

// View is the JSON representation of an issue.
type View struct {
	ID          id.IssueID              `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Status      Status                  `json:"status"`
	Priority    Priority                `json:"priority"`
	Severity    Severity                `json:"severity"`
	Tags        []string                `json:"tags"`
	CreatedBy   authmodels.UserSummary  `json:"createdBy"`
	AssignedTo  *authmodels.UserSummary `json:"assignedTo"`
	DueDate     *time.Time              `json:"dueDate"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// View renders the record. A reference whose user row is gone still
// reports the ID.
func (r Record) View() View {
	v := View{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Severity:    r.Severity,
		Tags:        r.Tags,
		CreatedBy:   authmodels.UserSummary{ID: r.CreatedBy},
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if r.Creator != nil {
		v.CreatedBy = *r.Creator
	}
	if r.AssignedTo != nil {
		if r.Assignee != nil {
			a := *r.Assignee
			v.AssignedTo = &a
		} else {
			v.AssignedTo = &authmodels.UserSummary{ID: *r.AssignedTo}
		}
	}
	return v
}
