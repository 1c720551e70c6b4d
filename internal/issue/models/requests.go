package models

import (
	"strings"
	"time"

	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	"issuehub/pkg/platform/optional"
)

const dateOnly = "2006-01-02"

// CreateRequest is the create payload. Empty strings select the default
// (enums) or leave the field unset (assignedTo, dueDate).
type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Severity    string   `json:"severity"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"dueDate"`
	AssignedTo  string   `json:"assignedTo"`
}

// Build validates the payload and returns a new issue owned by creator.
// Assignee existence is the caller's concern.
func (r CreateRequest) Build(creator id.UserID, now time.Time) (*Issue, error) {
	title := strings.TrimSpace(r.Title)
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(r.Description)
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}

	issue := &Issue{
		ID:          id.NewIssueID(),
		Title:       title,
		Description: description,
		Status:      StatusOpen,
		Priority:    PriorityMedium,
		Severity:    SeverityMinor,
		Tags:        NormalizeTags(r.Tags),
		CreatedBy:   creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var err error
	if p := strings.TrimSpace(r.Priority); p != "" {
		if issue.Priority, err = ParsePriority(p); err != nil {
			return nil, err
		}
	}
	if s := strings.TrimSpace(r.Severity); s != "" {
		if issue.Severity, err = ParseSeverity(s); err != nil {
			return nil, err
		}
	}
	if issue.DueDate, err = ParseDueDate(r.DueDate); err != nil {
		return nil, err
	}
	if issue.AssignedTo, err = parseAssignee(r.AssignedTo); err != nil {
		return nil, err
	}
	if err := issue.Validate(); err != nil {
		return nil, err
	}
	return issue, nil
}

// UpdateRequest is a partial update. Absent fields are untouched. Null or
// empty clears assignedTo and dueDate; null tags clears the list. Required
// fields and enums reject null.
type UpdateRequest struct {
	Title       optional.Value[string]   `json:"title"`
	Description optional.Value[string]   `json:"description"`
	Status      optional.Value[string]   `json:"status"`
	Priority    optional.Value[string]   `json:"priority"`
	Severity    optional.Value[string]   `json:"severity"`
	AssignedTo  optional.Value[string]   `json:"assignedTo"`
	Tags        optional.Value[[]string] `json:"tags"`
	DueDate     optional.Value[string]   `json:"dueDate"`
}

// Assignee reports the requested assignee change. set is false when the
// field is absent; a nil uid with set true clears the assignment.
func (r UpdateRequest) Assignee() (uid *id.UserID, set bool, err error) {
	if !r.AssignedTo.IsSet() {
		return nil, false, nil
	}
	raw, _ := r.AssignedTo.Get()
	uid, err = parseAssignee(raw)
	return uid, true, err
}

// Apply validates every present field and writes it to issue, then
// refreshes UpdatedAt. On error issue may be partially modified, so callers
// apply to a clone.
func (r UpdateRequest) Apply(issue *Issue, now time.Time) error {
	if r.Title.IsSet() {
		v, ok := r.Title.Get()
		v = strings.TrimSpace(v)
		if !ok {
			return dErrors.Validation("title", "title is required")
		}
		if err := ValidateTitle(v); err != nil {
			return err
		}
		issue.Title = v
	}
	if r.Description.IsSet() {
		v, ok := r.Description.Get()
		v = strings.TrimSpace(v)
		if !ok {
			return dErrors.Validation("description", "description is required")
		}
		if err := ValidateDescription(v); err != nil {
			return err
		}
		issue.Description = v
	}
	if r.Status.IsSet() {
		v, _ := r.Status.Get()
		st, err := ParseStatus(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		issue.Status = st
	}
	if r.Priority.IsSet() {
		v, _ := r.Priority.Get()
		p, err := ParsePriority(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		issue.Priority = p
	}
	if r.Severity.IsSet() {
		v, _ := r.Severity.Get()
		s, err := ParseSeverity(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		issue.Severity = s
	}
	if uid, set, err := r.Assignee(); err != nil {
		return err
	} else if set {
		issue.AssignedTo = uid
	}
	if r.Tags.IsSet() {
		v, _ := r.Tags.Get()
		tags := NormalizeTags(v)
		if err := ValidateTags(tags); err != nil {
			return err
		}
		issue.Tags = tags
	}
	if r.DueDate.IsSet() {
		v, _ := r.DueDate.Get()
		due, err := ParseDueDate(v)
		if err != nil {
			return err
		}
		issue.DueDate = due
	}
	issue.UpdatedAt = now
	return nil
}

// ParseDueDate accepts RFC 3339 or YYYY-MM-DD and returns the instant in
// UTC. An empty string yields nil.
func ParseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return &t, nil
	}
	return nil, dErrors.Validation("dueDate", "dueDate must be an RFC 3339 timestamp or YYYY-MM-DD")
}

func parseAssignee(raw string) (*id.UserID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	uid, err := id.ParseUserID(raw)
	if err != nil {
		return nil, dErrors.Validation("assignedTo", "assignedTo must be a user id")
	}
	return &uid, nil
}
