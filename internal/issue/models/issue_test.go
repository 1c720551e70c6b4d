package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmodels "issuehub/internal/auth/models"
	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	de, ok := dErrors.As(err)
	require.True(t, ok, "expected domain error, got %v", err)
	assert.Equal(t, dErrors.CodeValidation, de.Code)
	assert.Equal(t, field, de.Field)
}

func TestCreateRequest_Build(t *testing.T) {
	creator := id.NewUserID()

	t.Run("applies defaults", func(t *testing.T) {
		issue, err := CreateRequest{Title: " Login bug ", Description: "Cannot log in on Safari"}.Build(creator, now)
		require.NoError(t, err)
		assert.False(t, issue.ID.IsNil())
		assert.Equal(t, "Login bug", issue.Title)
		assert.Equal(t, StatusOpen, issue.Status)
		assert.Equal(t, PriorityMedium, issue.Priority)
		assert.Equal(t, SeverityMinor, issue.Severity)
		assert.Equal(t, []string{}, issue.Tags)
		assert.Equal(t, creator, issue.CreatedBy)
		assert.Nil(t, issue.AssignedTo)
		assert.Nil(t, issue.DueDate)
		assert.Equal(t, now, issue.CreatedAt)
		assert.Equal(t, now, issue.UpdatedAt)
	})

	t.Run("title of 200 characters is accepted", func(t *testing.T) {
		_, err := CreateRequest{Title: strings.Repeat("é", 200), Description: "d"}.Build(creator, now)
		require.NoError(t, err)
	})

	t.Run("title of 201 characters is rejected", func(t *testing.T) {
		_, err := CreateRequest{Title: strings.Repeat("a", 201), Description: "d"}.Build(creator, now)
		requireField(t, err, "title")
	})

	t.Run("empty description is rejected", func(t *testing.T) {
		_, err := CreateRequest{Title: "t", Description: "   "}.Build(creator, now)
		requireField(t, err, "description")
	})

	t.Run("description over 2000 characters is rejected", func(t *testing.T) {
		_, err := CreateRequest{Title: "t", Description: strings.Repeat("a", 2001)}.Build(creator, now)
		requireField(t, err, "description")
	})

	t.Run("optional fields", func(t *testing.T) {
		assignee := id.NewUserID()
		issue, err := CreateRequest{
			Title:       "t",
			Description: "d",
			Priority:    "High",
			Severity:    "Major",
			Tags:        []string{" ui ", "", "UI", "backend"},
			DueDate:     "2026-04-01",
			AssignedTo:  assignee.String(),
		}.Build(creator, now)
		require.NoError(t, err)
		assert.Equal(t, PriorityHigh, issue.Priority)
		assert.Equal(t, SeverityMajor, issue.Severity)
		assert.Equal(t, []string{"ui", "backend"}, issue.Tags)
		require.NotNil(t, issue.DueDate)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *issue.DueDate)
		require.NotNil(t, issue.AssignedTo)
		assert.Equal(t, assignee, *issue.AssignedTo)
	})

	invalid := []struct {
		name  string
		req   CreateRequest
		field string
	}{
		{"lowercase priority", CreateRequest{Title: "t", Description: "d", Priority: "high"}, "priority"},
		{"unknown severity", CreateRequest{Title: "t", Description: "d", Severity: "Blocker"}, "severity"},
		{"bad due date", CreateRequest{Title: "t", Description: "d", DueDate: "next week"}, "dueDate"},
		{"bad assignee", CreateRequest{Title: "t", Description: "d", AssignedTo: "bob"}, "assignedTo"},
		{"too many tags", CreateRequest{Title: "t", Description: "d", Tags: manyTags(21)}, "tags"},
		{"long tag", CreateRequest{Title: "t", Description: "d", Tags: []string{strings.Repeat("x", 51)}}, "tags"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Build(creator, now)
			requireField(t, err, tt.field)
		})
	}
}

func manyTags(n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = "tag" + strings.Repeat("x", i)
	}
	return tags
}

func TestUpdateRequest_Apply(t *testing.T) {
	base := func() *Issue {
		assignee := id.NewUserID()
		due := now.Add(48 * time.Hour)
		return &Issue{
			ID:          id.NewIssueID(),
			Title:       "Login bug",
			Description: "Cannot log in",
			Status:      StatusOpen,
			Priority:    PriorityMedium,
			Severity:    SeverityMinor,
			Tags:        []string{"ui"},
			CreatedBy:   id.NewUserID(),
			AssignedTo:  &assignee,
			DueDate:     &due,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	later := now.Add(time.Minute)

	decode := func(t *testing.T, body string) UpdateRequest {
		t.Helper()
		var req UpdateRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		return req
	}

	t.Run("absent fields are untouched", func(t *testing.T) {
		issue := base()
		before := *issue.Clone()
		require.NoError(t, decode(t, `{"status":"Resolved"}`).Apply(issue, later))
		assert.Equal(t, StatusResolved, issue.Status)
		assert.Equal(t, before.Title, issue.Title)
		assert.Equal(t, before.AssignedTo, issue.AssignedTo)
		assert.Equal(t, before.DueDate, issue.DueDate)
		assert.Equal(t, before.Tags, issue.Tags)
		assert.Equal(t, now, issue.CreatedAt)
		assert.Equal(t, later, issue.UpdatedAt)
	})

	t.Run("null clears optional references", func(t *testing.T) {
		issue := base()
		require.NoError(t, decode(t, `{"assignedTo":null,"dueDate":null,"tags":null}`).Apply(issue, later))
		assert.Nil(t, issue.AssignedTo)
		assert.Nil(t, issue.DueDate)
		assert.Equal(t, []string{}, issue.Tags)
	})

	t.Run("empty string clears optional references", func(t *testing.T) {
		issue := base()
		require.NoError(t, decode(t, `{"assignedTo":"","dueDate":""}`).Apply(issue, later))
		assert.Nil(t, issue.AssignedTo)
		assert.Nil(t, issue.DueDate)
	})

	t.Run("empty body only refreshes updatedAt", func(t *testing.T) {
		issue := base()
		before := *issue.Clone()
		require.NoError(t, decode(t, `{}`).Apply(issue, later))
		before.UpdatedAt = later
		assert.Equal(t, before, *issue)
	})

	invalid := []struct {
		name  string
		body  string
		field string
	}{
		{"null title", `{"title":null}`, "title"},
		{"blank title", `{"title":"  "}`, "title"},
		{"null description", `{"description":null}`, "description"},
		{"null status", `{"status":null}`, "status"},
		{"unknown status", `{"status":"Done"}`, "status"},
		{"unknown priority", `{"priority":"Urgent"}`, "priority"},
		{"empty severity", `{"severity":""}`, "severity"},
		{"malformed assignee", `{"assignedTo":"nobody"}`, "assignedTo"},
		{"malformed due date", `{"dueDate":"03/01/2026"}`, "dueDate"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			requireField(t, decode(t, tt.body).Apply(base(), later), tt.field)
		})
	}
}

func TestUpdateRequest_Assignee(t *testing.T) {
	var req UpdateRequest
	_, set, err := req.Assignee()
	require.NoError(t, err)
	assert.False(t, set)

	uid := id.NewUserID()
	require.NoError(t, json.Unmarshal([]byte(`{"assignedTo":"`+uid.String()+`"}`), &req))
	got, set, err := req.Assignee()
	require.NoError(t, err)
	assert.True(t, set)
	require.NotNil(t, got)
	assert.Equal(t, uid, *got)
}

func TestParseDueDate(t *testing.T) {
	got, err := ParseDueDate("2026-05-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), *got)

	got, err = ParseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecord_View(t *testing.T) {
	creator := authmodels.UserSummary{ID: id.NewUserID(), Username: "alice", Email: "alice@example.com"}
	assigneeID := id.NewUserID()
	issue := &Issue{
		ID:          id.NewIssueID(),
		Title:       "t",
		Description: "d",
		Status:      StatusOpen,
		Priority:    PriorityLow,
		Severity:    SeverityMinor,
		CreatedBy:   creator.ID,
		AssignedTo:  &assigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	v := Record{Issue: issue, Creator: &creator}.View()
	assert.Equal(t, creator, v.CreatedBy)
	require.NotNil(t, v.AssignedTo)
	assert.Equal(t, assigneeID, v.AssignedTo.ID)
	assert.Empty(t, v.AssignedTo.Username)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, []any{}, body["tags"])
	assert.Nil(t, body["dueDate"])
	assert.Equal(t, "alice", body["createdBy"].(map[string]any)["username"])
	assert.Contains(t, body, "createdAt")
	assert.Contains(t, body, "updatedAt")
}

func TestPriority_Rank(t *testing.T) {
	for i := 1; i < len(Priorities); i++ {
		assert.Less(t, Priorities[i-1].Rank(), Priorities[i].Rank())
	}
	assert.False(t, Priority("Urgent").IsValid())
}

func TestIssue_Clone(t *testing.T) {
	uid := id.NewUserID()
	due := now
	orig := &Issue{Tags: []string{"a"}, AssignedTo: &uid, DueDate: &due}
	c := orig.Clone()
	c.Tags[0] = "b"
	*c.AssignedTo = id.NewUserID()
	*c.DueDate = now.Add(time.Hour)
	assert.Equal(t, "a", orig.Tags[0])
	assert.Equal(t, uid, *orig.AssignedTo)
	assert.Equal(t, now, *orig.DueDate)
}
