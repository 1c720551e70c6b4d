package audit

import (
	"context"
	"time"

	id "issuehub/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can route or retain them differently.
type EventCategory string

const (
	// CategorySecurity covers authentication outcomes and denied access.
	CategorySecurity EventCategory = "security"
	// CategoryChange covers mutations of issue records.
	CategoryChange EventCategory = "change"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// ActorID is the user who performed the action.
	ActorID id.UserID
	Action  string
	// Subject identifies the affected record, e.g. an issue ID.
	Subject   string
	Reason    string
	RequestID string
	IP        string
	// Client describes the caller's browser or tool.
	Client string
}

type AuditEvent string

const (
	EventUserRegistered AuditEvent = "user_registered"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventLogout         AuditEvent = "logout"

	EventIssueCreated      AuditEvent = "issue_created"
	EventIssueUpdated      AuditEvent = "issue_updated"
	EventIssueDeleted      AuditEvent = "issue_deleted"
	EventIssueAccessDenied AuditEvent = "issue_access_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLoginFailed:       CategorySecurity,
	EventIssueAccessDenied: CategorySecurity,

	EventIssueCreated: CategoryChange,
	EventIssueUpdated: CategoryChange,
	EventIssueDeleted: CategoryChange,

	EventUserRegistered: CategoryOperations,
	EventLoginSucceeded: CategoryOperations,
	EventLogout:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByActor(ctx context.Context, actorID id.UserID) ([]Event, error)
}
