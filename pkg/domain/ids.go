// Package domain holds the typed identifiers shared across modules.
// Typed IDs keep a user ID from being passed where an issue ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "issuehub/pkg/domain-errors"
)

type (
	UserID  uuid.UUID
	IssueID uuid.UUID
)

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewIssueID returns a fresh random issue ID.
func NewIssueID() IssueID { return IssueID(uuid.New()) }

// ParseUserID parses and validates a user identifier at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseIssueID parses and validates an issue identifier at a trust boundary.
func ParseIssueID(s string) (IssueID, error) {
	u, err := parseUUID(s, "issue ID")
	return IssueID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", label)
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id IssueID) String() string { return uuid.UUID(id).String() }
func (id IssueID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id IssueID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *IssueID) UnmarshalText(b []byte) error {
	parsed, err := ParseIssueID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
