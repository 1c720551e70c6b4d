package models

import (
	"net/mail"
	"strings"
	"time"

	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	pstrings "issuehub/pkg/platform/strings"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	MaxPasswordBytes = 72
)

// User is a registered account. Email is stored lower-cased.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	Role         id.Role
	CreatedAt    time.Time
}

// UserSummary is the public projection joined onto issues.
type UserSummary struct {
	ID       id.UserID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Requester returns the identity used for service authorization.
func (u *User) Requester() id.Requester {
	return id.Requester{ID: u.ID, Role: u.Role}
}

// UserView is the JSON shape returned by the auth endpoints.
type UserView struct {
	ID        id.UserID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      id.Role   `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims identifiers and lower-cases the email. The password is
// left untouched.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
}

func (r *RegisterRequest) Validate() error {
	if r.Username == "" {
		return dErrors.Validation("username", "username is required")
	}
	if n := pstrings.Length(r.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return dErrors.Validation("username", "username must be between 3 and 30 characters")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return dErrors.Validation("email", "email is required")
	}
	if r.Password == "" {
		return dErrors.Validation("password", "password is required")
	}
	return nil
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

// ActivityEntry is one audit record as shown to its actor or an admin.
type ActivityEntry struct {
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Subject   string    `json:"subject,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Client    string    `json:"client,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return dErrors.Validation("password", "password must be at least 6 characters")
	}
	if len(password) > MaxPasswordBytes {
		return dErrors.Validation("password", "password must be at most 72 bytes")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return dErrors.Validation("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return dErrors.Validation("email", "email is invalid")
	}
	return nil
}
