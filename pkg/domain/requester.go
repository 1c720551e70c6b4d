package domain

// Role is the coarse authorization role carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Requester identifies the authenticated caller of a service operation.
// It is passed explicitly into every call rather than read from globals.
type Requester struct {
	ID   UserID
	Role Role
}

func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}

// IsAuthenticated reports whether the requester carries a user identity.
func (r Requester) IsAuthenticated() bool {
	return !r.ID.IsNil()
}

// CanModify implements the owner-or-admin rule.
func (r Requester) CanModify(owner UserID) bool {
	return r.IsAdmin() || (r.IsAuthenticated() && r.ID == owner)
}
