package models

import "fmt"

// Role is a member's permission level inside a club.
type Role string

const (
	RoleMember  Role = "member"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// CanApprove reports whether the role may approve, reject or settle expenses.
func (r Role) CanApprove() bool {
	return r == RoleOfficer || r == RoleAdmin
}

// ParseRole converts a raw role string. An empty string means member.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case "":
		return RoleMember, nil
	case RoleMember, RoleOfficer, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Member is a club directory entry.
// Accounts and credentials live in the managed backend; this record only
// carries what settlement views need.
type Member struct {
	// ID matches the user ID issued by the backend's auth service.
	ID string

	// ClubID is the club the member belongs to.
	ClubID string

	// DisplayName is shown in settlement suggestions ("Pay $X to {name}").
	DisplayName string

	Email string

	Role Role

	// CreatedAt is the Unix timestamp when the member was added.
	CreatedAt int64
}

// Name returns the display name, falling back to the ID.
func (m *Member) Name() string {
	if m == nil {
		return ""
	}
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}
