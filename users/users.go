package users

import (
	"time"

	"github.com/jrsteele09/go-course-client/rbac"
)

// User is the platform identity attached to an authorized session. Identity is
// resolved by the external authority during login; the client never sees
// credentials, only the resolved record.
type User struct {
	ID        string          `json:"id,omitempty"`         // Unique identifier for the user
	Username  string          `json:"username,omitempty"`   // Unique username
	FullName  string          `json:"full_name,omitempty"`  // Display name
	Email     string          `json:"email,omitempty"`      // User's email address
	Roles     []rbac.RoleType `json:"roles,omitempty"`      // Platform roles (Student, Teacher, Admin)
	Blocked   bool            `json:"blocked,omitempty"`    // Blocked, has the user been blocked from logging in
	CreatedAt time.Time       `json:"created_at,omitempty"` // Date and time the user registered
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role rbac.RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Permissions derives the user's permission set from their roles.
func (u *User) Permissions() []string {
	return rbac.PermissionsForRoles(u.Roles)
}
