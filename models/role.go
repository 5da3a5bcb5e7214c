package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. A user's role is fixed at registration.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	default:
		return false
	}
}

// Label is the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleInstructor:
		return "Instructor"
	case RoleStudent:
		return "Student"
	default:
		return "Unknown"
	}
}

// ParseRole accepts any casing of a declared role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// SelfRegisterable reports whether the role may be chosen on the registration form.
func (r Role) SelfRegisterable() bool {
	switch r {
	case RoleInstructor, RoleStudent:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}
