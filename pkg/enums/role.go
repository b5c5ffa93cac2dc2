package enums

import "fmt"

// Role represents a workflow permissions role stored in user_roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCashier  Role = "cashier"
	RoleEngineer Role = "engineer"
	RoleEmployee Role = "employee"
)

// RolePrecedence orders roles from highest to lowest authority. A user
// with multiple role rows resolves to the first match in this list.
var RolePrecedence = []Role{
	RoleAdmin,
	RoleCashier,
	RoleEngineer,
	RoleEmployee,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range RolePrecedence {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range RolePrecedence {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// HighestRole resolves a set of role rows to the single effective role.
// Returns false when the slice holds no valid role.
func HighestRole(roles []Role) (Role, bool) {
	for _, candidate := range RolePrecedence {
		for _, role := range roles {
			if role == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}
