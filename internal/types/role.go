package types

import "strings"

type Role string

const (
	RoleRider      Role = "rider"
	RoleDriver     Role = "driver"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole normalizes a role claim. Missing or unknown claims are riders;
// "passenger" is the legacy name for the rider role.
func ParseRole(v string) Role {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "driver":
		return RoleDriver
	case "admin":
		return RoleAdmin
	case "super_admin", "superadmin":
		return RoleSuperAdmin
	default:
		return RoleRider
	}
}

// BookingRestricted reports roles that may not book rides.
func (r Role) BookingRestricted() bool {
	return r == RoleDriver || r == RoleAdmin || r == RoleSuperAdmin
}
