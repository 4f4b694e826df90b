// Package identity provides identity value types and pure role checks.
// This package has NO dependencies on I/O or external packages.
package identity

import "time"

// Role is a totally ordered privilege level: user < admin < super_admin.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleSuperAdmin
)

// ParseRole converts a stored role string to a Role.
// Unknown values map to RoleUser so a corrupt row can never elevate.
func ParseRole(s string) Role {
	switch s {
	case "super_admin":
		return RoleSuperAdmin
	case "admin":
		return RoleAdmin
	default:
		return RoleUser
	}
}

// String returns the canonical storage representation.
func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "super_admin"
	case RoleAdmin:
		return "admin"
	default:
		return "user"
	}
}

// IsElevated returns true for admin and super_admin roles.
func (r Role) IsElevated() bool {
	return r >= RoleAdmin
}

// Identity represents a resolved user account (immutable value type).
type Identity struct {
	ID                     string
	Email                  string
	Role                   Role
	PlanID                 string
	MonthlyGenerationLimit int
	IsActive               bool
	StripeCustomerID       string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HasRole reports whether the identity satisfies the required role.
// This is a PURE function.
func HasRole(id Identity, required Role) bool {
	return id.Role >= required
}
