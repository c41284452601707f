package domain

import "strings"

// RoleName is drawn from a closed enumeration; no ad-hoc roles exist.
type RoleName string

const (
	RoleUser      RoleName = "ROLE_USER"
	RoleModerator RoleName = "ROLE_MODERATOR"
	RoleAdmin     RoleName = "ROLE_ADMIN"
	RoleActuator  RoleName = "ROLE_ACTUATOR"
)

// AllRoles lists every role seeded at start-up.
var AllRoles = []RoleName{RoleUser, RoleModerator, RoleAdmin, RoleActuator}

// Role is a persisted role record.
type Role struct {
	ID   string   `json:"id"`
	Name RoleName `json:"name"`
}

// IsValid reports whether n belongs to the enumeration.
func (n RoleName) IsValid() bool {
	for _, r := range AllRoles {
		if r == n {
			return true
		}
	}
	return false
}

// RoleFromLabel maps a sign-up label to a role. Only "admin" and "mod" are
// recognised; ok is false for anything else and the caller decides whether
// to fall back to RoleUser.
func RoleFromLabel(label string) (RoleName, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "admin":
		return RoleAdmin, true
	case "mod":
		return RoleModerator, true
	case "user":
		return RoleUser, true
	default:
		return RoleUser, false
	}
}

// ParseRoleName resolves an enumeration name such as "ROLE_ADMIN". Short
// labels accepted by RoleFromLabel are tolerated as well.
func ParseRoleName(s string) (RoleName, bool) {
	n := RoleName(strings.ToUpper(strings.TrimSpace(s)))
	if n.IsValid() {
		return n, true
	}
	if r, ok := RoleFromLabel(s); ok {
		return r, true
	}
	return "", false
}
