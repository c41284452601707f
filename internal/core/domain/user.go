package domain

import "time"

// User models an account in the credential store. Roles are resolved
// explicitly by the repository; a User never holds a lazy reference.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the names of the user's roles in stored order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, string(r.Name))
	}
	return names
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(name RoleName) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Principal is the identity bound to a single request once its access token
// has been validated.
type Principal struct {
	UserID   string
	Username string
	Roles    []RoleName
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(name RoleName) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// RoleStrings returns the principal's roles as plain strings.
func (p *Principal) RoleStrings() []string {
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, string(r))
	}
	return out
}

// NewPrincipal builds the request identity for a stored user.
func NewPrincipal(u *User) *Principal {
	roles := make([]RoleName, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Name)
	}
	return &Principal{UserID: u.ID, Username: u.Username, Roles: roles}
}
