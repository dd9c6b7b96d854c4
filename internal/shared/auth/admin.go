package auth

// Role is the privilege level of an account.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// Admin is the acting back-office user resolved from a bearer token.
type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// IsSuper reports whether the admin bypasses ownership scoping.
func (a Admin) IsSuper() bool {
	return a.Role == RoleSuperadmin
}

// IsAdmin reports whether the account may use the back office at all.
func (a Admin) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperadmin
}

// AdminFromClaims converts verified token claims to an Admin.
func AdminFromClaims(c Claims) Admin {
	role := Role(c.Role)
	if !role.Valid() {
		role = RoleUser
	}
	return Admin{ID: c.Sub, Email: c.Email, Name: c.Name, Role: role}
}
