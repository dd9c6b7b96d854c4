package users

import (
	"time"

	"anoud-backend/internal/shared/auth"
)

// User is an account. Admins and superadmins use the back office; plain
// users are created from imported CVs.
type User struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone,omitempty"`
	Role          auth.Role      `json:"role"`
	Skills        []string       `json:"skills,omitempty"`
	CustomColumns []CustomColumn `json:"customColumns"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// CustomColumn is a per-admin UI column definition.
type CustomColumn struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Admin converts the account to the identity carried by bearer tokens.
func (u User) Admin() auth.Admin {
	return auth.Admin{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// ListFilter narrows List.
type ListFilter struct {
	Role   string `form:"role"`
	Search string `form:"search"`
}
