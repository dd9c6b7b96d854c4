package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"
	adminKey    = "admin"
)

// Auth resolves the caller from a bearer token when one is present.
// Requests without a token continue anonymously; malformed or expired
// tokens are rejected.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		SetAdmin(c, auth.AdminFromClaims(claims))
		c.Next()
	}
}

// RequireAdmin rejects callers that are not admins or superadmins.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(func(a auth.Admin) bool { return a.IsAdmin() })
}

// RequireSuperadmin rejects callers that are not superadmins.
func RequireSuperadmin() gin.HandlerFunc {
	return requireRole(func(a auth.Admin) bool { return a.IsSuper() })
}

func requireRole(allowed func(auth.Admin) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := AdminFromContext(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		if !allowed(admin) {
			respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
			return
		}
		c.Next()
	}
}

// SetAdmin stores the acting identity on the request context.
func SetAdmin(c *gin.Context, admin auth.Admin) {
	c.Set(adminKey, admin)
	c.Set(userIDKey, admin.ID)
	c.Set(userRoleKey, string(admin.Role))
}

// AdminFromContext returns the identity stored by Auth.
func AdminFromContext(c *gin.Context) (auth.Admin, bool) {
	if c == nil {
		return auth.Admin{}, false
	}
	val, ok := c.Get(adminKey)
	if !ok {
		return auth.Admin{}, false
	}
	admin, ok := val.(auth.Admin)
	return admin, ok
}

// UserIDFromContext fetches the caller ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
