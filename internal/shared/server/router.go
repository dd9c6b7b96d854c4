package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/config"
	"anoud-backend/internal/shared/metrics"
	"anoud-backend/internal/shared/server/middleware"
	"anoud-backend/internal/shared/server/respond"
	"anoud-backend/internal/shared/storage/db"
)

// PublicRoutes is implemented by handlers exposing unauthenticated routes.
type PublicRoutes interface {
	RegisterPublicRoutes(rg *gin.RouterGroup)
}

// AdminRoutes is implemented by handlers exposing back-office routes.
type AdminRoutes interface {
	RegisterAdminRoutes(rg *gin.RouterGroup)
}

// SuperadminRoutes is implemented by handlers restricted to superadmins.
type SuperadminRoutes interface {
	RegisterSuperadminRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the route owners mounted under /api/v1. Nil entries are
// skipped.
type RouterDeps struct {
	Config     config.Config
	DB         *sql.DB
	Auth       interface{ RegisterRoutes(rg *gin.RouterGroup) }
	Public     []PublicRoutes
	Admin      []AdminRoutes
	Superadmin []SuperadminRoutes
	Limiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := map[string]middleware.RateLimitRule{}
	if deps.Config.SubmitRatePerMin > 0 {
		rules[middleware.SubmitRateLimitGroup] = middleware.PerMinute(deps.Config.SubmitRatePerMin)
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:  deps.Limiter,
			GroupFor: rateLimitGroup,
			Rules:    rules,
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB))
	api.GET("/metrics", metrics.Handler())
	if deps.Auth != nil {
		deps.Auth.RegisterRoutes(api)
	}
	for _, h := range deps.Public {
		h.RegisterPublicRoutes(api)
	}

	admin := api.Group("", middleware.RequireAdmin())
	for _, h := range deps.Admin {
		h.RegisterAdminRoutes(admin)
	}

	super := api.Group("", middleware.RequireSuperadmin())
	for _, h := range deps.Superadmin {
		h.RegisterSuperadminRoutes(super)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/applications" {
		return middleware.SubmitRateLimitGroup
	}
	return ""
}

func healthHandler(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if database == nil {
			respond.OK(c, gin.H{"ok": true, "database": "memory"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, database); err != nil {
			respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "down"})
			return
		}
		respond.OK(c, gin.H{"ok": true, "database": "up"})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
