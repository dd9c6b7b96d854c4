package jobs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/server/middleware"
	"anoud-backend/internal/shared/server/respond"
	"anoud-backend/internal/shared/validate"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs", h.list)
	rg.GET("/jobs/:id", h.get)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.create)
	rg.DELETE("/jobs/:id", h.close)
}

func (h *Handler) list(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	includeInactive := c.Query("all") == "true" && admin.IsAdmin()
	out, err := h.Svc.List(c.Request.Context(), includeInactive)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	respond.OK(c, gin.H{"jobs": out})
}

func (h *Handler) get(c *gin.Context) {
	c.Set("jobId", c.Param("id"))
	job, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	admin, _ := middleware.AdminFromContext(c)
	if !job.IsActive && !admin.IsAdmin() {
		writeError(c, ErrNotFound)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	job, err := h.Svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusCreated, job)
}

func (h *Handler) close(c *gin.Context) {
	c.Set("jobId", c.Param("id"))
	if err := h.Svc.Close(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Job closed"})
}

func writeError(c *gin.Context, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		respond.Validation(c, "validation failed", verrs)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
	default:
		respond.Internal(c, err)
	}
}
