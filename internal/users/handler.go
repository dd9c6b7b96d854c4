package users

import (
	"encoding/json"
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

// RegisterAdminRoutes attaches routes available to any admin.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.GET("/leads/custom-columns", h.getColumns)
	rg.POST("/leads/custom-columns", h.saveColumns)
	rg.DELETE("/leads/custom-columns/:columnId", h.deleteColumn)
}

// RegisterSuperadminRoutes attaches routes restricted to superadmins.
func (h *Handler) RegisterSuperadminRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.list)
}

func (h *Handler) me(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), admin.ID)
	if errors.Is(err, ErrNotFound) {
		// Token identity is still valid for accounts not yet persisted.
		respond.OK(c, gin.H{"id": admin.ID, "email": admin.Email, "name": admin.Name, "role": admin.Role})
		return
	}
	if err != nil {
		respond.Internal(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) list(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid query", nil)
		return
	}
	out, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"users": out, "total": len(out)})
}

func (h *Handler) getColumns(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	cols, err := h.Svc.CustomColumns(c.Request.Context(), admin)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"columns": cols})
}

type saveColumnsRequest struct {
	Columns json.RawMessage `json:"columns"`
}

func (h *Handler) saveColumns(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	var req saveColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, "invalid request body", validate.Errors{{Field: "columns", Message: "must be an array"}})
		return
	}
	cols, err := h.Svc.SaveCustomColumns(c.Request.Context(), admin, req.Columns)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"columns": cols})
}

func (h *Handler) deleteColumn(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	cols, err := h.Svc.DeleteCustomColumn(c.Request.Context(), admin, c.Param("columnId"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"columns": cols})
}

func writeError(c *gin.Context, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		respond.Validation(c, "validation failed", verrs)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", "email already registered", nil)
	default:
		respond.Internal(c, err)
	}
}
