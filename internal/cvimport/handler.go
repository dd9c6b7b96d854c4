package cvimport

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/server/middleware"
	"anoud-backend/internal/shared/server/respond"
	"anoud-backend/internal/shared/validate"
)

// MaxArchiveBytes caps an uploaded ZIP.
const MaxArchiveBytes = 100 << 20

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterSuperadminRoutes attaches the CV import endpoints.
func (h *Handler) RegisterSuperadminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/cv-import")
	g.POST("/parse", h.parse)
	g.POST("/create-users", h.createUsers)
}

func (h *Handler) parse(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "file", Message: "a .zip file is required"}})
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".zip") {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "file", Message: "only .zip files are accepted"}})
		return
	}
	if fh.Size > MaxArchiveBytes {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "file", Message: "archive exceeds 100MB"}})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Internal(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxArchiveBytes))
	if err != nil {
		respond.Internal(c, err)
		return
	}

	admin, _ := middleware.AdminFromContext(c)
	manifest, err := h.Svc.Parse(c.Request.Context(), data, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, manifest)
}

type createUsersRequest struct {
	Profiles []Profile `json:"profiles"`
}

func (h *Handler) createUsers(c *gin.Context) {
	var req createUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Profiles) == 0 {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "profiles", Message: "must be a non-empty array"}})
		return
	}
	admin, _ := middleware.AdminFromContext(c)
	res, err := h.Svc.CreateAccounts(c.Request.Context(), req.Profiles, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, res)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidArchive), errors.Is(err, ErrTooManyEntries), errors.Is(err, ErrEmptyArchive):
		respond.Error(c, http.StatusBadRequest, "invalid_archive", err.Error(), nil)
	default:
		respond.Internal(c, err)
	}
}
