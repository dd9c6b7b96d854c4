package leads

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/export"
	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/server/middleware"
	"anoud-backend/internal/shared/server/respond"
	"anoud-backend/internal/shared/validate"
)

const maxImportBytes = 5 << 20

type Handler struct {
	Svc    *Service
	TmpDir string
}

func NewHandler(svc *Service, tmpDir string) *Handler {
	return &Handler{Svc: svc, TmpDir: tmpDir}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/leads")
	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/import-csv", h.importCSV)
	g.POST("/export-csv", h.exportCSV)
	g.POST("/send-email", h.sendEmail)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	var params query.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid query", nil)
		return
	}
	out, err := h.Svc.List(c.Request.Context(), params, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) create(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	lead, err := h.Svc.Create(c.Request.Context(), req, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("leadId", lead.ID)
	respond.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) get(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	c.Set("leadId", c.Param("id"))
	lead, err := h.Svc.Get(c.Request.Context(), c.Param("id"), admin)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, lead)
}

func (h *Handler) update(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	c.Set("leadId", c.Param("id"))
	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	lead, err := h.Svc.Update(c.Request.Context(), c.Param("id"), req, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, lead)
}

func (h *Handler) delete(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	c.Set("leadId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), admin); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Lead deleted"})
}

func (h *Handler) importCSV(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "file", Message: "is required"}})
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "file", Message: "must be a .csv file"}})
		return
	}
	if fh.Size > maxImportBytes {
		respond.Validation(c, "validation failed", validate.Errors{{Field: "file", Message: "must be 5MB or smaller"}})
		return
	}

	path, err := h.saveTemp(fh)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	res, err := h.Svc.ImportCSVFile(c.Request.Context(), path, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("affected", res.Imported)
	respond.OK(c, gin.H{"imported": res.Imported, "errors": res.Errors})
}

func (h *Handler) saveTemp(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	if err := os.MkdirAll(h.TmpDir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.CreateTemp(h.TmpDir, "leads-*.csv")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func (h *Handler) exportCSV(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	format := export.ParseFormat(req.Format)
	table, err := h.Svc.Export(c.Request.Context(), req, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		respond.Internal(c, err)
		return
	}
	c.Set("affected", table.Len())
	respond.Attachment(c, format.ContentType(), format.Filename("leads", time.Now().UTC()))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *Handler) sendEmail(c *gin.Context) {
	admin, _ := middleware.AdminFromContext(c)
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res, err := h.Svc.SendEmailCampaign(c.Request.Context(), req, admin, middleware.RequestIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("affected", res.Queued)
	respond.OK(c, res)
}

func writeError(c *gin.Context, err error) {
	var (
		verrs   validate.Errors
		noValid *NoValidRowsError
	)
	switch {
	case errors.As(err, &verrs):
		respond.Validation(c, "validation failed", verrs)
	case errors.As(err, &noValid):
		respond.Error(c, http.StatusBadRequest, "validation_error", ErrNoValidRows.Error(), gin.H{"errors": noValid.Errors})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", ErrForbidden.Error(), nil)
	case errors.Is(err, ErrNoRecords):
		respond.Error(c, http.StatusNotFound, "not_found", ErrNoRecords.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", ErrNotFound.Error(), nil)
	default:
		respond.Internal(c, err)
	}
}
