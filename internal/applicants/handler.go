package applicants

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/export"
	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/server/respond"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/shared/validate"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches the public application form.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.submit)
}

// RegisterAdminRoutes attaches the triage back-office.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/applications")
	g.GET("/job/:jobId", h.listForJob)
	g.PATCH("/:id/status", h.setStatus)
	g.PATCH("/:id/flag", h.toggleFlag)
	g.PATCH("/:id/star", h.toggleStar)
	g.PATCH("/:id/notes", h.setNotes)
	g.DELETE("/:id", h.delete)
	g.POST("/bulk-delete", h.bulkDelete)
	g.POST("/download-cvs", h.downloadResumes)
	g.POST("/export-data", h.exportData)
}

func (h *Handler) submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid form data", nil)
		return
	}

	var upload *Upload
	if fh, err := c.FormFile("resume"); err == nil {
		f, err := fh.Open()
		if err != nil {
			respond.Internal(c, err)
			return
		}
		defer f.Close()
		upload = &Upload{FileName: fh.Filename, Size: fh.Size, Body: f}
	} else if !errors.Is(err, http.ErrMissingFile) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid form data", nil)
		return
	}

	view, err := h.Svc.Submit(c.Request.Context(), req, upload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("applicantId", view.ID)
	c.Set("jobId", view.JobID)
	respond.JSON(c, http.StatusCreated, gin.H{"message": "Application submitted", "applicant": view})
}

func (h *Handler) listForJob(c *gin.Context) {
	var params query.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid query", nil)
		return
	}
	c.Set("jobId", c.Param("jobId"))
	out, err := h.Svc.ListForJob(c.Request.Context(), c.Param("jobId"), params)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"applicants": out, "total": len(out)})
}

func (h *Handler) setStatus(c *gin.Context) {
	c.Set("applicantId", c.Param("id"))
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	view, err := h.Svc.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) toggleFlag(c *gin.Context) {
	c.Set("applicantId", c.Param("id"))
	flagged, err := h.Svc.ToggleFlag(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"isFlagged": flagged})
}

func (h *Handler) toggleStar(c *gin.Context) {
	c.Set("applicantId", c.Param("id"))
	starred, err := h.Svc.ToggleStar(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"isStarred": starred})
}

func (h *Handler) setNotes(c *gin.Context) {
	c.Set("applicantId", c.Param("id"))
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(c, err)
		return
	}
	view, err := h.Svc.SetNotes(c.Request.Context(), c.Param("id"), *req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("applicantId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Applicant deleted"})
}

func (h *Handler) bulkDelete(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	n, err := h.Svc.BulkDelete(c.Request.Context(), req.ApplicantIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("affected", n)
	respond.OK(c, gin.H{"deleted": n})
}

func (h *Handler) downloadResumes(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	archive, err := h.Svc.BulkDownloadResumes(c.Request.Context(), req.ApplicantIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	defer archive.Close()

	c.Set("affected", archive.Len())
	respond.Attachment(c, "application/zip", "resumes_"+time.Now().UTC().Format("2006-01-02")+".zip")
	c.Status(http.StatusOK)
	if _, err := archive.WriteTo(c.Writer); err != nil {
		// Headers are already sent; the client sees a truncated archive.
		telemetry.Error("applicant.zip_stream_failed", map[string]any{"error": err.Error(), "request_id": c.GetString("requestId")})
	}
}

func (h *Handler) exportData(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	format := export.ParseFormat(req.Format)
	table, err := h.Svc.ExportFiltered(c.Request.Context(), req)
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
	respond.Attachment(c, format.ContentType(), format.Filename("applicants", time.Now().UTC()))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func writeError(c *gin.Context, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		respond.Validation(c, "validation failed", verrs)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrJobNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
	case errors.Is(err, ErrNoResumes):
		respond.Error(c, http.StatusNotFound, "not_found", "no resumes found for the selected applicants", nil)
	case errors.Is(err, ErrNoRecords):
		respond.Error(c, http.StatusNotFound, "not_found", "no applicants match the filter", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "applicant not found", nil)
	default:
		respond.Internal(c, err)
	}
}
