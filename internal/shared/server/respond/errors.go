package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/shared/validate"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if role := c.GetString("userRole"); role != "" {
		fields["user_role"] = role
	}
	if status >= 500 {
		if d, ok := details.(string); ok {
			fields["details"] = d
		}
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Validation sends a 400 validation_error with per-field details.
func Validation(c *gin.Context, message string, fields validate.Errors) {
	Error(c, http.StatusBadRequest, "validation_error", message, fields)
}

// Internal sends a 500 with a generic message and the underlying error as debug details.
func Internal(c *gin.Context, err error) {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", details)
}
