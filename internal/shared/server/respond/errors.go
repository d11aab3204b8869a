package respond

import (
	"github.com/gin-gonic/gin"

	"cv-tailor-backend/internal/shared/telemetry"
)

// ErrorBody is the standardized failure payload.
type ErrorBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response and logs it with request context.
// Details are for operators; message must stay generic for internal failures.
func Error(c *gin.Context, status int, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if details != nil {
		fields["details"] = details
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorBody{
		Success: false,
		Message: message,
		Details: details,
	})
}
