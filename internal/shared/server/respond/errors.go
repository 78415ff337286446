package respond

import (
	"github.com/gin-gonic/gin"

	"coi-backend/internal/shared/telemetry"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error logs the failure and aborts with the standard error body.
// cause is logged only and never sent to the client.
func Error(c *gin.Context, status int, code, message string, cause error) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if filename := c.GetString("filename"); filename != "" {
		fields["filename"] = filename
	}
	if cause != nil {
		fields["error"] = cause
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
