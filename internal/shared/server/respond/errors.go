package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/apperr"
	"portfolio-backend/internal/shared/telemetry"
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

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FromError classifies err by kind and writes the matching error response.
// Client errors carry the innermost cause; server errors use fallback.
func FromError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	message := fallback
	if status < http.StatusInternalServerError {
		message = clientMessage(err)
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error_cause", map[string]any{
			"error":      err,
			"request_id": c.GetString("requestId"),
		})
	}
	Error(c, status, apperr.Code(err), message, nil)
}

func clientMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		return ae.Err.Error()
	}
	return err.Error()
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch apperr.Code(err) {
	case "validation_error":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "extraction_failed":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
