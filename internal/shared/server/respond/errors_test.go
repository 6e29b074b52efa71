package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/apperr"
)

func TestFromErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", apperr.Validation("op", "name is required"), http.StatusBadRequest, "validation_error", "name is required"},
		{"not found", apperr.NotFound("op", "no such job"), http.StatusNotFound, "not_found", "no such job"},
		{"conflict", apperr.Conflict("op", "already running"), http.StatusConflict, "conflict", "already running"},
		{"storage", apperr.Wrap(apperr.ErrPersistence, "op", errors.New("dial tcp")), http.StatusInternalServerError, "storage_error", "failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", "failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			FromError(c, tc.err, "failed")

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Error.Code)
			}
			if body.Error.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, body.Error.Message)
			}
		})
	}
}
