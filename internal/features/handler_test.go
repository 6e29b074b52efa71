package features

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupFeaturesRouter(t *testing.T) (*gin.Engine, *MemoryTagRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryTagRepo()
	svc, _ := newTestService(repo)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router, repo
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPreviewHandler(t *testing.T) {
	router, _ := setupFeaturesRouter(t)

	resp := doJSON(router, http.MethodGet, "/api/v1/software/sw-slack/features/preview", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		SoftwareID string `json:"softwareId"`
		Features   []Tag  `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.SoftwareID != "sw-slack" || len(payload.Features) == 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/software/missing/features/preview", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestManualTagLifecycle(t *testing.T) {
	router, repo := setupFeaturesRouter(t)

	resp := doJSON(router, http.MethodPost, "/api/v1/software/sw-teams/features", map[string]string{"featureName": "Audit Logging"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	tags, _ := repo.ListBySoftware(context.Background(), "sw-teams")
	if len(tags) != 1 || tags[0].Source != SourceManual {
		t.Fatalf("expected one manual tag, got %+v", tags)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/software/sw-teams/features", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = doJSON(router, http.MethodPost, "/api/v1/software/sw-teams/features", map[string]string{"featureName": ""})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = doJSON(router, http.MethodDelete, "/api/v1/software/sw-teams/features/audit-logging", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = doJSON(router, http.MethodDelete, "/api/v1/software/sw-teams/features/audit-logging", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestExtractForCompanyHandler(t *testing.T) {
	router, _ := setupFeaturesRouter(t)

	resp := doJSON(router, http.MethodPost, "/api/v1/companies/acme/features/extract", map[string]any{"minConfidence": 0.6})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.SoftwareProcessed != 2 || summary.TagsWritten == 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	resp = doJSON(router, http.MethodPost, "/api/v1/companies/acme/features/extract", map[string]any{"minConfidence": 3})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = doJSON(router, http.MethodPost, "/api/v1/companies/ghost/features/extract", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
