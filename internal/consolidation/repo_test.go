package consolidation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/companies"
)

func TestPGRepoReplaceDeletesThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	rec := Recommendation{
		ID:              "rec-1",
		JobID:           "job-1",
		ClusterCategory: "Task Management",
		Keep:            SoftwareRef{ID: "monday", Name: "Monday.com", AnnualCost: 60000},
		Remove:          []SoftwareRef{{ID: "asana", Name: "Asana", AnnualCost: 48000}},
		AnnualSavings:   48000,
		MigrationEffort: LevelLow,
		BusinessRisk:    LevelMedium,
		ConfidenceScore: 0.73,
		Rationale:       "Keep Monday.com",
		Rank:            1,
		CreatedAt:       time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM consolidation_recommendations").
		WithArgs("company-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO consolidation_recommendations").
		WithArgs(
			"rec-1",
			"company-1",
			"job-1",
			"Task Management",
			sqlmock.AnyArg(), // keep_software
			sqlmock.AnyArg(), // remove_software
			"[]",
			"[]",
			48000.0,
			"low",
			"medium",
			0.73,
			"Keep Monday.com",
			1,
			rec.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Replace(context.Background(), "company-1", []Recommendation{rec}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "company_id", "job_id", "cluster_category", "keep_software", "remove_software",
		"features_covered", "features_at_risk", "annual_savings", "migration_effort", "business_risk",
		"confidence_score", "rationale", "rank", "created_at",
	}).AddRow(
		"rec-1", "company-1", nil, "Search",
		[]byte(`{"id":"a","name":"A","annualCost":10,"licenseCount":1}`),
		[]byte(`[{"id":"b","name":"B","annualCost":20,"licenseCount":2}]`),
		[]byte(`["Search"]`),
		[]byte(`null`),
		20.0, "low", "low", 0.53, "Keep A", int64(1), now,
	)
	mock.ExpectQuery("FROM consolidation_recommendations").WithArgs("company-1").WillReturnRows(rows)

	recs, err := repo.ListByCompany(context.Background(), "company-1")
	if err != nil {
		t.Fatalf("ListByCompany: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	got := recs[0]
	if got.Keep.ID != "a" || len(got.Remove) != 1 || got.Remove[0].ID != "b" {
		t.Fatalf("unexpected software refs: %+v", got)
	}
	if got.JobID != "" || got.FeaturesAtRisk == nil || len(got.FeaturesAtRisk) != 0 {
		t.Fatalf("unexpected optional fields: %+v", got)
	}
	if got.MigrationEffort != LevelLow {
		t.Fatalf("unexpected effort %q", got.MigrationEffort)
	}
}

func TestMemoryRepoReplaceSupersedes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	if err := repo.Replace(ctx, "c1", []Recommendation{{ID: "1"}, {ID: "2"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := repo.Replace(ctx, "c1", []Recommendation{{ID: "3"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	recs, err := repo.ListByCompany(ctx, "c1")
	if err != nil {
		t.Fatalf("ListByCompany: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "3" {
		t.Fatalf("expected superseded set, got %+v", recs)
	}
}

func TestHandlerListsRecommendations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	_ = repo.Replace(context.Background(), "company-1", []Recommendation{
		{ID: "1", AnnualSavings: 100, Rank: 1},
		{ID: "2", AnnualSavings: 50, Rank: 2},
	})
	resolver := companies.NewMemoryRepo(companies.Company{ID: "company-1", Slug: "acme"})
	router := gin.New()
	NewHandler(resolver, repo).RegisterRoutes(router.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/acme/recommendations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload struct {
		Count              int     `json:"count"`
		TotalAnnualSavings float64 `json:"totalAnnualSavings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 2 || payload.TotalAnnualSavings != 150 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/companies/ghost/recommendations", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
