package features

import (
	"context"
	"errors"
	"sync"

	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/features/extract"
	"portfolio-backend/internal/software"
)

const testCompanyID = "company-1"

func testAssets() []software.Asset {
	return []software.Asset{
		{
			ID:           "sw-slack",
			CompanyID:    testCompanyID,
			Name:         "Slack",
			Category:     "Communication",
			Description:  "Team collaboration with real-time chat, file sharing, and workflow automation",
			AnnualCost:   12000,
			LicenseCount: 100,
			Active:       true,
		},
		{
			ID:           "sw-teams",
			CompanyID:    testCompanyID,
			Name:         "Teams",
			Category:     "Communication",
			Description:  "Video conferencing and chat for teams with file sharing and calendar scheduling",
			AnnualCost:   8000,
			LicenseCount: 150,
			Active:       true,
		},
		{
			ID:          "sw-retired",
			CompanyID:   testCompanyID,
			Name:        "Retired Chat",
			Category:    "Communication",
			Description: "Legacy chat tool nobody uses anymore",
			AnnualCost:  500,
			Active:      false,
		},
	}
}

func newTestService(tags TagRepo) (*Service, *MemoryCategoryStore) {
	cats := NewMemoryCategoryStore()
	return &Service{
		Software:   software.NewMemoryRepo(testAssets()...),
		Companies:  companies.NewMemoryRepo(companies.Company{ID: testCompanyID, Slug: "acme", Name: "Acme"}),
		Tags:       tags,
		Categories: cats,
	}, cats
}

// flakyTagRepo fails the first failUpserts Upsert calls.
type flakyTagRepo struct {
	*MemoryTagRepo
	mu          sync.Mutex
	failUpserts int
	calls       int
}

func (r *flakyTagRepo) Upsert(ctx context.Context, tags []Tag, overwrite bool) (int, error) {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.failUpserts
	r.mu.Unlock()
	if fail {
		return 0, errors.New("connection reset")
	}
	return r.MemoryTagRepo.Upsert(ctx, tags, overwrite)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(string, string, string) []extract.Tag {
	panic("lexicon exploded")
}
