package consolidation

import "context"

// Repo stores the latest recommendation set of each company.
type Repo interface {
	// Replace swaps a company's recommendations for recs in one step.
	Replace(ctx context.Context, companyID string, recs []Recommendation) error
	ListByCompany(ctx context.Context, companyID string) ([]Recommendation, error)
}
