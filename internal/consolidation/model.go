package consolidation

import "time"

// Level grades migration effort and business risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Thresholds grading a recommendation. They are fixed business rules, kept as named values.
const (
	// AtRiskMediumMax is the largest at-risk feature count still graded medium.
	AtRiskMediumMax = 3
	// LowRiskLicenseMax bounds the combined licenses of retired tools for a low business risk.
	LowRiskLicenseMax = 50
	// MediumRiskLicenseMax bounds the combined licenses of retired tools for a medium business risk.
	MediumRiskLicenseMax = 200
	// FullConfidenceClusterSize is the cluster size at which confidence is no longer scaled down.
	FullConfidenceClusterSize = 3
)

// SoftwareRef is the part of an asset a recommendation records.
type SoftwareRef struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Vendor       string  `json:"vendor,omitempty"`
	AnnualCost   float64 `json:"annualCost"`
	LicenseCount int     `json:"licenseCount"`
}

// Recommendation proposes keeping one tool of an overlap cluster and retiring the rest.
type Recommendation struct {
	ID              string        `json:"id"`
	CompanyID       string        `json:"companyId"`
	JobID           string        `json:"jobId,omitempty"`
	ClusterCategory string        `json:"clusterCategory"`
	Keep            SoftwareRef   `json:"keep"`
	Remove          []SoftwareRef `json:"remove"`
	FeaturesCovered []string      `json:"featuresCovered"`
	FeaturesAtRisk  []string      `json:"featuresAtRisk"`
	AnnualSavings   float64       `json:"annualSavings"`
	MigrationEffort Level         `json:"migrationEffort"`
	BusinessRisk    Level         `json:"businessRisk"`
	ConfidenceScore float64       `json:"confidenceScore"`
	Rationale       string        `json:"rationale"`
	Rank            int           `json:"rank"`
	CreatedAt       time.Time     `json:"createdAt"`
}
