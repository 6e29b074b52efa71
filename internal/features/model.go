package features

import (
	"time"

	"portfolio-backend/internal/features/extract"
)

const (
	SourceDescription = extract.SourceDescription
	SourceCategory    = extract.SourceCategory
	SourceInferred    = extract.SourceInferred
	SourceManual      = "manual"

	// ManualConfidence is assigned to every manually added tag.
	ManualConfidence = 1.0
)

// Tag is a persisted feature tag on a software asset.
type Tag struct {
	SoftwareID string    `json:"softwareId"`
	Name       string    `json:"featureName"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Key is the normalized name tags are unique on within one software asset.
func (t Tag) Key() string {
	return extract.Key(t.Name)
}

// IsManual reports whether the tag was added by a person.
func (t Tag) IsManual() bool {
	return t.Source == SourceManual
}

// Category is a canonical feature category row.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Options tunes batch extraction.
type Options struct {
	// MinConfidence drops extracted tags scoring below it.
	MinConfidence float64 `json:"minConfidence"`
	// OverwriteExisting replaces previously extracted tags; manual tags are never replaced.
	OverwriteExisting bool `json:"overwriteExisting"`
}

// TagResult reports what one TagSoftware call did.
type TagResult struct {
	SoftwareID string `json:"softwareId"`
	Extracted  int    `json:"extracted"`
	Filtered   int    `json:"filtered"`
	Written    int    `json:"written"`
}

// ItemError records one asset that could not be tagged.
type ItemError struct {
	SoftwareID string `json:"softwareId"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Summary is the outcome of ExtractForCompany.
type Summary struct {
	CompanyID         string      `json:"companyId"`
	SoftwareTotal     int         `json:"softwareTotal"`
	SoftwareProcessed int         `json:"softwareProcessed"`
	TagsExtracted     int         `json:"tagsExtracted"`
	TagsFiltered      int         `json:"tagsFiltered"`
	TagsWritten       int         `json:"tagsWritten"`
	Failures          []ItemError `json:"failures"`
}
