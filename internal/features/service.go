package features

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/features/extract"
	"portfolio-backend/internal/features/taxonomy"
	"portfolio-backend/internal/shared/apperr"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/software"
)

// persistAttempts is the number of tries a tag write gets before the item is given up.
const persistAttempts = 2

// Extractor produces scored tags from an asset's text fields.
type Extractor interface {
	Extract(description, category, name string) []extract.Tag
}

// Service extracts, categorizes and stores feature tags.
type Service struct {
	Software   software.Reader
	Companies  companies.Resolver
	Tags       TagRepo
	Categories CategoryStore
	Extractor  Extractor
	Taxonomy   taxonomy.Normalizer
}

func (s *Service) extractor() Extractor {
	if s.Extractor == nil {
		return extract.Default()
	}
	return s.Extractor
}

func (s *Service) normalizer() taxonomy.Normalizer {
	if s.Taxonomy == nil {
		return taxonomy.Default()
	}
	return s.Taxonomy
}

// Preview extracts tags for one asset without persisting them.
func (s *Service) Preview(ctx context.Context, softwareID string) ([]Tag, error) {
	asset, err := s.asset(ctx, "features.preview", softwareID)
	if err != nil {
		return nil, err
	}
	raw, err := s.Extract(asset)
	if err != nil {
		return nil, err
	}
	return s.categorize(asset.ID, raw), nil
}

// Extract runs the extractor on an asset. A panic inside extraction is returned as an
// extraction failure so one bad record cannot take down a batch.
func (s *Service) Extract(asset software.Asset) (tags []extract.Tag, err error) {
	defer func() {
		if r := recover(); r != nil {
			tags = nil
			err = apperr.Wrap(apperr.ErrExtraction, "features.extract", fmt.Errorf("software %s: %v", asset.ID, r))
		}
	}()
	return s.extractor().Extract(asset.Description, asset.Category, asset.Name), nil
}

// TagSoftware extracts and persists tags for one asset. A failed write is retried once.
func (s *Service) TagSoftware(ctx context.Context, asset software.Asset, opts Options) (TagResult, error) {
	res := TagResult{SoftwareID: asset.ID}
	raw, err := s.Extract(asset)
	if err != nil {
		return res, err
	}
	res.Extracted = len(raw)

	tags := make([]Tag, 0, len(raw))
	for _, t := range s.categorize(asset.ID, raw) {
		if t.Confidence < opts.MinConfidence {
			res.Filtered++
			continue
		}
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return res, nil
	}

	written, err := s.persist(ctx, tags, opts.OverwriteExisting)
	if err != nil {
		return res, err
	}
	res.Written = written
	metrics.AddTagsWritten(written)
	return res, nil
}

func (s *Service) persist(ctx context.Context, tags []Tag, overwrite bool) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		written, err := s.writeTags(ctx, tags, overwrite)
		if err == nil {
			return written, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < persistAttempts {
			telemetry.Warn("features.persist_retry", map[string]any{
				"software_id": tags[0].SoftwareID,
				"attempt":     attempt,
				"error":       err,
			})
		}
	}
	return 0, apperr.Wrap(apperr.ErrPersistence, "features.persist", lastErr)
}

func (s *Service) writeTags(ctx context.Context, tags []Tag, overwrite bool) (int, error) {
	if err := s.ensureCategories(ctx, tags); err != nil {
		return 0, err
	}
	return s.Tags.Upsert(ctx, tags, overwrite)
}

func (s *Service) ensureCategories(ctx context.Context, tags []Tag) error {
	if s.Categories == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		if _, err := s.Categories.GetOrCreate(ctx, t.Category); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) categorize(softwareID string, raw []extract.Tag) []Tag {
	norm := s.normalizer()
	out := make([]Tag, 0, len(raw))
	for _, t := range raw {
		out = append(out, Tag{
			SoftwareID: softwareID,
			Name:       t.Name,
			Category:   norm.Normalize(t.Name),
			Confidence: t.Confidence,
			Source:     t.Source,
		})
	}
	return out
}

// ExtractForCompany tags every active asset of a company synchronously, without job tracking.
// Per-asset failures are collected in the summary; only lookup failures abort the batch.
func (s *Service) ExtractForCompany(ctx context.Context, companyRef string, opts Options) (Summary, error) {
	if opts.MinConfidence < 0 || opts.MinConfidence > 1 {
		return Summary{}, apperr.Validation("features.extract_for_company", "minConfidence must be between 0 and 1")
	}
	companyID, err := s.Companies.Resolve(ctx, companyRef)
	if err != nil {
		return Summary{}, classifyLookup("features.extract_for_company", err)
	}
	assets, err := s.Software.ListActive(ctx, companyID)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.ErrPersistence, "features.extract_for_company", err)
	}

	summary := Summary{
		CompanyID:     companyID,
		SoftwareTotal: len(assets),
		Failures:      make([]ItemError, 0),
	}
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := s.TagSoftware(ctx, asset, opts)
		summary.TagsExtracted += res.Extracted
		summary.TagsFiltered += res.Filtered
		if err != nil {
			logItemFailure("features.extract_item_failed", asset, err)
			summary.Failures = append(summary.Failures, ItemError{
				SoftwareID: asset.ID,
				Name:       asset.Name,
				Code:       apperr.Code(err),
				Message:    err.Error(),
			})
			continue
		}
		summary.SoftwareProcessed++
		summary.TagsWritten += res.Written
	}

	telemetry.Info("features.extract_for_company", map[string]any{
		"company_id":     companyID,
		"software_total": summary.SoftwareTotal,
		"processed":      summary.SoftwareProcessed,
		"tags_written":   summary.TagsWritten,
		"tags_filtered":  summary.TagsFiltered,
		"failures":       len(summary.Failures),
	})
	return summary, nil
}

// AddManual records a person-curated tag. Manual tags carry full confidence and are never
// replaced by extraction.
func (s *Service) AddManual(ctx context.Context, softwareID, featureName string) (Tag, error) {
	name := strings.TrimSpace(featureName)
	if extract.Key(name) == "" {
		return Tag{}, apperr.Validation("features.add_manual", "feature name is required")
	}
	asset, err := s.asset(ctx, "features.add_manual", softwareID)
	if err != nil {
		return Tag{}, err
	}
	tag := Tag{
		SoftwareID: asset.ID,
		Name:       name,
		Category:   s.normalizer().Normalize(name),
		Confidence: ManualConfidence,
		Source:     SourceManual,
	}
	if _, err := s.persist(ctx, []Tag{tag}, true); err != nil {
		return Tag{}, err
	}
	return tag, nil
}

// Remove deletes a tag regardless of its source.
func (s *Service) Remove(ctx context.Context, softwareID, featureName string) error {
	if strings.TrimSpace(softwareID) == "" || extract.Key(featureName) == "" {
		return apperr.Validation("features.remove", "software id and feature name are required")
	}
	err := s.Tags.Delete(ctx, softwareID, featureName)
	if err != nil && !errors.Is(err, ErrTagNotFound) {
		return apperr.Wrap(apperr.ErrPersistence, "features.remove", err)
	}
	return err
}

// ListTags returns the stored tags of one asset.
func (s *Service) ListTags(ctx context.Context, softwareID string) ([]Tag, error) {
	asset, err := s.asset(ctx, "features.list", softwareID)
	if err != nil {
		return nil, err
	}
	tags, err := s.Tags.ListBySoftware(ctx, asset.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPersistence, "features.list", err)
	}
	return tags, nil
}

// TagsFor returns stored tags grouped by software id.
func (s *Service) TagsFor(ctx context.Context, softwareIDs []string) (map[string][]Tag, error) {
	tags, err := s.Tags.ListForSoftware(ctx, softwareIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPersistence, "features.tags_for", err)
	}
	return tags, nil
}

func (s *Service) asset(ctx context.Context, op, softwareID string) (software.Asset, error) {
	if strings.TrimSpace(softwareID) == "" {
		return software.Asset{}, apperr.Validation(op, "software id is required")
	}
	asset, err := s.Software.GetByID(ctx, softwareID)
	if err != nil {
		return software.Asset{}, classifyLookup(op, err)
	}
	return asset, nil
}

// classifyLookup leaves already-classified errors alone and treats the rest as store failures.
func classifyLookup(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
		return err
	}
	return apperr.Wrap(apperr.ErrPersistence, op, err)
}

func logItemFailure(event string, asset software.Asset, err error) {
	fields := map[string]any{
		"software_id": asset.ID,
		"software":    asset.Name,
		"code":        apperr.Code(err),
		"error":       err,
	}
	metrics.IncItemFailure(apperr.Code(err))
	if errors.Is(err, apperr.ErrExtraction) {
		telemetry.Warn(event, fields)
		return
	}
	telemetry.Error(event, fields)
}
