package analyses

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/consolidation"
	"portfolio-backend/internal/features"
	"portfolio-backend/internal/features/extract"
	"portfolio-backend/internal/shared/lock"
	"portfolio-backend/internal/software"
)

const testCompanyID = "company-1"

func pmAsset(id, name string, cost float64) software.Asset {
	return software.Asset{
		ID:           id,
		CompanyID:    testCompanyID,
		Name:         name,
		Category:     "Project Management",
		Description:  name + " keeps project work organized for every team",
		AnnualCost:   cost,
		LicenseCount: 40,
		Active:       true,
	}
}

func taskTags(extra ...string) []extract.Tag {
	out := []extract.Tag{
		{Name: "Task Management", Confidence: 0.8, Source: extract.SourceDescription},
		{Name: "Kanban Boards", Confidence: 0.8, Source: extract.SourceDescription},
	}
	for _, name := range extra {
		out = append(out, extract.Tag{Name: name, Confidence: 0.6, Source: extract.SourceCategory})
	}
	return out
}

// scriptedExtractor returns fixed tags per product name. "Broken" panics.
type scriptedExtractor struct {
	tags      map[string][]extract.Tag
	onExtract func(name string)
}

func (e *scriptedExtractor) Extract(_, _, name string) []extract.Tag {
	if e.onExtract != nil {
		e.onExtract(name)
	}
	if name == "Broken" {
		panic("malformed description")
	}
	return e.tags[name]
}

// gate parks an extraction until released.
type gate struct {
	entered chan string
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan string, 16), release: make(chan struct{})}
}

func (g *gate) wait(name string) {
	g.entered <- name
	<-g.release
}

func (g *gate) open() {
	g.once.Do(func() { close(g.release) })
}

// failingTagRepo rejects every write for one software id.
type failingTagRepo struct {
	*features.MemoryTagRepo
	failFor string
}

func (r *failingTagRepo) Upsert(ctx context.Context, tags []features.Tag, overwrite bool) (int, error) {
	if len(tags) > 0 && tags[0].SoftwareID == r.failFor {
		return 0, errors.New("connection refused")
	}
	return r.MemoryTagRepo.Upsert(ctx, tags, overwrite)
}

type failingRecRepo struct {
	*consolidation.MemoryRepo
}

func (failingRecRepo) Replace(context.Context, string, []consolidation.Recommendation) error {
	return errors.New("disk full")
}

type panickingReader struct{}

func (panickingReader) ListActive(context.Context, string) ([]software.Asset, error) {
	panic("inventory exploded")
}

func (panickingReader) GetByID(context.Context, string) (software.Asset, error) {
	return software.Asset{}, software.ErrNotFound
}

type harness struct {
	svc  *Service
	jobs *MemoryRepo
	tags *features.MemoryTagRepo
	recs *consolidation.MemoryRepo
	ext  *scriptedExtractor
}

// newHarness wires a service over three overlapping project tools: Asana, Monday.com and Trello.
// Monday.com has the widest coverage.
func newHarness(t *testing.T, extra ...software.Asset) *harness {
	t.Helper()
	assets := append([]software.Asset{
		pmAsset("asana", "Asana", 48000),
		pmAsset("monday", "Monday.com", 60000),
		pmAsset("trello", "Trello", 55000),
	}, extra...)
	inventory := software.NewMemoryRepo(assets...)
	resolver := companies.NewMemoryRepo(companies.Company{ID: testCompanyID, Slug: "acme", Name: "Acme"})
	ext := &scriptedExtractor{tags: map[string][]extract.Tag{
		"Asana":      taskTags(),
		"Monday.com": taskTags("Issue Tracking"),
		"Trello":     taskTags(),
	}}
	for _, a := range extra {
		if _, ok := ext.tags[a.Name]; !ok {
			ext.tags[a.Name] = []extract.Tag{{Name: "Search", Confidence: 0.8, Source: extract.SourceDescription}}
		}
	}
	tags := features.NewMemoryTagRepo()
	h := &harness{
		jobs: NewMemoryRepo(),
		tags: tags,
		recs: consolidation.NewMemoryRepo(),
		ext:  ext,
	}
	h.svc = &Service{
		Repo:      h.jobs,
		Companies: resolver,
		Software:  inventory,
		Features: &features.Service{
			Software:   inventory,
			Companies:  resolver,
			Tags:       tags,
			Categories: features.NewMemoryCategoryStore(),
			Extractor:  ext,
		},
		Recs:   h.recs,
		Locker: lock.NewLocal(),
	}
	t.Cleanup(h.svc.Wait)
	return h
}
