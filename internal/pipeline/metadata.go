package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/logger"
	"github.com/dgallion1/recgest/internal/store"
)

// MetadataStore is the persistence MetadataService needs.
type MetadataStore interface {
	GetGuideline(ctx context.Context, id string) (store.Guideline, error)
	UpdateMetadata(ctx context.Context, id, name, year, specialty string) error
}

// MetadataService fills in a guideline's name, publication year and
// specialty from its converted markdown.
type MetadataService struct {
	llm   extract.Completer
	store MetadataStore
	log   *logger.Logger
	now   func() time.Time
}

func NewMetadataService(llm extract.Completer, st MetadataStore, log *logger.Logger) *MetadataService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MetadataService{llm: llm, store: st, log: log.With("component", "metadata"), now: time.Now}
}

// Extract runs title/year and specialty extraction over md and persists
// the merged result. LLM failures only blank the affected field; a blank
// extracted field keeps whatever the guideline already had.
func (m *MetadataService) Extract(ctx context.Context, id, md string) (store.Guideline, error) {
	g, err := m.store.GetGuideline(ctx, id)
	if err != nil {
		return store.Guideline{}, err
	}
	snippet := extract.MetaSnippet(md, extract.DefaultMetaSnippetChars)
	if snippet == "" {
		return g, nil
	}
	log := m.log.With("guideline_id", id)
	now := m.now()

	ty, err := extract.ExtractTitleYear(ctx, m.llm, g.Filename, snippet)
	if err != nil {
		log.Warn("title/year extraction failed", "error", err)
	}
	name := ty.GuidelineName
	year := extract.ParseYear4(ty.PubYear, now)
	if year == "" {
		year = extract.BestYearGuess(snippet, now)
	}

	subject := name
	if subject == "" {
		subject = g.Filename
	}
	specialty, err := extract.ExtractSpecialty(ctx, m.llm, subject, snippet)
	if err != nil {
		log.Warn("specialty extraction failed", "error", err)
	}

	g.Name = firstNonBlank(name, g.Name)
	g.PubYear = firstNonBlank(year, g.PubYear)
	g.Specialty = firstNonBlank(specialty, g.Specialty)
	if err := m.store.UpdateMetadata(ctx, id, g.Name, g.PubYear, g.Specialty); err != nil {
		return store.Guideline{}, fmt.Errorf("update metadata: %w", err)
	}
	log.Info("metadata extracted", "name", g.Name, "pub_year", g.PubYear, "specialty", g.Specialty)
	return g, nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
