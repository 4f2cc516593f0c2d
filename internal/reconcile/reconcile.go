// Package reconcile runs the dedup and categorisation passes over the
// stored rows.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/hermitpopcorn/negi-ms/internal/categorize"
	"github.com/hermitpopcorn/negi-ms/internal/dedup"
	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
	"github.com/hermitpopcorn/negi-ms/internal/sheet"
)

// Report summarizes one reconcile run.
type Report struct {
	Rows       int
	Duplicates sheet.UpdateSummary
	Categories sheet.UpdateSummary
}

// Service reconciles the rows of one store.
type Service struct {
	store sheet.Store
}

// NewService creates a service over store.
func NewService(store sheet.Store) *Service {
	return &Service{store: store}
}

func (s *Service) fetch(ctx context.Context) ([]domain.Row, error) {
	rows, err := s.store.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}
	if err := dedup.ValidateRows(rows); err != nil {
		return nil, fmt.Errorf("validate rows: %w", err)
	}
	return rows, nil
}

// MarkDuplicates flags duplicates among rows and writes them back.
func (s *Service) MarkDuplicates(ctx context.Context, rows []domain.Row, opts dedup.Options) sheet.UpdateSummary {
	log := logger.FromContext(ctx)

	found := dedup.FindDuplicates(rows, opts)
	log.Info().Int("duplicates", len(found)).Msg("Found possible duplicates")
	if len(found) == 0 {
		return sheet.UpdateSummary{}
	}

	summary := sheet.MarkDuplicates(ctx, s.store, found)
	if err := summary.Err(); err != nil {
		log.Error().Err(err).Msg("Marking error")
	} else {
		log.Info().Msg("Marked all of them as possible duplicates")
	}
	return summary
}

// SetCategories categorizes rows with m and writes the matches back.
func (s *Service) SetCategories(ctx context.Context, rows []domain.Row, m *categorize.Map) sheet.UpdateSummary {
	log := logger.FromContext(ctx)

	matched := categorize.Match(rows, m)
	log.Info().Int("matches", len(matched)).Msg("Found subject-to-category matches")
	if len(matched) == 0 {
		return sheet.UpdateSummary{}
	}

	summary := sheet.SetCategories(ctx, s.store, matched)
	if err := summary.Err(); err != nil {
		log.Error().Err(err).Msg("Marking error")
	} else {
		log.Info().Msg("Marked the categories for all of them")
	}
	return summary
}

// Duplifinder runs the strict batch dedup pass.
func (s *Service) Duplifinder(ctx context.Context) (Report, error) {
	rows, err := s.fetch(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Rows: len(rows)}
	report.Duplicates = s.MarkDuplicates(ctx, rows, dedup.BatchOptions())
	return report, report.Duplicates.Err()
}

// Marksman runs the annotating dedup pass and then categorisation, both
// over the same fetched rows. A failing first pass does not stop the second.
func (s *Service) Marksman(ctx context.Context, categories *categorize.Map) (Report, error) {
	rows, err := s.fetch(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Rows: len(rows)}
	report.Duplicates = s.MarkDuplicates(ctx, rows, dedup.AnnotateOptions())
	report.Categories = s.SetCategories(ctx, rows, categories)

	return report, errors.Join(report.Duplicates.Err(), report.Categories.Err())
}
