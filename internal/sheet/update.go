package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// ErrPartialUpdate is returned when some row updates failed.
var ErrPartialUpdate = errors.New("partial update")

// UpdateSummary counts row-level outcomes of a batch of updates.
// Updates are not transactional: successful rows stay written.
type UpdateSummary struct {
	Total   int
	Updated int
}

// Err reports the failures, if any.
func (s UpdateSummary) Err() error {
	if s.Updated == s.Total {
		return nil
	}
	return fmt.Errorf("%w: failed to update %d out of %d rows", ErrPartialUpdate, s.Total-s.Updated, s.Total)
}

// MarkDuplicates writes each row's rewritten subject and zeroes its amount.
// A row counts as updated only if both cells were written.
func MarkDuplicates(ctx context.Context, store CellUpdater, rows []domain.Row) UpdateSummary {
	log := logger.FromContext(ctx)
	summary := UpdateSummary{Total: len(rows)}

	for _, row := range rows {
		if err := store.UpdateCell(ctx, row.Index, ColumnSubject, row.Subject); err != nil {
			log.Error().Err(err).Int("row", row.Index).Msg("Could not update subject")
			continue
		}
		if err := store.UpdateCell(ctx, row.Index, ColumnAmount, "0"); err != nil {
			log.Error().Err(err).Int("row", row.Index).Msg("Could not update amount")
			continue
		}
		summary.Updated++
	}

	log.Debug().Int("updated", summary.Updated).Int("total", summary.Total).Msg("Marked duplicates")
	return summary
}

// SetCategories writes each row's category.
func SetCategories(ctx context.Context, store CellUpdater, rows []domain.Row) UpdateSummary {
	log := logger.FromContext(ctx)
	summary := UpdateSummary{Total: len(rows)}

	for _, row := range rows {
		if err := store.UpdateCell(ctx, row.Index, ColumnCategory, row.Category); err != nil {
			log.Error().Err(err).Int("row", row.Index).Msg("Could not update category")
			continue
		}
		summary.Updated++
	}

	log.Debug().Int("updated", summary.Updated).Int("total", summary.Total).Msg("Set categories")
	return summary
}
