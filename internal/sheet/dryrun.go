package sheet

import (
	"context"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// DryRun reads through to another store but only logs writes.
type DryRun struct {
	Reader Reader
}

func (d DryRun) Fetch(ctx context.Context) ([]domain.Row, error) {
	return d.Reader.Fetch(ctx)
}

func (d DryRun) Append(ctx context.Context, txs []domain.Transaction) error {
	log := logger.FromContext(ctx)
	for _, tx := range txs {
		log.Info().
			Str("account", tx.Account).
			Str("subject", tx.Subject).
			Time("time", tx.Time).
			Str("amount", tx.Amount.String()).
			Msg("Would append")
	}
	return nil
}

func (d DryRun) UpdateCell(ctx context.Context, row int, col Column, value string) error {
	log := logger.FromContext(ctx)
	log.Info().
		Int("row", row).
		Str("column", string(col)).
		Str("value", value).
		Msg("Would update cell")
	return nil
}

var _ Store = DryRun{}
