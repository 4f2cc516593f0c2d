package pipeline

import (
	"context"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// MailSource supplies the documents of one ingest run.
type MailSource interface {
	Read(ctx context.Context) ([]domain.Document, error)
}

// Appender persists extracted transactions in one batch.
type Appender interface {
	Append(ctx context.Context, txs []domain.Transaction) error
}

// Cleaner removes or archives documents once their transactions are stored.
type Cleaner interface {
	Clean(ctx context.Context, docs []domain.Document) error
}
