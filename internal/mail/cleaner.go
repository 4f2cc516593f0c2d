package mail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// Archiver keeps a copy of a mail before it leaves the maildir.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}

// Cleaner removes processed mail. With a processed directory configured the
// files are moved into its cur/ subdirectory instead of deleted.
type Cleaner struct {
	processedDir string
	archiver     Archiver
}

// NewCleaner creates a cleaner. Both arguments are optional.
func NewCleaner(processedDir string, archiver Archiver) *Cleaner {
	return &Cleaner{processedDir: processedDir, archiver: archiver}
}

// Clean disposes of each document's file. Files that no longer exist are
// skipped.
func (c *Cleaner) Clean(ctx context.Context, docs []domain.Document) error {
	log := logger.FromContext(ctx)

	for _, doc := range docs {
		if _, err := os.Stat(doc.ID); errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", doc.ID).Msg("Mail already gone")
			continue
		}

		if c.archiver != nil {
			if err := c.archiver.Archive(ctx, doc.ID); err != nil {
				return fmt.Errorf("archive %s: %w", doc.ID, err)
			}
		}

		if err := c.dispose(doc.ID); err != nil {
			return err
		}
		log.Debug().Str("path", doc.ID).Msg("Cleaned mail")
	}
	return nil
}

func (c *Cleaner) dispose(path string) error {
	if c.processedDir == "" {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		return nil
	}

	dest := filepath.Join(c.processedDir, "cur")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	to := filepath.Join(dest, filepath.Base(path))
	if err := os.Rename(path, to); err != nil {
		return fmt.Errorf("move %s to %s: %w", path, to, err)
	}
	return nil
}
