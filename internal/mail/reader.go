// Package mail reads documents from a maildir and disposes of them once
// their transactions are stored.
package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// Maildir subdirectories scanned for mail, in order.
var Subdirs = []string{"new", "cur"}

// Reader loads every message in a maildir.
type Reader struct {
	root string
}

// NewReader creates a reader for the maildir at root.
func NewReader(root string) *Reader {
	return &Reader{root: root}
}

// Dirs returns the directories the reader scans.
func (r *Reader) Dirs() []string {
	dirs := make([]string, 0, len(Subdirs))
	for _, sub := range Subdirs {
		dirs = append(dirs, filepath.Join(r.root, sub))
	}
	return dirs
}

// Read returns one document per regular file in new/ and cur/. A missing or
// unreadable mailbox is an error; messages that fail to parse are skipped.
func (r *Reader) Read(ctx context.Context) ([]domain.Document, error) {
	log := logger.FromContext(ctx)

	var docs []domain.Document
	for _, dir := range r.Dirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read maildir %s: %w", dir, err)
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !entry.Type().IsRegular() {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read mail %s: %w", path, err)
			}

			doc, err := ParseMessage(path, raw)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Skipping unparseable mail")
				continue
			}
			docs = append(docs, doc)
		}
	}

	log.Info().Int("mails", len(docs)).Str("maildir", r.root).Msg("Mails found")
	return docs, nil
}
