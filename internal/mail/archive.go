package mail

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectName returns the archive object for a mail file:
// <prefix>/YYYY/MM/DD/<file name>.
func ObjectName(prefix string, at time.Time, filePath string) string {
	return path.Join(strings.Trim(prefix, "/"), at.UTC().Format("2006/01/02"), filepath.Base(filePath))
}

// GCSArchiver uploads raw mail files to a Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewGCSArchiver creates an archiver writing under gs://bucket/mail/.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket, prefix: "mail", now: time.Now}, nil
}

// Archive uploads the file at filePath.
func (a *GCSArchiver) Archive(ctx context.Context, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := a.client.Bucket(a.bucket).Object(ObjectName(a.prefix, a.now(), filePath))
	w := obj.NewWriter(ctx)
	w.ContentType = "message/rfc822"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}
