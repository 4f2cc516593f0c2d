// Package watch turns new mail deliveries into ingest jobs.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hermitpopcorn/negi-ms/internal/jobs"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// DefaultDebounce groups a burst of deliveries into one ingest.
const DefaultDebounce = 2 * time.Second

// Watcher publishes an ingest job once at start and then once per burst of
// files created in the watched directories.
type Watcher struct {
	publisher jobs.Publisher
	dirs      []string
	debounce  time.Duration
}

// New creates a watcher over dirs.
func New(publisher jobs.Publisher, debounce time.Duration, dirs ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{publisher: publisher, dirs: dirs, debounce: debounce}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		log.Info().Str("dir", dir).Msg("Watching for mail")
	}

	w.publish(ctx, jobs.TriggerStartup)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Mail arrived")
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")

		case <-timer.C:
			w.publish(ctx, jobs.TriggerWatch)
		}
	}
}

func (w *Watcher) publish(ctx context.Context, trigger jobs.Trigger) {
	log := logger.FromContext(ctx)

	job := &jobs.IngestJob{Trigger: trigger}
	if err := w.publisher.PublishIngest(ctx, job); err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("trigger", string(trigger)).Msg("Could not enqueue ingest")
		}
		return
	}
	log.Info().Str("job_id", job.JobID).Str("trigger", string(trigger)).Msg("Enqueued ingest")
}
