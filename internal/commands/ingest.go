package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hermitpopcorn/negi-ms/internal/config"
	"github.com/hermitpopcorn/negi-ms/internal/jobs"
	"github.com/hermitpopcorn/negi-ms/internal/jobs/inmemory"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
	"github.com/hermitpopcorn/negi-ms/internal/mail"
	"github.com/hermitpopcorn/negi-ms/internal/pipeline"
	"github.com/hermitpopcorn/negi-ms/internal/runlog"
	"github.com/hermitpopcorn/negi-ms/internal/sheet"
	"github.com/hermitpopcorn/negi-ms/internal/watch"
)

// ingester runs ingest passes over one maildir.
type ingester struct {
	source     *mail.Reader
	dispatcher *pipeline.Dispatcher
	store      sheet.Store
	cleaner    pipeline.Cleaner
	lister     runlog.Lister
}

// newIngester wires the ingest collaborators. Dry runs never clean up.
func (a *app) newIngester(ctx context.Context, dryRun bool, cl *closers) (*ingester, error) {
	if err := a.cfg.Validate(config.NeedMaildir, config.NeedRunLog); err != nil {
		return nil, err
	}

	store, err := a.openStore(ctx, dryRun)
	if err != nil {
		return nil, err
	}

	recorder, lister, err := a.openRunLog(ctx)
	if err != nil {
		return nil, err
	}
	cl.add(recorder.Close)

	ing := &ingester{
		source:     mail.NewReader(a.cfg.Mail.MaildirPath),
		dispatcher: pipeline.NewDispatcher(a.buildSchemes(), recorder),
		store:      store,
		lister:     lister,
	}

	if !dryRun {
		cleaner, err := a.newCleaner(ctx, cl)
		if err != nil {
			return nil, err
		}
		ing.cleaner = cleaner
	}

	return ing, nil
}

func (i *ingester) run(ctx context.Context) (*pipeline.IngestState, error) {
	return pipeline.Ingest(ctx, i.source, i.dispatcher, i.store, i.cleaner)
}

// handle is the job handler for queued ingest runs.
func (i *ingester) handle(ctx context.Context, job jobs.Job) error {
	ingestJob, ok := job.(*jobs.IngestJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("job_id", ingestJob.JobID).
		Str("trigger", string(ingestJob.Trigger)).
		Msg("Processing ingest job")

	state, err := i.run(ctx)
	if state != nil {
		ingestJob.Mails = len(state.Documents)
		ingestJob.Transactions = len(state.Transactions)
	}
	if err != nil {
		log.Error().Err(err).Str("job_id", ingestJob.JobID).Msg("Ingest failed")
		return err
	}

	log.Info().
		Str("job_id", ingestJob.JobID).
		Int("transactions", ingestJob.Transactions).
		Msg("Ingest completed")
	return nil
}

// newQueue starts a single-worker queue feeding handle. Two passes over the
// same maildir at once would append the same mail twice.
func (a *app) newQueue(ctx context.Context, i *ingester) (*inmemory.Queue, *inmemory.Store, error) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.Config{
		BufferSize: a.cfg.Jobs.BufferSize,
		Workers:    1,
		MaxRetries: a.cfg.Jobs.MaxRetries,
		Backoff:    a.cfg.Jobs.Backoff,
	}, store)

	if err := queue.Start(ctx, i.handle); err != nil {
		return nil, nil, err
	}
	return queue, store, nil
}

func stopQueue(ctx context.Context, queue *inmemory.Queue) {
	log := logger.FromContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
}

func newIngestCommand(a *app) *cobra.Command {
	var watchMode bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract transactions from the maildir and append them to the sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var cl closers
			defer cl.Close()

			ing, err := a.newIngester(ctx, dryRun, &cl)
			if err != nil {
				return err
			}

			if watchMode {
				return a.runWatch(ctx, ing)
			}

			state, err := ing.run(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d transactions from %d mails.\n",
				len(state.Transactions), len(state.Documents))
			return err
		},
	}

	cmd.Flags().BoolVar(&watchMode, "watch", false, "keep running and ingest whenever new mail arrives")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log sheet writes instead of making them and keep the mail")

	return cmd
}

// runWatch ingests once at start and then on every burst of new mail until
// interrupted.
func (a *app) runWatch(ctx context.Context, ing *ingester) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, _, err := a.newQueue(ctx, ing)
	if err != nil {
		return err
	}
	defer stopQueue(ctx, queue)

	w := watch.New(queue, a.cfg.Jobs.Debounce, filepath.Join(a.cfg.Mail.MaildirPath, "new"))
	return w.Run(ctx)
}
