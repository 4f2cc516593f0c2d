package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/hermitpopcorn/negi-ms/internal/categorize"
	"github.com/hermitpopcorn/negi-ms/internal/config"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
	"github.com/hermitpopcorn/negi-ms/internal/reconcile"
)

func newDuplifinderCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "duplifinder",
		Short: "Mark duplicate rows in the sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx, dryRun)
			if err != nil {
				return err
			}

			report, err := reconcile.NewService(store).Duplifinder(ctx)
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log sheet writes instead of making them")

	return cmd
}

func newMarksmanCommand(a *app) *cobra.Command {
	var dryRun bool
	var schedule string

	cmd := &cobra.Command{
		Use:   "marksman",
		Short: "Mark duplicates and fill in categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := a.cfg.Validate(config.NeedCategoryMap); err != nil {
				return err
			}

			store, err := a.openStore(ctx, dryRun)
			if err != nil {
				return err
			}
			svc := reconcile.NewService(store)

			run := func(ctx context.Context) error {
				// Reloaded every run so edits apply to the next scheduled pass.
				categories, err := categorize.LoadFile(ctx, a.cfg.CategoryMapFile)
				if err != nil {
					return err
				}
				report, err := svc.Marksman(ctx, categories)
				printReport(cmd.OutOrStdout(), report)
				return err
			}

			if schedule == "" {
				return run(ctx)
			}
			return runScheduled(ctx, schedule, run)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log sheet writes instead of making them")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec to run on repeatedly, e.g. \"0 * * * *\"")

	return cmd
}

// runScheduled runs fn on the cron spec until interrupted. Overlapping runs
// are skipped.
func runScheduled(ctx context.Context, spec string, fn func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.FromContext(ctx)

	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled run failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	log.Info().Str("schedule", spec).Msg("Scheduler started")

	<-ctx.Done()
	log.Info().Msg("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}

func printReport(w io.Writer, report reconcile.Report) {
	fmt.Fprintf(w, "Rows checked: %d\n", report.Rows)
	if report.Duplicates.Total > 0 {
		fmt.Fprintf(w, "Duplicates marked: %d/%d\n", report.Duplicates.Updated, report.Duplicates.Total)
	}
	if report.Categories.Total > 0 {
		fmt.Fprintf(w, "Categories set: %d/%d\n", report.Categories.Updated, report.Categories.Total)
	}
}
