package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hermitpopcorn/negi-ms/internal/api"
)

func newClerkCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "clerk",
		Short: "Serve the manual entry form and its API on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Clerk.Port = port
			}
			return a.runClerk(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides CLERK_PORT)")

	return cmd
}

func (a *app) runClerk(ctx context.Context) error {
	log := a.log

	var cl closers
	defer cl.Close()

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Store:     store,
		StaticDir: a.cfg.Clerk.StaticDir,
		Log:       log,
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Ingest over HTTP is only offered when there is a maildir to read.
	if a.cfg.Mail.MaildirPath != "" {
		ing, err := a.newIngester(workerCtx, false, &cl)
		if err != nil {
			return err
		}
		queue, jobStore, err := a.newQueue(workerCtx, ing)
		if err != nil {
			return err
		}
		defer stopQueue(ctx, queue)

		deps.Publisher = queue
		deps.Jobs = jobStore
		deps.Runs = ing.lister
	} else {
		log.Warn().Msg("MAILDIR_PATH not set - ingest endpoints will be disabled")
	}

	server := api.NewServer(fmt.Sprintf("127.0.0.1:%d", a.cfg.Clerk.Port), deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting clerk server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("clerk server: %w", err)
		}
	}

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited")
	return nil
}
