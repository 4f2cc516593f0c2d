package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hermitpopcorn/negi-ms/internal/config"
	"github.com/hermitpopcorn/negi-ms/internal/mail"
	"github.com/hermitpopcorn/negi-ms/internal/network"
	"github.com/hermitpopcorn/negi-ms/internal/runlog"
	"github.com/hermitpopcorn/negi-ms/internal/scheme"
	"github.com/hermitpopcorn/negi-ms/internal/sheet"
)

// closers releases collaborators in reverse order of creation.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c *closers) Close() error {
	var errs []error
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStore returns the sheet store. In dry-run mode writes only log; with
// no spreadsheet configured an empty in-memory store stands in.
func (a *app) openStore(ctx context.Context, dryRun bool) (sheet.Store, error) {
	if a.cfg.Sheet.SpreadsheetID == "" {
		if dryRun {
			return sheet.NewMemory(), nil
		}
		if err := a.cfg.Validate(config.NeedSheet); err != nil {
			return nil, err
		}
	}

	store, err := sheet.NewSheetsStore(ctx, a.cfg.Sheet.SpreadsheetID, a.cfg.Sheet.CredentialsFile)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return sheet.DryRun{Reader: store}, nil
	}
	return store, nil
}

// buildSchemes returns the schemes in dispatch order: the AI-assisted one
// first when it is configured, then the pattern schemes.
func (a *app) buildSchemes() []scheme.Scheme {
	var schemes []scheme.Scheme

	if a.cfg.GeminiEnabled() {
		client := network.NewHTTPClient(network.HTTPOptions{
			Timeout:       a.cfg.HTTP.Timeout,
			RetryMax:      a.cfg.HTTP.RetryMax,
			RatePerSecond: a.cfg.HTTP.RatePerSecond,
			Logger:        a.log,
		})
		schemes = append(schemes, scheme.NewGemini(
			client,
			a.cfg.Gemini.APIKey,
			a.cfg.Gemini.Model,
			a.cfg.Gemini.Accounts,
			a.cfg.Gemini.Skips,
		))
	} else {
		a.log.Info().Msg("GEMINI_API_KEY not set, AI-assisted parsing disabled")
	}

	return append(schemes,
		scheme.NewRakutenPay(a.cfg.Schemes.RakutenAccount),
		scheme.NewRakutenCard(a.cfg.Schemes.RakutenAccount),
		scheme.NewOCBC(a.cfg.Schemes.OCBCAccount),
	)
}

// openRunLog returns the configured recorder and, when the backend can read
// runs back, a lister for them.
func (a *app) openRunLog(ctx context.Context) (runlog.Recorder, runlog.Lister, error) {
	rc := a.cfg.RunLog

	switch rc.Backend {
	case config.RunLogNone, "":
		return runlog.Nop{}, nil, nil
	case config.RunLogSQLite:
		rec, err := runlog.OpenSQLite(ctx, rc.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return rec, rec, nil
	case config.RunLogBigQuery:
		rec, err := runlog.NewBigQueryRecorder(ctx, rc.BigQueryProject, rc.BigQueryDataset)
		if err != nil {
			return nil, nil, err
		}
		if err := rec.EnsureTable(ctx); err != nil {
			rec.Close()
			return nil, nil, err
		}
		return rec, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown run log backend %q", rc.Backend)
	}
}

// newCleaner builds the mail cleaner, archiving to GCS first when a bucket
// is configured.
func (a *app) newCleaner(ctx context.Context, cl *closers) (*mail.Cleaner, error) {
	var archiver mail.Archiver

	if bucket := a.cfg.Archive.Bucket; bucket != "" {
		gcs, err := mail.NewGCSArchiver(ctx, bucket)
		if err != nil {
			return nil, err
		}
		cl.add(gcs.Close)
		archiver = gcs
	}

	return mail.NewCleaner(a.cfg.Mail.ProcessedDir, archiver), nil
}
