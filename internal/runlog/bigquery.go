package runlog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
	"google.golang.org/api/googleapi"
)

const (
	// DefaultDataset is the dataset holding the parsing_runs table.
	DefaultDataset   = "negi"
	parsingRunsTable = "parsing_runs"
)

// runRow is the parsing_runs table schema.
type runRow struct {
	ParsingRunID string                 `bigquery:"parsing_run_id"`
	DocumentID   string                 `bigquery:"document_id"`
	StartedTS    time.Time              `bigquery:"started_ts"`
	FinishedTS   bigquery.NullTimestamp `bigquery:"finished_ts"`
	ParserType   string                 `bigquery:"parser_type"`
	Status       string                 `bigquery:"status"`
	ErrorMessage string                 `bigquery:"error_message"`
	Transactions int64                  `bigquery:"transactions"`
}

// BigQueryRecorder writes runs to <dataset>.parsing_runs.
type BigQueryRecorder struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryRecorder creates a recorder with its own client.
func NewBigQueryRecorder(ctx context.Context, projectID, dataset string) (*BigQueryRecorder, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRecorder: bigquery client: %w", err)
	}
	return NewBigQueryRecorderWithClient(client, dataset), nil
}

// NewBigQueryRecorderWithClient creates a recorder on an existing client.
func NewBigQueryRecorderWithClient(client *bigquery.Client, dataset string) *BigQueryRecorder {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &BigQueryRecorder{client: client, dataset: dataset}
}

// EnsureTable creates the parsing_runs table when it does not exist yet.
func (r *BigQueryRecorder) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(runRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}

	err = r.client.Dataset(r.dataset).Table(parsingRunsTable).Create(ctx, &bigquery.TableMetadata{Schema: schema})
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureTable: create table: %w", err)
	}
	return nil
}

// Start inserts a row with status=RUNNING and returns the generated
// parsing_run_id.
func (r *BigQueryRecorder) Start(ctx context.Context, documentID, scheme string) (string, error) {
	parsingRunID := uuid.NewString()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			parsing_run_id,
			document_id,
			started_ts,
			parser_type,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@status
		)
	`, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "parser_type", Value: scheme},
		{Name: "status", Value: string(StatusRunning)},
	}

	if err := runQuery(ctx, q); err != nil {
		return "", fmt.Errorf("BigQueryRecorder.Start: %w", err)
	}
	return parsingRunID, nil
}

// Fail sets status=FAILED, finished_ts and error_message.
func (r *BigQueryRecorder) Fail(ctx context.Context, runID string, runErr error) {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(StatusFailed)},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errorMessage(runErr)},
		{Name: "parsing_run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("parsing_run_id", runID).
			Msg("BigQueryRecorder.Fail: update failed")
	}
}

// Succeed sets status=SUCCESS, finished_ts and the transaction count.
func (r *BigQueryRecorder) Succeed(ctx context.Context, runID string, transactions int) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    transactions = @transactions
		WHERE parsing_run_id = @parsing_run_id
	`, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(StatusSuccess)},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transactions", Value: int64(transactions)},
		{Name: "parsing_run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("BigQueryRecorder.Succeed: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *BigQueryRecorder) Close() error {
	return r.client.Close()
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var _ Recorder = (*BigQueryRecorder)(nil)
