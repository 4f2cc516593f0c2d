package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// errStop ends a pipeline early without failing it.
var errStop = errors.New("pipeline stopped")

// PipelineStep represents a single step in the ingest pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *IngestState) error
}

// IngestState holds the shared state across all pipeline steps.
type IngestState struct {
	Documents    []domain.Document
	Result       Result
	Transactions []domain.Transaction
	Cleaned      int
}

// Step 1: ReadMailStep loads the mailbox.
type ReadMailStep struct {
	Source MailSource
}

func (s *ReadMailStep) Execute(ctx context.Context, state *IngestState) error {
	docs, err := s.Source.Read(ctx)
	if err != nil {
		return fmt.Errorf("ReadMailStep: %w", err)
	}
	state.Documents = docs

	log := logger.FromContext(ctx)
	log.Info().Int("mails", len(docs)).Msg("Read mailbox")
	if len(docs) == 0 {
		return errStop
	}
	return nil
}

// Step 2: DispatchStep runs the parsing schemes.
type DispatchStep struct {
	Dispatcher *Dispatcher
}

func (s *DispatchStep) Execute(ctx context.Context, state *IngestState) error {
	state.Result = s.Dispatcher.Dispatch(ctx, state.Documents)
	state.Transactions = state.Result.Transactions()

	log := logger.FromContext(ctx)
	if len(state.Transactions) == 0 {
		log.Info().Msg("No transactions found. Exiting early")
		return errStop
	}
	log.Info().Int("transactions", len(state.Transactions)).Msg("Found transactions")
	return nil
}

// Step 3: AppendStep writes all transactions in one batch.
type AppendStep struct {
	Store Appender
}

func (s *AppendStep) Execute(ctx context.Context, state *IngestState) error {
	if err := s.Store.Append(ctx, state.Transactions); err != nil {
		return fmt.Errorf("AppendStep: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(state.Transactions)).Msg("Appended to sheet")
	return nil
}

// Step 4: CleanupStep removes the mails whose transactions were stored.
type CleanupStep struct {
	Cleaner Cleaner
}

func (s *CleanupStep) Execute(ctx context.Context, state *IngestState) error {
	docs := state.Result.Documents()
	if err := s.Cleaner.Clean(ctx, docs); err != nil {
		return fmt.Errorf("CleanupStep: %w", err)
	}
	state.Cleaned = len(docs)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially. A step may end the run early
// without error when there is nothing left to do.
func (p *Pipeline) Execute(ctx context.Context, state *IngestState) error {
	for i, step := range p.steps {
		err := step.Execute(ctx, state)
		if errors.Is(err, errStop) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewIngestPipeline builds read, dispatch, append and cleanup. Cleanup only
// runs after a successful append; a nil cleaner skips it.
func NewIngestPipeline(source MailSource, dispatcher *Dispatcher, store Appender, cleaner Cleaner) *Pipeline {
	steps := []PipelineStep{
		&ReadMailStep{Source: source},
		&DispatchStep{Dispatcher: dispatcher},
		&AppendStep{Store: store},
	}
	if cleaner != nil {
		steps = append(steps, &CleanupStep{Cleaner: cleaner})
	}
	return NewPipeline(steps...)
}

// Ingest runs one ingest pass and returns its final state.
func Ingest(ctx context.Context, source MailSource, dispatcher *Dispatcher, store Appender, cleaner Cleaner) (*IngestState, error) {
	state := &IngestState{}
	err := NewIngestPipeline(source, dispatcher, store, cleaner).Execute(ctx, state)
	return state, err
}
