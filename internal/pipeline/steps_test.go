package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/pipeline"
	"github.com/hermitpopcorn/negi-ms/internal/scheme"
)

func TestIngest_HappyPath(t *testing.T) {
	docs := []domain.Document{
		{ID: "m1", Subject: "card", Body: "one"},
		{ID: "m2", Subject: "unknown", Body: "two"},
	}
	s := &MockScheme{
		NameValue:    "card",
		CanParseFunc: func(d domain.Document) bool { return d.Subject == "card" },
		ParseFunc:    returning(tx("Lawson", -500)),
	}
	store := &MockAppender{}
	cleaner := &MockCleaner{}

	state, err := pipeline.Ingest(context.Background(), &MockSource{Docs: docs},
		pipeline.NewDispatcher([]scheme.Scheme{s}, nil), store, cleaner)

	require.NoError(t, err)
	require.Len(t, store.Batches, 1)
	assert.Len(t, store.Batches[0], 1)
	require.Len(t, cleaner.Cleaned, 1)
	assert.Equal(t, "m1", cleaner.Cleaned[0].ID)
	assert.Equal(t, 1, state.Cleaned)
	assert.Len(t, state.Documents, 2)
}

func TestIngest_NoTransactionsHaltsEarly(t *testing.T) {
	s := &MockScheme{NameValue: "a", ParseFunc: failing(errors.New("nope"))}
	store := &MockAppender{}
	cleaner := &MockCleaner{}

	_, err := pipeline.Ingest(context.Background(), &MockSource{Docs: []domain.Document{{ID: "m1"}}},
		pipeline.NewDispatcher([]scheme.Scheme{s}, nil), store, cleaner)

	require.NoError(t, err)
	assert.Empty(t, store.Batches)
	assert.Empty(t, cleaner.Cleaned)
}

func TestIngest_EmptyMailbox(t *testing.T) {
	s := &MockScheme{NameValue: "a"}

	_, err := pipeline.Ingest(context.Background(), &MockSource{},
		pipeline.NewDispatcher([]scheme.Scheme{s}, nil), &MockAppender{}, &MockCleaner{})

	require.NoError(t, err)
	assert.Empty(t, s.Parsed())
}

func TestIngest_ReadFailureIsFatal(t *testing.T) {
	_, err := pipeline.Ingest(context.Background(), &MockSource{Err: errors.New("permission denied")},
		pipeline.NewDispatcher(nil, nil), &MockAppender{}, &MockCleaner{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 1 failed")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestIngest_AppendFailureSkipsCleanup(t *testing.T) {
	s := &MockScheme{NameValue: "a", ParseFunc: returning(tx("x", -1))}
	appendErr := errors.New("quota exceeded")
	cleaner := &MockCleaner{}

	_, err := pipeline.Ingest(context.Background(), &MockSource{Docs: []domain.Document{{ID: "m1"}}},
		pipeline.NewDispatcher([]scheme.Scheme{s}, nil), &MockAppender{Err: appendErr}, cleaner)

	require.Error(t, err)
	assert.ErrorIs(t, err, appendErr)
	assert.Empty(t, cleaner.Cleaned)
}

func TestIngest_NilCleanerSkipsCleanup(t *testing.T) {
	s := &MockScheme{NameValue: "a", ParseFunc: returning(tx("x", -1))}
	store := &MockAppender{}

	state, err := pipeline.Ingest(context.Background(), &MockSource{Docs: []domain.Document{{ID: "m1"}}},
		pipeline.NewDispatcher([]scheme.Scheme{s}, nil), store, nil)

	require.NoError(t, err)
	assert.Len(t, store.Batches, 1)
	assert.Equal(t, 0, state.Cleaned)
}
