package pipeline_test

import (
	"context"
	"sync"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// MockScheme is a scheme driven by function fields.
type MockScheme struct {
	NameValue    string
	CanParseFunc func(doc domain.Document) bool
	ParseFunc    func(ctx context.Context, doc domain.Document) ([]domain.Transaction, error)
	mu           sync.Mutex
	parsedDocIDs []string
}

func (m *MockScheme) Name() string { return m.NameValue }

func (m *MockScheme) CanParse(doc domain.Document) bool {
	if m.CanParseFunc != nil {
		return m.CanParseFunc(doc)
	}
	return true
}

func (m *MockScheme) Parse(ctx context.Context, doc domain.Document) ([]domain.Transaction, error) {
	m.mu.Lock()
	m.parsedDocIDs = append(m.parsedDocIDs, doc.ID)
	m.mu.Unlock()
	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, doc)
	}
	return nil, nil
}

func (m *MockScheme) Parsed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.parsedDocIDs...)
}

// MockSource returns a fixed mailbox.
type MockSource struct {
	Docs []domain.Document
	Err  error
}

func (m *MockSource) Read(ctx context.Context) ([]domain.Document, error) {
	return m.Docs, m.Err
}

// MockAppender records appended batches.
type MockAppender struct {
	Err     error
	Batches [][]domain.Transaction
}

func (m *MockAppender) Append(ctx context.Context, txs []domain.Transaction) error {
	if m.Err != nil {
		return m.Err
	}
	m.Batches = append(m.Batches, txs)
	return nil
}

// MockCleaner records cleaned documents.
type MockCleaner struct {
	Err     error
	Cleaned []domain.Document
}

func (m *MockCleaner) Clean(ctx context.Context, docs []domain.Document) error {
	if m.Err != nil {
		return m.Err
	}
	m.Cleaned = append(m.Cleaned, docs...)
	return nil
}

// MockRecorder tracks run outcomes.
type MockRecorder struct {
	StartErr  error
	Started   []string
	Failed    []string
	Succeeded map[string]int
}

func (m *MockRecorder) Start(ctx context.Context, documentID, scheme string) (string, error) {
	id := documentID + "/" + scheme
	m.Started = append(m.Started, id)
	if m.StartErr != nil {
		return "", m.StartErr
	}
	return id, nil
}

func (m *MockRecorder) Fail(ctx context.Context, runID string, runErr error) {
	m.Failed = append(m.Failed, runID)
}

func (m *MockRecorder) Succeed(ctx context.Context, runID string, transactions int) error {
	if m.Succeeded == nil {
		m.Succeeded = make(map[string]int)
	}
	m.Succeeded[runID] = transactions
	return nil
}

func (m *MockRecorder) Close() error { return nil }
