// Package runlog keeps an audit trail of parsing runs: one record per
// scheme attempt on a document.
package runlog

import (
	"context"
	"time"
)

// Status of a parsing run.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// maxErrorLen bounds stored error messages.
const maxErrorLen = 2000

// Run is one recorded parsing run.
type Run struct {
	ID           string     `json:"parsing_run_id"`
	DocumentID   string     `json:"document_id"`
	Scheme       string     `json:"scheme"`
	Status       Status     `json:"status"`
	Error        string     `json:"error_message,omitempty"`
	Transactions int        `json:"transactions"`
	StartedAt    time.Time  `json:"started_ts"`
	FinishedAt   *time.Time `json:"finished_ts,omitempty"`
}

// Recorder stores parsing runs. Fail only logs its own errors since it is
// called on paths that are already failing.
type Recorder interface {
	Start(ctx context.Context, documentID, scheme string) (string, error)
	Fail(ctx context.Context, runID string, runErr error)
	Succeed(ctx context.Context, runID string, transactions int) error
	Close() error
}

// Lister is implemented by recorders that can read runs back.
type Lister interface {
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}

// Nop discards runs.
type Nop struct{}

func (Nop) Start(context.Context, string, string) (string, error) { return "", nil }
func (Nop) Fail(context.Context, string, error)                    {}
func (Nop) Succeed(context.Context, string, int) error             { return nil }
func (Nop) Close() error                                           { return nil }

var _ Recorder = Nop{}
