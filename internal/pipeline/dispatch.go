package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
	"github.com/hermitpopcorn/negi-ms/internal/runlog"
	"github.com/hermitpopcorn/negi-ms/internal/scheme"
)

// Claim is the outcome for a document some scheme parsed successfully.
type Claim struct {
	Document     domain.Document
	Scheme       string
	Transactions []domain.Transaction
}

// Result maps document identity to its claim. Documents nobody could parse
// are absent.
type Result map[string]*Claim

// TransactionCount sums transactions over all claims.
func (r Result) TransactionCount() int {
	n := 0
	for _, c := range r {
		n += len(c.Transactions)
	}
	return n
}

func (r Result) keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Documents returns the claimed documents without bodies, ordered by ID.
func (r Result) Documents() []domain.Document {
	docs := make([]domain.Document, 0, len(r))
	for _, k := range r.keys() {
		docs = append(docs, r[k].Document.WithoutBody())
	}
	return docs
}

// Transactions flattens every claim, ordered by document ID.
func (r Result) Transactions() []domain.Transaction {
	var txs []domain.Transaction
	for _, k := range r.keys() {
		txs = append(txs, r[k].Transactions...)
	}
	return txs
}

// Dispatcher runs documents through an ordered scheme list.
type Dispatcher struct {
	schemes  []scheme.Scheme
	recorder runlog.Recorder
}

// NewDispatcher creates a dispatcher. A nil recorder records nothing.
func NewDispatcher(schemes []scheme.Scheme, recorder runlog.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = runlog.Nop{}
	}
	return &Dispatcher{schemes: schemes, recorder: recorder}
}

// Dispatch is shorthand for a dispatcher without a run log.
func Dispatch(ctx context.Context, docs []domain.Document, schemes []scheme.Scheme) Result {
	return NewDispatcher(schemes, nil).Dispatch(ctx, docs)
}

// Dispatch tries every document against the schemes in order. The first
// scheme that accepts the document and parses it without error claims it.
// Failures are logged and the next scheme is tried.
func (d *Dispatcher) Dispatch(ctx context.Context, docs []domain.Document) Result {
	result := make(Result)

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		claim := d.claim(ctx, doc)
		if claim == nil {
			continue
		}
		markConfirmed(claim)
		result[doc.Key()] = claim
	}

	return result
}

func (d *Dispatcher) claim(ctx context.Context, doc domain.Document) *Claim {
	log := logger.FromContext(ctx).With().
		Str("document", doc.ID).
		Str("subject", doc.Subject).
		Logger()

	for _, s := range d.schemes {
		if !s.CanParse(doc) {
			continue
		}

		runID, err := d.recorder.Start(ctx, doc.ID, s.Name())
		if err != nil {
			log.Warn().Err(err).Str("scheme", s.Name()).Msg("Could not record parsing run")
		}
		// An empty id means there is no stored run to finish.
		recorded := runID != ""

		txs, err := s.Parse(ctx, doc)
		if err == nil && len(txs) == 0 {
			err = scheme.ErrNoTransactions
		}
		if err != nil {
			if recorded {
				d.recorder.Fail(ctx, runID, err)
			}
			log.Error().Err(err).Str("scheme", s.Name()).Msg("Could not parse mail")
			continue
		}

		if recorded {
			if err := d.recorder.Succeed(ctx, runID, len(txs)); err != nil {
				log.Warn().Err(err).Str("scheme", s.Name()).Msg("Could not record parsing run")
			}
		}
		log.Info().Str("scheme", s.Name()).Int("transactions", len(txs)).Msg("Parsed mail")

		return &Claim{Document: doc, Scheme: s.Name(), Transactions: txs}
	}

	log.Debug().Msg("No scheme claimed mail")
	return nil
}

// markConfirmed stamps transactions from Rakuten Pay receipts as confirmed
// non-duplicates. Those receipts are always independent charges even when
// amount and time coincide.
func markConfirmed(c *Claim) {
	if !strings.Contains(c.Document.Subject, scheme.RakutenPaySubject) {
		return
	}
	for i := range c.Transactions {
		c.Transactions[i].Subject = domain.ConfirmSubject(c.Transactions[i].Subject)
	}
}
