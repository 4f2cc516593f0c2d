package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hermitpopcorn/negi-ms/internal/api/middleware"
	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/jobs"
	"github.com/hermitpopcorn/negi-ms/internal/runlog"
)

// Appender persists transactions.
type Appender interface {
	Append(ctx context.Context, txs []domain.Transaction) error
}

// SubmitHandler handles manual transaction entry.
type SubmitHandler struct {
	store Appender
	log   zerolog.Logger
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(store Appender, log zerolog.Logger) *SubmitHandler {
	return &SubmitHandler{
		store: store,
		log:   log,
	}
}

// SubmitRequest is the body of POST /api/submit.
type SubmitRequest struct {
	Account  string           `json:"account"`
	Datetime time.Time        `json:"datetime"`
	Amount   *decimal.Decimal `json:"amount"`
	Subject  *string          `json:"subject,omitempty"`
}

// Transaction validates the request. An empty subject means no subject.
func (req SubmitRequest) Transaction() (domain.Transaction, string) {
	if strings.TrimSpace(req.Account) == "" {
		return domain.Transaction{}, "Account is required"
	}
	if req.Datetime.IsZero() {
		return domain.Transaction{}, "Datetime is required"
	}
	if req.Amount == nil {
		return domain.Transaction{}, "Amount is required"
	}

	tx := domain.Transaction{
		Account: req.Account,
		Time:    req.Datetime.UTC(),
		Amount:  *req.Amount,
	}
	if req.Subject != nil {
		tx.Subject = *req.Subject
	}
	return tx, ""
}

// Submit handles POST /api/submit
func (h *SubmitHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, problem := req.Transaction()
	if problem != "" {
		middleware.WriteError(w, http.StatusBadRequest, problem)
		return
	}

	if err := h.store.Append(r.Context(), []domain.Transaction{tx}); err != nil {
		h.log.Error().Err(err).Msg("Failed to append to sheet")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to append to sheet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// IngestHandler enqueues ingest runs.
type IngestHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(publisher jobs.Publisher, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		publisher: publisher,
		log:       log,
	}
}

// Enqueue handles POST /api/ingest
func (h *IngestHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Ingest is not configured")
		return
	}

	job := &jobs.IngestJob{Trigger: jobs.TriggerAPI}
	if err := h.publisher.PublishIngest(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue ingest job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingest job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Ingest job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Trigger: jobs.Trigger(query.Get("trigger")),
		Status:  jobs.JobStatus(query.Get("status")),
		Limit:   intParam(query.Get("limit")),
		Offset:  intParam(query.Get("offset")),
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// RunsHandler exposes recorded parsing runs.
type RunsHandler struct {
	lister runlog.Lister
	log    zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(lister runlog.Lister, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		lister: lister,
		log:    log,
	}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.lister.ListRuns(r.Context(), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func intParam(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
