// Package api is the clerk HTTP surface: manual entry, ingest triggers,
// job status and the static front end.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hermitpopcorn/negi-ms/internal/api/handlers"
	"github.com/hermitpopcorn/negi-ms/internal/api/middleware"
	"github.com/hermitpopcorn/negi-ms/internal/jobs"
	"github.com/hermitpopcorn/negi-ms/internal/runlog"
)

// Deps are the collaborators the routes need. Publisher, Jobs and Runs are
// optional; their routes answer 503 or 404 when absent.
type Deps struct {
	Store     handlers.Appender
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Runs      runlog.Lister
	StaticDir string
	Log       zerolog.Logger
}

// NewRouter builds the clerk handler with middleware applied.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	mux := http.NewServeMux()

	submitHandler := handlers.NewSubmitHandler(d.Store, log)
	ingestHandler := handlers.NewIngestHandler(d.Publisher, log)

	mux.HandleFunc("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			submitHandler.Submit(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/ingest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ingestHandler.Enqueue(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	if d.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(d.Jobs, log)

		mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobsHandler.ListJobs(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})

		mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
				if jobID == "" {
					middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
					return
				}
				jobsHandler.GetJob(w, r, jobID)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	if d.Runs != nil {
		runsHandler := handlers.NewRunsHandler(d.Runs, log)

		mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				runsHandler.ListRuns(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if d.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(d.StaticDir)))
	}

	return middleware.Chain(mux, log)
}

// NewServer wraps the router in an http.Server bound to addr.
func NewServer(addr string, d Deps) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(d),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
