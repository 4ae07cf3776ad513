// Package api exposes the customer table over HTTP: REST CRUD, an SSE
// change feed, spreadsheet import/export, and performance reports.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tedtam/fieldops/internal/store"
)

// Version is reported by /api/version; set from the main package.
var Version = "dev"

// Deps holds everything the handlers need. Store implementations also
// satisfying store.ReportStore get the report routes; others 501 there.
type Deps struct {
	Store   store.Store
	Reports store.ReportStore // usually the same value as Store
	Token   string
	Metrics bool
	Logger  *slog.Logger
}

// NewHandler builds the chi router with all routes mounted.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)
	r.Use(countRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", handleListCustomers(deps))
			r.Post("/", handleCreateCustomer(deps))
			r.Get("/events", handleEvents(deps))
			r.Get("/export", handleExport(deps))
			r.Post("/import", handleImport(deps))
			r.Get("/nearby", handleNearby(deps))
			r.Get("/{id}", handleGetCustomer(deps))
			r.Patch("/{id}", handleUpdateCustomer(deps))
			r.Delete("/{id}", handleDeleteCustomer(deps))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/performance", handleListReports(deps))
			r.Post("/performance", handleSaveReports(deps))
			r.Get("/commission", handleCommission(deps))
		})
	})

	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeStoreError maps the store error taxonomy to HTTP statuses. The
// presentation side turns these into notifications; nothing here may
// take the process down.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, store.ErrConstraint):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
