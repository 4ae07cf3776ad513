package api

import (
	"net/http"
	"time"

	"github.com/tedtam/fieldops/internal/report"
	"github.com/tedtam/fieldops/internal/store"
)

func handleListReports(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Reports == nil {
			writeJSON(w, http.StatusNotImplemented, errorBody{Error: "report persistence not available"})
			return
		}
		q := r.URL.Query()
		rows, err := deps.Reports.ListReports(r.Context(), q.Get("from"), q.Get("to"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if rows == nil {
			rows = []store.PerformanceReport{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// handleSaveReports snapshots the current collection into persisted
// per-team report rows for today (or ?date=YYYY-MM-DD).
func handleSaveReports(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Reports == nil {
			writeJSON(w, http.StatusNotImplemented, errorBody{Error: "report persistence not available"})
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().Format("2006-01-02")
		} else if _, err := time.Parse("2006-01-02", date); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "date must be YYYY-MM-DD"})
			return
		}

		records, err := deps.Store.List(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}

		rows := report.Snapshot(report.Summarize(records), date)
		saved := make([]store.PerformanceReport, 0, len(rows))
		for _, row := range rows {
			got, err := deps.Reports.SaveReport(r.Context(), row)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			saved = append(saved, got)
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func handleCommission(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.List(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		summaries := report.Commissions(records)
		if summaries == nil {
			summaries = []report.CommissionSummary{}
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}
