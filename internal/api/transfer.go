package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tedtam/fieldops/internal/exchange"
	"github.com/tedtam/fieldops/internal/filter"
)

const maxImportSize = 20 << 20 // 20MB

// handleImport accepts an .xlsx upload as a multipart form (field
// "file") or as a raw body, and upserts its rows into the store.
func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

		src := r.Body
		if err := r.ParseMultipartForm(maxImportSize); err == nil {
			file, _, err := r.FormFile("file")
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart form without a \"file\" field"})
				return
			}
			defer file.Close()
			src = file
		}

		summary, err := exchange.Import(r.Context(), deps.Store, src)
		if err != nil {
			if errors.Is(err, exchange.ErrBadFormat) {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
				return
			}
			// Partial application: report what was applied alongside
			// the failure so the operator can reconcile.
			deps.Logger.Error("import aborted mid-batch", "error", err, "created", summary.Created, "updated", summary.Updated)
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":   err.Error(),
				"partial": summary,
			})
			return
		}

		importedRowsTotal.WithLabelValues("created").Add(float64(summary.Created))
		importedRowsTotal.WithLabelValues("updated").Add(float64(summary.Updated))
		writeJSON(w, http.StatusOK, summary)
	}
}

// handleExport streams the collection as an .xlsx download. The same
// query parameters as the list endpoint narrow the exported subset; no
// parameters means everything.
func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.List(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		records = filter.Apply(records, criteriaFromQuery(r))

		filename := fmt.Sprintf("TEDTAM_Customers_%s.xlsx", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

		if err := exchange.Export(records, w); err != nil {
			deps.Logger.Error("export failed mid-stream", "error", err)
		}
	}
}
