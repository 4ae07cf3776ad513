package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tedtam/fieldops/internal/filter"
	"github.com/tedtam/fieldops/internal/geo"
	"github.com/tedtam/fieldops/internal/store"
)

const maxBodySize = 1 << 20 // 1MB

// criteriaFromQuery maps repeatable query parameters onto filter
// criteria: /api/customers?search=smith&status=จบ&team=A&team=B
func criteriaFromQuery(r *http.Request) filter.Criteria {
	q := r.URL.Query()
	return filter.Criteria{
		SearchTerm: q.Get("search"),
		WorkGroup:  q["workGroup"],
		Branch:     q["branch"],
		Status:     q["status"],
		CycleDay:   q["cycleDay"],
		Resus:      q["resus"],
		Team:       q["team"],
	}
}

func handleListCustomers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.List(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		customersTotal.Set(float64(len(records)))

		records = filter.Apply(records, criteriaFromQuery(r))
		if field := r.URL.Query().Get("sort"); field != "" {
			asc := r.URL.Query().Get("order") != "desc"
			records = filter.Sort(records, field, asc)
		}
		if records == nil {
			records = []store.Customer{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetCustomer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleCreateCustomer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		var c store.Customer
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
			return
		}

		created, err := deps.Store.Create(r.Context(), c)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		customersTotal.Inc()
		writeJSON(w, http.StatusCreated, created)
	}
}

// handleUpdateCustomer merges the patch into the stored row: fields
// absent from the request body keep their current values.
func handleUpdateCustomer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		existing, err := deps.Store.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		merged := existing
		if err := json.NewDecoder(r.Body).Decode(&merged); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
			return
		}

		updated, err := deps.Store.Update(r.Context(), id, merged)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteCustomer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := deps.Store.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if removed {
			customersTotal.Dec()
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

// handleNearby returns customers ordered by distance from the agent's
// position: /api/customers/nearby?lat=13.75&lng=100.50&limit=3
func handleNearby(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lat := geo.DefaultLatitude
		lng := geo.DefaultLongitude
		if v, err := strconv.ParseFloat(q.Get("lat"), 64); err == nil {
			lat = v
		}
		if v, err := strconv.ParseFloat(q.Get("lng"), 64); err == nil {
			lng = v
		}
		limit := 0
		if v, err := strconv.Atoi(q.Get("limit")); err == nil {
			limit = v
		}

		records, err := deps.Store.List(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		located := geo.Nearest(records, lat, lng, limit)
		if located == nil {
			located = []geo.Located{}
		}
		writeJSON(w, http.StatusOK, located)
	}
}
