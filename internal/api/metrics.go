package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_http_requests_total",
		Help: "HTTP requests served, by method.",
	}, []string{"method"})

	importedRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_imported_rows_total",
		Help: "Customer rows applied by spreadsheet imports, by action.",
	}, []string{"action"})

	feedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldops_change_feed_clients",
		Help: "Currently connected SSE change-feed clients.",
	})

	// Refreshed on every full list; writes adjust it incrementally
	// between refreshes.
	customersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldops_customers_total",
		Help: "Customer accounts in the store, as last observed.",
	})
)

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsTotal.WithLabelValues(r.Method).Inc()
		next.ServeHTTP(w, r)
	})
}
