package handler

import (
	"fmt"
	"net/http"

	"github.com/budgetbook/budgetbook/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "budgetbook_expenses_created_total %d\n", snap.ExpensesCreated)
	writeMetric(w, "budgetbook_expenses_updated_total %d\n", snap.ExpensesUpdated)
	writeMetric(w, "budgetbook_expenses_deleted_total %d\n", snap.ExpensesDeleted)
	writeMetric(w, "budgetbook_expense_misses_total{op=\"update\"} %d\n", snap.UpdateMisses)
	writeMetric(w, "budgetbook_expense_misses_total{op=\"delete\"} %d\n", snap.DeleteMisses)

	writeMetric(w, "budgetbook_report_cache_hits_total %d\n", snap.ReportCacheHits)
	writeMetric(w, "budgetbook_report_cache_misses_total %d\n", snap.ReportCacheMisses)
	writeMetric(w, "budgetbook_report_duration_seconds_count %d\n", snap.ReportDurationCount)
	writeMetric(w, "budgetbook_report_duration_seconds_sum %.6f\n", float64(snap.ReportDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
