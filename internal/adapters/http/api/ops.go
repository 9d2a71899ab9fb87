package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/stride/pkg/metrics"
)

// StatsProvider reports a snapshot of service state for /stats.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// HealthHandler serves the Prometheus exposition of the service registry.
// A 200 doubles as the liveness signal.
type HealthHandler struct {
	exposition http.Handler
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		exposition: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

// HandleHealth handles GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.exposition.ServeHTTP(w, r)
}

// StatsHandler serves the service snapshot.
type StatsHandler struct {
	provider StatsProvider
}

func NewStatsHandler(p StatsProvider) *StatsHandler {
	return &StatsHandler{provider: p}
}

// HandleStats handles GET /stats. The snapshot is never cached.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.provider.GetStats(r.Context()))
}
