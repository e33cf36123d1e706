package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/docsage/docsage/internal/api"
	"github.com/docsage/docsage/internal/domain"
)

type MetricsService interface {
	Summary(ctx context.Context, window time.Duration) (*domain.MetricsSummary, error)
	Recent(ctx context.Context, limit int, status, eventType string) ([]domain.Event, error)
	DocumentStats(ctx context.Context) (domain.DocumentStats, error)
}

type MetricsHandler struct {
	svc MetricsService
}

func NewMetricsHandler(svc MetricsService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

type MetricsResponse struct {
	WindowHours      float64                            `json:"window_hours"`
	TotalQueries     int                                `json:"total_queries"`
	ErrorRatePct     float64                            `json:"error_rate_pct"`
	TotalTokens      int64                              `json:"total_tokens"`
	CompletionTokens int64                              `json:"completion_tokens"`
	Breakdown        map[string]domain.EventTypeSummary `json:"breakdown"`
}

// Metrics aggregates pipeline events over a rolling window (default 24h).
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	window := time.Duration(0)
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "window must be a positive duration like 24h")
			return
		}
		window = parsed
	}

	summary, err := h.svc.Summary(r.Context(), window)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MetricsResponse{
		WindowHours:      summary.Window.Hours(),
		TotalQueries:     summary.TotalQueries,
		ErrorRatePct:     summary.ErrorRatePct,
		TotalTokens:      summary.TotalTokens,
		CompletionTokens: summary.CompletionTokens,
		Breakdown:        summary.Breakdown,
	})
}

// Events lists the newest pipeline events, optionally filtered by status and
// event type.
func (h *MetricsHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.svc.Recent(r.Context(), limit,
		r.URL.Query().Get("status"), r.URL.Query().Get("type"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, events)
}

// Stats reports total chunk and document counts from the vector store.
func (h *MetricsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DocumentStats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
