package service

import (
	"context"
	"log"
	"time"

	"github.com/docsage/docsage/internal/domain"
	"github.com/google/uuid"
)

// DefaultSummaryWindow is the metrics aggregation window for the dashboard.
const DefaultSummaryWindow = 24 * time.Hour

// EventStore persists observability events.
type EventStore interface {
	Insert(ctx context.Context, event domain.Event) error
	Summarize(ctx context.Context, since time.Time) (map[string]domain.EventTypeSummary, error)
	Recent(ctx context.Context, limit int, status, eventType string) ([]domain.Event, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// StatsStore reports aggregate document counts from the vector store side.
type StatsStore interface {
	Stats(ctx context.Context) (domain.DocumentStats, error)
}

// Observability records structured pipeline events and produces rolling
// metrics summaries.
type Observability struct {
	store StatsStore
	log   EventStore
}

func NewObservability(events EventStore, store StatsStore) *Observability {
	return &Observability{log: events, store: store}
}

// Record appends one event, filling in timestamp and correlation id. A
// logging failure must never block the pipeline: it is printed and swallowed.
func (o *Observability) Record(ctx context.Context, event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = uuid.NewString()
	}
	if event.Meta == nil {
		event.Meta = map[string]any{}
	}

	if err := o.log.Insert(ctx, event); err != nil {
		log.Printf("failed to log event %s: %v", event.EventType, err)
	}
}

// Summary aggregates events by type within the window, computing counts,
// average durations, error rates, and token totals. Window defaults to 24h.
func (o *Observability) Summary(ctx context.Context, window time.Duration) (*domain.MetricsSummary, error) {
	if window <= 0 {
		window = DefaultSummaryWindow
	}

	breakdown, err := o.log.Summarize(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}

	summary := &domain.MetricsSummary{
		Window:    window,
		Breakdown: breakdown,
	}

	totalOps := 0
	totalErrors := 0
	for eventType, s := range breakdown {
		totalOps += s.Count
		totalErrors += s.Errors
		if eventType == domain.EventTypeQuery {
			summary.TotalQueries = s.Count
			summary.TotalTokens = s.TotalTokens
			summary.CompletionTokens = s.CompletionTokens
		}
	}
	if totalOps > 0 {
		summary.ErrorRatePct = float64(int(float64(totalErrors)/float64(totalOps)*1000+0.5)) / 10
	}

	return summary, nil
}

// Recent lists the newest events with optional status/type filters.
func (o *Observability) Recent(ctx context.Context, limit int, status, eventType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return o.log.Recent(ctx, limit, status, eventType)
}

// DocumentStats reads total chunk and distinct source counts.
func (o *Observability) DocumentStats(ctx context.Context) (domain.DocumentStats, error) {
	if o.store == nil {
		return domain.DocumentStats{}, nil
	}
	return o.store.Stats(ctx)
}

// PurgeExpired removes events past the retention window, returning the count
// removed. Called by the background retention worker, not by request flow.
func (o *Observability) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-domain.EventRetention)
	return o.log.DeleteExpired(ctx, cutoff)
}
