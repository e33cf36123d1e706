package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docsage/docsage/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository persists pipeline observability events.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Insert appends one event. Meta is stored as JSONB so summaries can pull
// token usage out of it later.
func (r *EventRepository) Insert(ctx context.Context, event domain.Event) error {
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return domain.NewStoreError("failed to marshal event meta", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO events (correlation_id, ts, event, status, duration_ms, error_type, meta, question_snippet, answer_snippet, hashed_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.CorrelationID,
		event.Timestamp,
		event.EventType,
		event.Status,
		event.DurationMs,
		nullable(event.ErrorType),
		metaJSON,
		nullable(event.QuestionSnippet),
		nullable(event.AnswerSnippet),
		nullable(event.HashedUserID),
	)
	if err != nil {
		return domain.NewStoreError("failed to insert event", err)
	}
	return nil
}

// Summarize aggregates events since the cutoff by event type: counts, average
// duration, error counts, and token sums pulled from meta.usage.
func (r *EventRepository) Summarize(ctx context.Context, since time.Time) (map[string]domain.EventTypeSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event,
		        COUNT(*),
		        COALESCE(AVG(duration_ms), 0),
		        COUNT(*) FILTER (WHERE status = 'fail'),
		        COALESCE(SUM((meta->'usage'->>'total_tokens')::BIGINT), 0),
		        COALESCE(SUM((meta->'usage'->>'completion_tokens')::BIGINT), 0)
		 FROM events
		 WHERE ts >= $1
		 GROUP BY event`,
		since)
	if err != nil {
		return nil, domain.NewStoreError("failed to summarize events", err)
	}
	defer rows.Close()

	breakdown := make(map[string]domain.EventTypeSummary)
	for rows.Next() {
		var eventType string
		var s domain.EventTypeSummary
		if err := rows.Scan(&eventType, &s.Count, &s.AvgMs, &s.Errors, &s.TotalTokens, &s.CompletionTokens); err != nil {
			return nil, domain.NewStoreError("failed to scan event summary", err)
		}
		breakdown[eventType] = s
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to summarize events", err)
	}
	return breakdown, nil
}

// Recent returns the newest events, optionally filtered by status and event
// type, newest first.
func (r *EventRepository) Recent(ctx context.Context, limit int, status, eventType string) ([]domain.Event, error) {
	query := `SELECT correlation_id, ts, event, status, duration_ms,
	                 COALESCE(error_type, ''), meta,
	                 COALESCE(question_snippet, ''), COALESCE(answer_snippet, ''),
	                 COALESCE(hashed_user_id, '')
	          FROM events`
	args := []any{}
	argn := 0

	where := ""
	if status != "" {
		argn++
		where = fmt.Sprintf(" WHERE status = $%d", argn)
		args = append(args, status)
	}
	if eventType != "" {
		argn++
		if where == "" {
			where = fmt.Sprintf(" WHERE event = $%d", argn)
		} else {
			where += fmt.Sprintf(" AND event = $%d", argn)
		}
		args = append(args, eventType)
	}

	argn++
	query += where + fmt.Sprintf(" ORDER BY ts DESC LIMIT $%d", argn)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("failed to list events", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0, limit)
	for rows.Next() {
		var e domain.Event
		var metaJSON []byte
		if err := rows.Scan(&e.CorrelationID, &e.Timestamp, &e.EventType, &e.Status,
			&e.DurationMs, &e.ErrorType, &metaJSON,
			&e.QuestionSnippet, &e.AnswerSnippet, &e.HashedUserID); err != nil {
			return nil, domain.NewStoreError("failed to scan event", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Meta); err != nil {
				return nil, domain.NewStoreError("failed to unmarshal event meta", err)
			}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to list events", err)
	}
	return events, nil
}

// DeleteExpired removes events older than the cutoff and returns the count.
func (r *EventRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE ts < $1`, before)
	if err != nil {
		return 0, domain.NewStoreError("failed to delete expired events", err)
	}
	return tag.RowsAffected(), nil
}

// nullable maps empty strings to NULL so optional columns stay clean.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
