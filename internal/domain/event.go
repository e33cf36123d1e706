package domain

import "time"

// EventStatus indicates whether an operation succeeded.
type EventStatus string

const (
	EventStatusOK   EventStatus = "ok"
	EventStatusFail EventStatus = "fail"
)

// Well-known event types recorded by the pipeline.
const (
	EventTypeQuery  = "query"
	EventTypeIngest = "ingest"
	EventTypeDelete = "delete"
)

// EventRetention is how long observability events are kept before the
// retention worker removes them.
const EventRetention = 7 * 24 * time.Hour

// TokenUsage carries token counts reported by the chat gateway.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Event is one append-only observability record. Events are never mutated
// after creation and expire after EventRetention.
type Event struct {
	CorrelationID   string         `json:"correlation_id"`
	Timestamp       time.Time      `json:"ts"`
	EventType       string         `json:"event"`
	Status          EventStatus    `json:"status"`
	DurationMs      float64        `json:"duration_ms"`
	ErrorType       string         `json:"error_type,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
	QuestionSnippet string         `json:"question_snip,omitempty"`
	AnswerSnippet   string         `json:"answer_snip,omitempty"`
	HashedUserID    string         `json:"hashed_user_id,omitempty"`
}

// EventTypeSummary aggregates events of a single type within a window.
type EventTypeSummary struct {
	Count            int     `json:"count"`
	AvgMs            float64 `json:"avg_ms"`
	Errors           int     `json:"errors"`
	TotalTokens      int64   `json:"total_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
}

// MetricsSummary is the rolling dashboard view over a time window.
type MetricsSummary struct {
	Window           time.Duration               `json:"-"`
	TotalQueries     int                         `json:"total_queries"`
	ErrorRatePct     float64                     `json:"error_rate_pct"`
	TotalTokens      int64                       `json:"total_tokens"`
	CompletionTokens int64                       `json:"completion_tokens"`
	Breakdown        map[string]EventTypeSummary `json:"breakdown"`
}

// DocumentStats reports aggregate document counts from the vector store side.
type DocumentStats struct {
	TotalChunks  int64 `json:"total_chunks"`
	TotalSources int64 `json:"total_sources"`
}
