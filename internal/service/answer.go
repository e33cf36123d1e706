package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/telemetry"
)

const (
	// DefaultThreshold is the minimum similarity score a search hit needs to
	// be used as context.
	DefaultThreshold float32 = 0.5
	// DefaultTopK is the number of candidates retrieved per query.
	DefaultTopK = 6

	// NoContextAnswer is returned when no hit clears the threshold. This is a
	// normal outcome, not an error.
	NoContextAnswer = "The answer was not found in the documents."

	// Log snippets keep question/answer text short; full text is retained in
	// event meta for audit.
	snippetMax = 50
)

const systemPrompt = `You are a helpful assistant. Answer the user's question using ONLY the provided context.
If the answer is not present in the context, explicitly state that you cannot find it.
If the user refers to something from the previous conversation, use that context to understand their question.`

// ChatGateway generates an answer from a chat-completion request.
type ChatGateway interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.TokenUsage, error)
}

// SearchStore is the vector-search side of the chunk store.
type SearchStore interface {
	Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error)
}

// AnswerConfig tunes retrieval for the answer pipeline.
type AnswerConfig struct {
	Threshold float32
	TopK      int
}

// AnswerService answers natural-language questions grounded in retrieved
// document chunks, with per-user conversation memory.
type AnswerService struct {
	gateway EmbeddingGateway
	chat    ChatGateway
	store   SearchStore
	memory  *ConversationMemory
	events  EventRecorder
	cfg     AnswerConfig
}

// NewAnswerService creates an AnswerService. events may be nil.
func NewAnswerService(gateway EmbeddingGateway, chat ChatGateway, store SearchStore, memory *ConversationMemory, events EventRecorder, cfg AnswerConfig) *AnswerService {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &AnswerService{
		gateway: gateway,
		chat:    chat,
		store:   store,
		memory:  memory,
		events:  events,
		cfg:     cfg,
	}
}

// Answer runs one retrieval-augmented answer request. Failures at any stage
// are logged and converted into a user-facing string; nothing propagates past
// the pipeline boundary.
func (s *AnswerService) Answer(ctx context.Context, question, userID string) string {
	start := time.Now()
	hashedID := HashUserID(userID)
	qSnip := snippet(question)

	answer, err := s.generate(ctx, question, userID, start, hashedID, qSnip)
	if err != nil {
		s.recordEvent(ctx, domain.Event{
			EventType:       domain.EventTypeQuery,
			Status:          domain.EventStatusFail,
			DurationMs:      msSince(start),
			ErrorType:       domain.ErrorKind(err),
			Meta:            map[string]any{"error_msg": err.Error(), "full_question": question},
			QuestionSnippet: qSnip,
			HashedUserID:    hashedID,
		})
		return fmt.Sprintf("Error encountered: %v", err)
	}

	return answer
}

func (s *AnswerService) generate(ctx context.Context, question, userID string, start time.Time, hashedID, qSnip string) (answer string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.answer", telemetry.SpanAttributes{
		UserHash:  hashedID,
		Operation: "answer",
	})
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.End()
	}()

	// Embed the query.
	embedStart := time.Now()
	vectors, err := s.gateway.EmbedBatch(ctx, []string{question})
	if err != nil {
		return "", err
	}
	embedMs := msSince(embedStart)

	// Vector similarity search.
	searchStart := time.Now()
	hits, err := s.store.Search(ctx, vectors[0], s.cfg.TopK)
	if err != nil {
		return "", err
	}
	searchMs := msSince(searchStart)

	// Keep only hits above the similarity threshold.
	survivors := hits[:0:0]
	for _, h := range hits {
		if h.Score > s.cfg.Threshold {
			survivors = append(survivors, h)
		}
	}

	if len(survivors) == 0 {
		s.recordEvent(ctx, domain.Event{
			EventType:       domain.EventTypeQuery,
			Status:          domain.EventStatusOK,
			DurationMs:      msSince(start),
			Meta:            map[string]any{"result": "no_context", "full_question": question},
			QuestionSnippet: qSnip,
			HashedUserID:    hashedID,
		})
		return NoContextAnswer, nil
	}

	contextBody, citations := assembleContext(survivors)

	history := ""
	if s.memory != nil {
		history = s.memory.Context(userID)
	}

	var user strings.Builder
	if history != "" {
		user.WriteString(history)
		user.WriteString("\n---\n\n")
	}
	fmt.Fprintf(&user, "Context from documents:\n%s\n\nQuestion: %s", contextBody, question)

	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: user.String()},
	}

	chatStart := time.Now()
	answer, usage, err := s.chat.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	chatMs := msSince(chatStart)

	if s.memory != nil {
		s.memory.Append(userID, question, answer)
	}

	historyTurns := 0
	if s.memory != nil {
		historyTurns = s.memory.Turns(userID)
	}

	s.recordEvent(ctx, domain.Event{
		EventType:  domain.EventTypeQuery,
		Status:     domain.EventStatusOK,
		DurationMs: msSince(start),
		Meta: map[string]any{
			"embed_ms":      embedMs,
			"search_ms":     searchMs,
			"chat_ms":       chatMs,
			"sources_count": len(survivors),
			"full_question": question,
			"full_answer":   answer,
			"citations":     citations.markers,
			"usage":         usage,
			"history_turns": historyTurns,
		},
		QuestionSnippet: qSnip,
		AnswerSnippet:   snippet(answer),
		HashedUserID:    hashedID,
	})

	return fmt.Sprintf("%s\n\nSources: %s", answer, strings.Join(citations.unique, ", ")), nil
}

type citationSet struct {
	// markers holds one citation per surviving hit, duplicates included;
	// unique collapses them in first-seen order for the final string. The
	// context body deduplicates by (source, page) but citations do not.
	markers []string
	unique  []string
}

// assembleContext groups surviving hits by (source, page): each distinct page
// contributes its text once, in score order, while every hit contributes a
// citation marker.
func assembleContext(hits []domain.SearchHit) (string, citationSet) {
	seenPages := map[string]bool{}
	seenMarkers := map[string]bool{}
	var blocks []string
	var set citationSet

	for _, h := range hits {
		source, page, index, err := domain.ParseChunkID(h.ChunkID)
		if err != nil {
			source, page, index = h.Source, 0, 0
		}

		pageKey := fmt.Sprintf("%s:p%03d", source, page)
		if !seenPages[pageKey] {
			seenPages[pageKey] = true
			blocks = append(blocks, fmt.Sprintf("Content from %s:\n%s", h.Source, h.Text))
		}

		marker := fmt.Sprintf("(%s#%03d)", h.Source, index)
		set.markers = append(set.markers, marker)
		if !seenMarkers[marker] {
			seenMarkers[marker] = true
			set.unique = append(set.unique, marker)
		}
	}

	return strings.Join(blocks, "\n\n"), set
}

// HashUserID hashes a user id for privacy in logs. Empty ids map to "anon".
func HashUserID(userID string) string {
	if userID == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:12]
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetMax {
		return s
	}
	return string(runes[:snippetMax-3]) + "..."
}

func (s *AnswerService) recordEvent(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, event)
}

// ClearHistory removes the user's conversation memory.
func (s *AnswerService) ClearHistory(userID string) {
	if s.memory != nil {
		s.memory.Clear(userID)
	}
}
