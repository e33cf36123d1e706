package service

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// DefaultMaxHistory is the number of question/answer pairs kept per user.
	DefaultMaxHistory = 5

	// History entries are truncated per field for prompt economy.
	historyQuestionMax = 200
	historyAnswerMax   = 300
)

type conversationTurn struct {
	question string
	answer   string
}

type userHistory struct {
	mu    sync.Mutex
	turns []conversationTurn
}

// ConversationMemory keeps a bounded per-user history of question/answer
// turns. Lookups take a short global lock; the read-modify-write on one
// user's history holds only that user's lock, so requests for different
// users never contend.
type ConversationMemory struct {
	maxTurns int

	mu    sync.Mutex
	users map[string]*userHistory
}

// NewConversationMemory creates a memory bounded to maxTurns pairs per user.
func NewConversationMemory(maxTurns int) *ConversationMemory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxHistory
	}
	return &ConversationMemory{
		maxTurns: maxTurns,
		users:    make(map[string]*userHistory),
	}
}

func (m *ConversationMemory) history(userID string, create bool) *userHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.users[userID]
	if !ok && create {
		h = &userHistory{}
		m.users[userID] = h
	}
	return h
}

// Append pushes one question/answer turn for the user, evicting the oldest
// pairs past the limit. An empty user id is a valid no-op key space: nothing
// is stored and the pipeline keeps working without memory.
func (m *ConversationMemory) Append(userID, question, answer string) {
	if userID == "" {
		return
	}

	h := m.history(userID, true)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, conversationTurn{question: question, answer: answer})
	if len(h.turns) > m.maxTurns {
		h.turns = h.turns[len(h.turns)-m.maxTurns:]
	}
}

// Context returns the user's recent history formatted for the prompt, oldest
// first, or an empty string when there is none. Questions and answers are
// truncated per field so old turns cannot dominate the token budget.
func (m *ConversationMemory) Context(userID string) string {
	if userID == "" {
		return ""
	}

	h := m.history(userID, false)
	if h == nil {
		return ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, t := range h.turns {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n\n",
			truncateRunes(t.question, historyQuestionMax),
			truncateRunes(t.answer, historyAnswerMax))
	}
	return b.String()
}

// Clear removes all history for the user.
func (m *ConversationMemory) Clear(userID string) {
	if userID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

// Turns reports how many question/answer pairs the user currently has.
func (m *ConversationMemory) Turns(userID string) int {
	h := m.history(userID, false)
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
