package service

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationMemory_AppendAndContext(t *testing.T) {
	m := NewConversationMemory(5)

	m.Append("alice", "What is the warranty?", "Two years.")
	m.Append("alice", "Does it cover batteries?", "No.")

	ctx := m.Context("alice")
	assert.Contains(t, ctx, "Previous conversation:")
	assert.Contains(t, ctx, "User: What is the warranty?")
	assert.Contains(t, ctx, "Assistant: Two years.")
	assert.Contains(t, ctx, "User: Does it cover batteries?")

	// Oldest first.
	assert.Less(t, strings.Index(ctx, "warranty"), strings.Index(ctx, "batteries"))
}

func TestConversationMemory_EvictsOldestPastLimit(t *testing.T) {
	m := NewConversationMemory(3)

	for i := 1; i <= 5; i++ {
		m.Append("bob", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	assert.Equal(t, 3, m.Turns("bob"))

	ctx := m.Context("bob")
	assert.NotContains(t, ctx, "question 1")
	assert.NotContains(t, ctx, "question 2")
	assert.Contains(t, ctx, "question 3")
	assert.Contains(t, ctx, "question 5")
}

func TestConversationMemory_TruncatesLongTurns(t *testing.T) {
	m := NewConversationMemory(5)

	longQ := strings.Repeat("q", 500)
	longA := strings.Repeat("a", 500)
	m.Append("carol", longQ, longA)

	ctx := m.Context("carol")
	assert.Contains(t, ctx, strings.Repeat("q", 200)+"...")
	assert.Contains(t, ctx, strings.Repeat("a", 300)+"...")
	assert.NotContains(t, ctx, strings.Repeat("q", 201))
	assert.NotContains(t, ctx, strings.Repeat("a", 301))
}

func TestConversationMemory_EmptyUserID(t *testing.T) {
	m := NewConversationMemory(5)

	m.Append("", "question", "answer")

	assert.Equal(t, "", m.Context(""))
	assert.Equal(t, 0, m.Turns(""))
}

func TestConversationMemory_UnknownUser(t *testing.T) {
	m := NewConversationMemory(5)
	assert.Equal(t, "", m.Context("nobody"))
	assert.Equal(t, 0, m.Turns("nobody"))
}

func TestConversationMemory_Clear(t *testing.T) {
	m := NewConversationMemory(5)

	m.Append("dave", "q", "a")
	assert.Equal(t, 1, m.Turns("dave"))

	m.Clear("dave")
	assert.Equal(t, 0, m.Turns("dave"))
	assert.Equal(t, "", m.Context("dave"))
}

func TestConversationMemory_UsersAreIsolated(t *testing.T) {
	m := NewConversationMemory(5)

	m.Append("alice", "alice question", "alice answer")
	m.Append("bob", "bob question", "bob answer")

	assert.NotContains(t, m.Context("alice"), "bob question")
	assert.NotContains(t, m.Context("bob"), "alice question")

	m.Clear("alice")
	assert.Equal(t, 1, m.Turns("bob"))
}

func TestConversationMemory_ConcurrentAppends(t *testing.T) {
	m := NewConversationMemory(5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", n%4)
			m.Append(user, "question", "answer")
			_ = m.Context(user)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		assert.Equal(t, 5, m.Turns(fmt.Sprintf("user-%d", i)))
	}
}

func TestNewConversationMemory_DefaultsWhenNonPositive(t *testing.T) {
	m := NewConversationMemory(0)
	for i := 0; i < 10; i++ {
		m.Append("u", "q", "a")
	}
	assert.Equal(t, DefaultMaxHistory, m.Turns("u"))
}
