package domain

// Chat message roles understood by the chat gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message in a chat-completion request.
type ChatMessage struct {
	Role    string
	Content string
}
