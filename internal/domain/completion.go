package domain

import "context"

// Chat roles understood by completion providers.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is one message of a completion prompt.
type ChatMessage struct {
	Role    string
	Content string
}

// Completer generates a chat completion.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
