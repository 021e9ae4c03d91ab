package ai

import "context"

// AI — writes agent replies, knows nothing about the directory
type AI interface {
	GetReply(ctx context.Context, history []Message) (string, error)
}

// Message — universal dialogue format for AI
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
