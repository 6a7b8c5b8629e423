package domain

import (
	"time"
)

// AgentSession stores persisted conversation state for one chat session.
type AgentSession struct {
	Username     string
	SessionID    string
	MessagesJSON string
	Preferences  Preferences
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoredMessage is a serialized chat message entry.
type StoredMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Preferences holds the per-session assistant settings.
type Preferences struct {
	Persona     string  `json:"persona"`
	PromptStyle string  `json:"prompt_style"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}
