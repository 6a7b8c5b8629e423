// Package agent implements the FitFusion booking assistant: the reasoning
// loop, its parser and parameter mapper, and the chat service around it.
package agent

import (
	"errors"

	"github.com/ashureev/fitfusion/internal/llm"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/tools"
)

// Channels a chat turn can arrive on.
const (
	ChannelHTTP      = "chat_http"
	ChannelWebSocket = "chat_ws"
	ChannelCLI       = "cli"
)

var (
	// ErrEmptyMessage is returned for blank chat messages.
	ErrEmptyMessage = errors.New("message is required")
	// ErrSignInRequired is returned when a turn has no signed-in member.
	ErrSignInRequired = errors.New("sign in to chat with the assistant")
)

// ClientMessage is the error text safe to show a chat client. Request
// validation errors pass through; anything else is replaced.
func ClientMessage(err error) string {
	if errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrSignInRequired) {
		return err.Error()
	}
	return "failed to process message"
}

// ChatRequest represents a chat request to the agent.
type ChatRequest struct {
	Message   string `json:"message"`
	Username  string `json:"-"`
	SessionID string `json:"-"`
	Channel   string `json:"-"`
}

// ChatResponse is one streamed step of a chat turn. The final chunk has
// type answer and carries the tools used. Guard warnings stay server side.
type ChatResponse struct {
	Type      EventType  `json:"type"`
	Iteration int        `json:"iteration"`
	Content   string     `json:"content,omitempty"`
	Tool      string     `json:"tool,omitempty"`
	Args      tools.Args `json:"args,omitempty"`
	ToolsUsed []string   `json:"tools_used,omitempty"`
	Outcome   Outcome    `json:"outcome,omitempty"`
}

// Config holds agent configuration.
type Config struct {
	MaxIterations int
	Persona       string
	PromptStyle   string
	// HistoryLimit caps the stored messages per session.
	HistoryLimit int
	LLM          llm.Settings
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		Persona:       prompts.DefaultPersona,
		PromptStyle:   prompts.DefaultStyle,
		HistoryLimit:  40,
		LLM:           llm.DefaultSettings(),
	}
}
