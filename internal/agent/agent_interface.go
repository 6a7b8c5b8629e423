package agent

import (
	"context"
	"iter"

	"github.com/ashureev/fitfusion/internal/domain"
)

// Processor defines the interface for assistant chat processing.
// This interface is implemented by Service.
type Processor interface {
	// Chat runs one turn and streams its steps, ending with the answer.
	Chat(ctx context.Context, req ChatRequest) iter.Seq2[*ChatResponse, error]

	// History returns the stored messages of a session.
	History(ctx context.Context, username, sessionID string) ([]Message, error)

	// ResetSession clears the chat history of a session, keeping its preferences.
	ResetSession(ctx context.Context, username, sessionID string) error

	// Preferences returns the effective assistant settings of a session.
	Preferences(ctx context.Context, username, sessionID string) (domain.Preferences, error)

	// SetPreferences validates, normalises and stores assistant settings.
	SetPreferences(ctx context.Context, username, sessionID string, prefs domain.Preferences) (domain.Preferences, error)

	// Close releases resources
	Close()
}

// Ensure Service implements Processor.
var _ Processor = (*Service)(nil)
