// Package llm provides the language-model collaborator used by the assistant.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("llm: GOOGLE_API_KEY is not configured")

// Client generates one completion for a prompt under a system instruction.
type Client interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Provider hands out clients bound to specific model settings.
type Provider interface {
	Model(s Settings) Client
}

// Unavailable is a Provider whose clients always fail with ErrNotConfigured.
type Unavailable struct{}

// Model implements Provider.
func (Unavailable) Model(Settings) Client { return unavailableClient{} }

type unavailableClient struct{}

func (unavailableClient) Generate(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}
