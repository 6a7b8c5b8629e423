package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/fitfusion/internal/metrics"
	"google.golang.org/genai"
)

// GeminiProvider serves Gemini models through one shared genai client.
type GeminiProvider struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGemini creates a provider backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{client: client, logger: logger}, nil
}

// Model implements Provider.
func (p *GeminiProvider) Model(s Settings) Client {
	return &geminiModel{provider: p, settings: s.Normalize()}
}

type geminiModel struct {
	provider *GeminiProvider
	settings Settings
}

// Generate implements Client.
func (m *geminiModel) Generate(ctx context.Context, prompt, system string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(m.settings.Temperature)),
		TopP:            genai.Ptr(float32(m.settings.TopP)),
		MaxOutputTokens: int32(m.settings.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := m.provider.client.Models.GenerateContent(ctx, m.settings.Model, genai.Text(prompt), cfg)
	metrics.LLMDuration.WithLabelValues(m.settings.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequests.WithLabelValues(m.settings.Model, "error").Inc()
		return "", fmt.Errorf("gemini generate (%s): %w", m.settings.Model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.LLMRequests.WithLabelValues(m.settings.Model, "empty").Inc()
		return "", fmt.Errorf("gemini generate (%s): empty response", m.settings.Model)
	}
	metrics.LLMRequests.WithLabelValues(m.settings.Model, "ok").Inc()

	m.provider.logger.Debug("LLM completion",
		"model", m.settings.Model,
		"prompt_chars", len(prompt),
		"completion_chars", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}
