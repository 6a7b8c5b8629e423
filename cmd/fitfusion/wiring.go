package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/ashureev/fitfusion/internal/config"
	"github.com/ashureev/fitfusion/internal/llm"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/ashureev/fitfusion/internal/tools"
)

// app bundles the dependencies shared by the server and the terminal chat.
type app struct {
	repo    store.Repository
	catalog *prompts.Catalog
	svc     *agent.Service
}

func openRepo(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	return repo, nil
}

func newProvider(ctx context.Context, cfg *config.Config) llm.Provider {
	provider, err := llm.NewGemini(ctx, cfg.LLM.APIKey, slog.Default())
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		slog.Warn("GOOGLE_API_KEY not set, chat replies will report the assistant as unavailable")
		return llm.Unavailable{}
	case err != nil:
		slog.Error("Failed to initialize Gemini client, chat disabled", "error", err)
		return llm.Unavailable{}
	}
	return provider
}

func agentConfig(cfg *config.Config) agent.Config {
	ac := agent.DefaultConfig()
	ac.MaxIterations = cfg.Agent.MaxIterations
	ac.Persona = cfg.Agent.Persona
	ac.PromptStyle = cfg.Agent.PromptStyle
	ac.LLM = llm.Settings{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
	}.Normalize()
	return ac
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := prompts.Load()
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("load prompt catalogue: %w", err)
	}

	conversationLogger, err := agent.NewConversationLogger(cfg.ConversationLog, slog.Default())
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("initialize conversation logger: %w", err)
	}

	svc := agent.NewService(repo, catalog, newProvider(ctx, cfg), tools.NewRegistry(repo), agentConfig(cfg),
		agent.WithConversationLogger(conversationLogger))

	return &app{repo: repo, catalog: catalog, svc: svc}, nil
}

func (a *app) Close() {
	a.svc.Close()
	if err := a.repo.Close(); err != nil {
		slog.Error("Failed to close repository", "error", err)
	}
}
