package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/llm"
	"github.com/ashureev/fitfusion/internal/metrics"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/ashureev/fitfusion/internal/tools"
	"github.com/google/uuid"
)

// DefaultSessionID is used when a request carries no session.
const DefaultSessionID = "default"

// ErrInvalidPreference is wrapped by SetPreferences validation errors.
var ErrInvalidPreference = errors.New("invalid preference")

// Service provides assistant chat on top of the reasoning loop: it
// serialises turns per session, persists history and preferences and
// records every interaction.
type Service struct {
	repo     store.Repository
	catalog  *prompts.Catalog
	provider llm.Provider
	loop     *Loop
	cfg      Config
	log      ConversationLogger
	now      func() time.Time

	locks sync.Map // username/session -> *sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithConversationLogger records turns to the given logger.
func WithConversationLogger(l ConversationLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithServiceClock overrides the clock used for prompt dates.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a chat service.
func NewService(repo store.Repository, catalog *prompts.Catalog, provider llm.Provider, executor ToolExecutor, cfg Config, opts ...ServiceOption) *Service {
	defaults := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.Persona == "" {
		cfg.Persona = defaults.Persona
	}
	if cfg.PromptStyle == "" {
		cfg.PromptStyle = defaults.PromptStyle
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}
	cfg.LLM = cfg.LLM.Normalize()

	s := &Service{
		repo:     repo,
		catalog:  catalog,
		provider: provider,
		cfg:      cfg,
		log:      noopConversationLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loop = NewLoop(catalog, executor, s.now)
	return s
}

func (s *Service) lockSession(username, sessionID string) func() {
	v, _ := s.locks.LoadOrStore(username+"/"+sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Chat processes a user message and streams the loop's steps. The last
// chunk is the answer. Turns of the same session run one at a time.
func (s *Service) Chat(ctx context.Context, req ChatRequest) iter.Seq2[*ChatResponse, error] {
	return func(yield func(*ChatResponse, error) bool) {
		message := strings.TrimSpace(req.Message)
		channel := req.Channel
		if channel == "" {
			channel = ChannelHTTP
		}
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = DefaultSessionID
		}
		switch {
		case message == "":
			yield(nil, ErrEmptyMessage)
			return
		case req.Username == "":
			yield(nil, ErrSignInRequired)
			return
		}

		unlock := s.lockSession(req.Username, sessionID)
		defer unlock()

		session, err := s.loadSession(ctx, req.Username, sessionID)
		if err != nil {
			slog.Error("failed to load chat session", "username", req.Username, "session_id", sessionID, "error", err)
			s.apologise(yield, channel)
			return
		}
		history := decodeMessages(session)
		prefs := s.effective(session.Preferences)

		system, err := s.catalog.System(prompts.SystemInput{
			Persona:          prefs.Persona,
			Style:            prefs.PromptStyle,
			ToolDescriptions: tools.Describe(),
			MaxIterations:    s.cfg.MaxIterations,
			Now:              s.now(),
		})
		if err != nil {
			slog.Error("failed to build system prompt", "username", req.Username, "persona", prefs.Persona, "error", err)
			s.apologise(yield, channel)
			return
		}

		interactionID := uuid.NewString()
		s.log.Log(ConversationLogEvent{
			UserID:     req.Username,
			SessionID:  sessionID,
			Channel:    channel,
			Direction:  "outbound",
			EventType:  "chat_user_message",
			ContentRaw: message,
			Meta:       map[string]any{"interaction_id": interactionID},
		})

		// The turn outlives the consumer so a booking that has started is
		// finished and recorded in the history.
		turnCtx := context.WithoutCancel(ctx)
		stopped := false
		send := func(resp *ChatResponse) {
			if !stopped && !yield(resp, nil) {
				stopped = true
			}
		}

		history = append(history, Message{Role: RoleUser, Content: message})
		start := time.Now()
		state, warnings := s.loop.Run(turnCtx, Turn{
			Client:        s.provider.Model(settingsOf(prefs)),
			System:        system,
			History:       history,
			CurrentUser:   req.Username,
			MaxIterations: s.cfg.MaxIterations,
			Observer: func(ev Event) {
				if ev.Type == EventAnswer {
					return
				}
				send(&ChatResponse{
					Type:      ev.Type,
					Iteration: ev.Iteration,
					Content:   ev.Content,
					Tool:      ev.Tool,
					Args:      ev.Args,
				})
			},
		})
		elapsed := time.Since(start)

		history = append(history, Message{Role: RoleAssistant, Content: state.FinalAnswer})
		session.Preferences = prefs
		if err := s.saveHistory(context.WithoutCancel(ctx), session, history); err != nil {
			slog.Error("failed to save chat history", "username", req.Username, "session_id", sessionID, "error", err)
		}

		s.log.Log(ConversationLogEvent{
			UserID:     req.Username,
			SessionID:  sessionID,
			Channel:    channel,
			Direction:  "inbound",
			EventType:  "chat_assistant_message",
			ContentRaw: state.FinalAnswer,
			Meta: map[string]any{
				"interaction_id": interactionID,
				"persona":        prefs.Persona,
				"prompt_style":   prefs.PromptStyle,
				"model":          prefs.Model,
				"temperature":    prefs.Temperature,
				"top_p":          prefs.TopP,
				"max_tokens":     prefs.MaxTokens,
				"iterations":     state.Iteration,
				"tools_used":     state.ToolsUsed,
				"outcome":        string(state.Outcome),
				"warnings":       len(warnings),
				"duration_ms":    elapsed.Milliseconds(),
			},
		})
		metrics.ChatRequests.WithLabelValues(channel, string(state.Outcome)).Inc()

		slog.Info("chat turn completed",
			"username", req.Username,
			"session_id", sessionID,
			"channel", channel,
			"iterations", state.Iteration,
			"tools_used", state.ToolsUsed,
			"outcome", state.Outcome,
			"duration", elapsed,
		)

		send(&ChatResponse{
			Type:      EventAnswer,
			Iteration: state.Iteration,
			Content:   state.FinalAnswer,
			ToolsUsed: state.ToolsUsed,
			Outcome:   state.Outcome,
		})
	}
}

// apologise ends a turn that could not start with the generic error answer.
func (s *Service) apologise(yield func(*ChatResponse, error) bool, channel string) {
	metrics.ChatRequests.WithLabelValues(channel, string(OutcomeLLMError)).Inc()
	yield(&ChatResponse{Type: EventAnswer, Content: errorApology, Outcome: OutcomeLLMError}, nil)
}

// History returns the stored messages of a session.
func (s *Service) History(ctx context.Context, username, sessionID string) ([]Message, error) {
	session, err := s.repo.GetAgentSession(ctx, username, sessionOrDefault(sessionID))
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		return []Message{}, nil
	}
	return decodeMessages(session), nil
}

// ResetSession clears a session's messages. Preferences survive.
func (s *Service) ResetSession(ctx context.Context, username, sessionID string) error {
	sessionID = sessionOrDefault(sessionID)
	unlock := s.lockSession(username, sessionID)
	defer unlock()

	session, err := s.repo.GetAgentSession(ctx, username, sessionID)
	if err != nil {
		return fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		return nil
	}
	session.MessagesJSON = "[]"
	if err := s.repo.UpsertAgentSession(ctx, session); err != nil {
		return fmt.Errorf("reset chat session: %w", err)
	}
	slog.Info("chat history cleared", "username", username, "session_id", sessionID)
	return nil
}

// Preferences returns the effective settings of a session.
func (s *Service) Preferences(ctx context.Context, username, sessionID string) (domain.Preferences, error) {
	session, err := s.repo.GetAgentSession(ctx, username, sessionOrDefault(sessionID))
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		return s.effective(domain.Preferences{}), nil
	}
	return s.effective(session.Preferences), nil
}

// SetPreferences validates and stores session settings. An empty persona,
// style or model and a non-positive max tokens keep the current value.
// Temperature and top_p are always taken from prefs, clamped into [0, 1].
func (s *Service) SetPreferences(ctx context.Context, username, sessionID string, prefs domain.Preferences) (domain.Preferences, error) {
	sessionID = sessionOrDefault(sessionID)
	if prefs.Persona != "" {
		if _, ok := s.catalog.Persona(prefs.Persona); !ok {
			return domain.Preferences{}, fmt.Errorf("%w: unknown persona %q. Choose from: %s",
				ErrInvalidPreference, prefs.Persona, strings.Join(s.catalog.PersonaKeys(), ", "))
		}
	}
	if prefs.PromptStyle != "" {
		if _, ok := s.catalog.Style(prefs.PromptStyle); !ok {
			return domain.Preferences{}, fmt.Errorf("%w: unknown prompt style %q. Choose from: %s",
				ErrInvalidPreference, prefs.PromptStyle, strings.Join(s.catalog.StyleKeys(), ", "))
		}
	}
	if prefs.Model != "" && !llm.KnownModel(prefs.Model) {
		return domain.Preferences{}, fmt.Errorf("%w: unknown model %q", ErrInvalidPreference, prefs.Model)
	}

	unlock := s.lockSession(username, sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, username, sessionID)
	if err != nil {
		return domain.Preferences{}, err
	}
	current := s.effective(session.Preferences)
	if prefs.Persona != "" {
		current.Persona = prefs.Persona
	}
	if prefs.PromptStyle != "" {
		current.PromptStyle = prefs.PromptStyle
	}
	if prefs.Model != "" {
		current.Model = prefs.Model
	}
	if prefs.MaxTokens > 0 {
		current.MaxTokens = prefs.MaxTokens
	}
	current.Temperature = prefs.Temperature
	current.TopP = prefs.TopP
	settings := settingsOf(current).Normalize()
	current.Temperature, current.TopP = settings.Temperature, settings.TopP

	session.Preferences = current
	if err := s.repo.UpsertAgentSession(ctx, session); err != nil {
		return domain.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	slog.Info("assistant preferences updated",
		"username", username,
		"session_id", sessionID,
		"persona", current.Persona,
		"prompt_style", current.PromptStyle,
		"model", current.Model,
	)
	return current, nil
}

// Close releases resources.
func (s *Service) Close() {
	if err := s.log.Close(); err != nil {
		slog.Warn("failed to close conversation logger", "error", err)
	}
}

func (s *Service) loadSession(ctx context.Context, username, sessionID string) (*domain.AgentSession, error) {
	session, err := s.repo.GetAgentSession(ctx, username, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		session = &domain.AgentSession{
			Username:     username,
			SessionID:    sessionID,
			MessagesJSON: "[]",
			Preferences:  s.effective(domain.Preferences{}),
			CreatedAt:    time.Now(),
		}
	}
	return session, nil
}

func (s *Service) saveHistory(ctx context.Context, session *domain.AgentSession, history []Message) error {
	if len(history) > s.cfg.HistoryLimit {
		history = history[len(history)-s.cfg.HistoryLimit:]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}
	session.MessagesJSON = string(data)
	if err := s.repo.UpsertAgentSession(ctx, session); err != nil {
		return fmt.Errorf("save chat session: %w", err)
	}
	return nil
}

// effective fills unset preference fields from the service defaults and
// replaces a persona or style that no longer exists.
func (s *Service) effective(p domain.Preferences) domain.Preferences {
	if p == (domain.Preferences{}) {
		return domain.Preferences{
			Persona:     s.cfg.Persona,
			PromptStyle: s.cfg.PromptStyle,
			Model:       s.cfg.LLM.Model,
			Temperature: s.cfg.LLM.Temperature,
			TopP:        s.cfg.LLM.TopP,
			MaxTokens:   s.cfg.LLM.MaxTokens,
		}
	}
	if _, ok := s.catalog.Persona(p.Persona); !ok {
		p.Persona = s.cfg.Persona
	}
	if _, ok := s.catalog.Style(p.PromptStyle); !ok {
		p.PromptStyle = s.cfg.PromptStyle
	}
	if p.Model == "" {
		p.Model = s.cfg.LLM.Model
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = s.cfg.LLM.MaxTokens
	}
	return p
}

func settingsOf(p domain.Preferences) llm.Settings {
	return llm.Settings{
		Model:       p.Model,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		MaxTokens:   p.MaxTokens,
	}.Normalize()
}

func decodeMessages(session *domain.AgentSession) []Message {
	var messages []Message
	if strings.TrimSpace(session.MessagesJSON) == "" {
		return messages
	}
	if err := json.Unmarshal([]byte(session.MessagesJSON), &messages); err != nil {
		slog.Warn("discarding malformed chat history",
			"username", session.Username,
			"session_id", session.SessionID,
			"error", err,
		)
		return nil
	}
	return messages
}

func sessionOrDefault(id string) string {
	if id == "" {
		return DefaultSessionID
	}
	return id
}
