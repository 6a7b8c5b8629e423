package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/llm"
	"github.com/ashureev/fitfusion/internal/llm/llmtest"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/ashureev/fitfusion/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, provider llm.Provider, opts ...ServiceOption) (*Service, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.CreateUser(context.Background(), "alice", "alice@example.com")
	require.NoError(t, err)

	catalog, err := prompts.Load()
	require.NoError(t, err)

	clock := func() time.Time { return loopNow }
	registry := tools.NewRegistry(repo, tools.WithClock(clock))
	opts = append([]ServiceOption{WithServiceClock(clock)}, opts...)
	svc := NewService(repo, catalog, provider, registry, DefaultConfig(), opts...)
	t.Cleanup(svc.Close)
	return svc, repo
}

func collect(t *testing.T, svc *Service, req ChatRequest) ([]*ChatResponse, error) {
	t.Helper()
	var out []*ChatResponse
	for resp, err := range svc.Chat(context.Background(), req) {
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func TestServiceChatStreamsStepsAndPersistsHistory(t *testing.T) {
	t.Parallel()

	client := llmtest.NewScripted(
		"Thought: look it up\nAction: view_bookings()",
		"Answer: You have no bookings yet.",
		"Answer: Anything else?",
	)
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	chunks, err := collect(t, svc, ChatRequest{Message: "What have I booked?", Username: "alice", SessionID: "tab-1"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	final := chunks[len(chunks)-1]
	assert.Equal(t, EventAnswer, final.Type)
	assert.Equal(t, "You have no bookings yet.", final.Content)
	assert.Equal(t, []string{"view_bookings"}, final.ToolsUsed)
	assert.Equal(t, OutcomeAnswered, final.Outcome)
	assert.Equal(t, EventThought, chunks[0].Type)

	history, err := svc.History(ctx, "alice", "tab-1")
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "What have I booked?"},
		{Role: RoleAssistant, Content: "You have no bookings yet."},
	}, history)

	_, err = collect(t, svc, ChatRequest{Message: "Thanks", Username: "alice", SessionID: "tab-1"})
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[2].Prompt, "assistant: You have no bookings yet.")
	assert.Contains(t, calls[2].System, "Available Tools:")

	other, err := svc.History(ctx, "alice", "tab-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestServiceChatRejectsBadRequests(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, llmtest.NewScripted())

	_, err := collect(t, svc, ChatRequest{Message: "   ", Username: "alice"})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = collect(t, svc, ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestServiceChatApologisesWhenSessionCannotLoad(t *testing.T) {
	t.Parallel()

	client := llmtest.NewScripted("Answer: unreachable")
	svc, repo := newTestService(t, client)
	require.NoError(t, repo.Close())

	chunks, err := collect(t, svc, ChatRequest{Message: "hi", Username: "alice"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, &ChatResponse{Type: EventAnswer, Content: errorApology, Outcome: OutcomeLLMError}, chunks[0])
	assert.NotContains(t, chunks[0].Content, "sql")
	assert.Empty(t, client.Calls())
}

func TestServiceChatFinishesTurnAfterConsumerStops(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := llmtest.Func(func(ctx context.Context, _, _ string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if calls.Add(1) == 1 {
			return "Thought: book it\nAction: book_session(service_type=\"group_class\", date_time=\"2026-06-10 10:00\")", nil
		}
		return "Answer: Booking confirmed! Your booking ID: 1", nil
	})
	svc, repo := newTestService(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for resp, err := range svc.Chat(ctx, ChatRequest{Message: "Book a group class", Username: "alice", SessionID: "tab-1"}) {
		require.NoError(t, err)
		assert.Equal(t, EventThought, resp.Type)
		cancel()
		break
	}

	assert.Equal(t, int32(2), calls.Load())
	bookings, err := repo.ListBookings(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, domain.ServiceGroupClass, bookings[0].ServiceType)

	history, err := svc.History(context.Background(), "alice", "tab-1")
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "Book a group class"},
		{Role: RoleAssistant, Content: "Booking confirmed! Your booking ID: 1"},
	}, history)
}

func TestServiceChatKeepsGuardWarningsOffTheWire(t *testing.T) {
	t.Parallel()

	client := llmtest.NewScripted(
		"Thought: look\nAction: view_bookings()",
		"Answer: Booking confirmed! Your booking ID: 7",
	)
	svc, _ := newTestService(t, client)

	chunks, err := collect(t, svc, ChatRequest{Message: "Book me in", Username: "alice"})
	require.NoError(t, err)
	final := chunks[len(chunks)-1]
	require.Equal(t, EventAnswer, final.Type)

	data, err := json.Marshal(final)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "warning")
	assert.Contains(t, string(data), `"content":"Booking confirmed! Your booking ID: 7"`)
}

func TestClientMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrEmptyMessage.Error(), ClientMessage(ErrEmptyMessage))
	assert.Equal(t, ErrSignInRequired.Error(), ClientMessage(fmt.Errorf("chat: %w", ErrSignInRequired)))
	assert.Equal(t, "failed to process message", ClientMessage(errors.New("load chat session: sql: database is closed")))
}

func TestServiceSerialisesTurnsPerSession(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	client := llmtest.Func(func(context.Context, string, string) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "Answer: ok", nil
	})
	svc, _ := newTestService(t, client)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, err := range svc.Chat(context.Background(), ChatRequest{Message: "hi", Username: "alice", SessionID: "shared"}) {
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	history, err := svc.History(context.Background(), "alice", "shared")
	require.NoError(t, err)
	assert.Len(t, history, 8)
}

func TestServicePreferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := llmtest.NewScripted("Answer: first")
	svc, _ := newTestService(t, client)

	prefs, err := svc.Preferences(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, prompts.DefaultPersona, prefs.Persona)
	assert.Equal(t, prompts.DefaultStyle, prefs.PromptStyle)
	assert.Equal(t, llm.DefaultModel, prefs.Model)

	updated, err := svc.SetPreferences(ctx, "alice", "", domain.Preferences{
		Persona:     "drill_sergeant",
		PromptStyle: "few_shot",
		Model:       "gemini-1.5-pro",
		Temperature: 1.5,
		TopP:        0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "drill_sergeant", updated.Persona)
	assert.Equal(t, "few_shot", updated.PromptStyle)
	assert.Equal(t, "gemini-1.5-pro", updated.Model)
	assert.InDelta(t, 1.0, updated.Temperature, 1e-9)
	assert.InDelta(t, 0.5, updated.TopP, 1e-9)
	assert.Equal(t, llm.DefaultMaxTokens, updated.MaxTokens)

	_, err = svc.SetPreferences(ctx, "alice", "", domain.Preferences{Persona: "pirate"})
	assert.ErrorIs(t, err, ErrInvalidPreference)
	_, err = svc.SetPreferences(ctx, "alice", "", domain.Preferences{Model: "gpt-4"})
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = collect(t, svc, ChatRequest{Message: "hello", Username: "alice"})
	require.NoError(t, err)
	require.Len(t, client.Calls(), 1)
	assert.Contains(t, client.Calls()[0].System, "DRILL SERGEANT MODE")

	require.NoError(t, svc.ResetSession(ctx, "alice", ""))
	history, err := svc.History(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, history)

	kept, err := svc.Preferences(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "drill_sergeant", kept.Persona)
}

func TestServiceLogsInteractions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all.ndjson")
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:       true,
		Dir:           dir,
		GlobalEnabled: true,
		GlobalPath:    global,
		QueueSize:     16,
	}, slog.Default())
	require.NoError(t, err)

	client := llmtest.NewScripted("Thought: check\nAction: view_bookings()", "Answer: None yet.")
	svc, _ := newTestService(t, client, WithConversationLogger(logger))

	_, err = collect(t, svc, ChatRequest{Message: "my bookings", Username: "alice", SessionID: "s1"})
	require.NoError(t, err)
	svc.Close()

	stats, err := ReadStatsFile(global)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalInteractions)
	assert.Equal(t, 1, stats.UniqueUsers)
	assert.Equal(t, map[string]int{prompts.DefaultPersona: 1}, stats.Personas)
	assert.Equal(t, map[string]int{"view_bookings": 1}, stats.ToolCalls)
	assert.InDelta(t, 2.0, stats.AvgIterations, 1e-9)

	line := waitForLogLine(t, filepath.Join(dir, "alice", "s1.ndjson"))
	assert.Contains(t, line, "chat_assistant_message")
}
