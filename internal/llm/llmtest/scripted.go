// Package llmtest provides deterministic llm clients for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/fitfusion/internal/llm"
)

// Reply configures one scripted completion.
type Reply struct {
	Text string
	Err  error
}

// Call records one Generate invocation.
type Call struct {
	Prompt string
	System string
}

// Scripted replays a fixed sequence of replies and records every call.
type Scripted struct {
	mu      sync.Mutex
	index   int
	replies []Reply
	calls   []Call
}

// NewScripted creates a client that answers with texts in order.
func NewScripted(texts ...string) *Scripted {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return &Scripted{replies: replies}
}

// NewScriptedReplies creates a client from replies that may include errors.
func NewScriptedReplies(replies ...Reply) *Scripted {
	cloned := make([]Reply, len(replies))
	copy(cloned, replies)
	return &Scripted{replies: cloned}
}

var (
	_ llm.Client   = (*Scripted)(nil)
	_ llm.Provider = (*Scripted)(nil)
)

// Model implements llm.Provider; settings are ignored.
func (s *Scripted) Model(llm.Settings) llm.Client { return s }

// Generate implements llm.Client.
func (s *Scripted) Generate(_ context.Context, prompt, system string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Prompt: prompt, System: system})
	if s.index >= len(s.replies) {
		return "", fmt.Errorf("script exhausted at step %d", s.index+1)
	}
	current := s.replies[s.index]
	s.index++
	return current.Text, current.Err
}

// Calls returns a copy of the recorded calls.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Func adapts a function into an llm.Client and llm.Provider.
type Func func(ctx context.Context, prompt, system string) (string, error)

// Generate implements llm.Client.
func (f Func) Generate(ctx context.Context, prompt, system string) (string, error) {
	return f(ctx, prompt, system)
}

// Model implements llm.Provider.
func (f Func) Model(llm.Settings) llm.Client { return f }
