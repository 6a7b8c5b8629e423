package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/fitfusion/internal/llm"
	"github.com/ashureev/fitfusion/internal/metrics"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/tools"
)

// ToolExecutor runs decoded tool calls on behalf of a member.
type ToolExecutor interface {
	Execute(ctx context.Context, caller string, call tools.Call) tools.Result
}

// EventType labels a step reported while a turn runs.
type EventType string

const (
	EventThought     EventType = "thought"
	EventAction      EventType = "action"
	EventObservation EventType = "observation"
	EventAnswer      EventType = "answer"
)

// Event is a progress report from the reasoning loop.
type Event struct {
	Type      EventType  `json:"type"`
	Iteration int        `json:"iteration"`
	Content   string     `json:"content,omitempty"`
	Tool      string     `json:"tool,omitempty"`
	Args      tools.Args `json:"args,omitempty"`
}

// Turn is the input of one loop run.
type Turn struct {
	Client        llm.Client
	System        string
	History       []Message // ends with the new user message
	CurrentUser   string
	MaxIterations int
	Observer      func(Event)
}

// Loop drives reason, act and observe cycles until an answer or the
// iteration cap.
type Loop struct {
	catalog *prompts.Catalog
	tools   ToolExecutor
	now     func() time.Time
}

// NewLoop creates a reasoning loop.
func NewLoop(catalog *prompts.Catalog, executor ToolExecutor, now func() time.Time) *Loop {
	if now == nil {
		now = time.Now
	}
	return &Loop{catalog: catalog, tools: executor, now: now}
}

// Run executes one turn to completion and inspects the final answer.
func (l *Loop) Run(ctx context.Context, t Turn) (State, []Warning) {
	s := NewState(t.History, t.CurrentUser, t.MaxIterations)

	for s.Phase != PhaseDone {
		switch s.Phase {
		case PhaseReason:
			s = l.reason(ctx, t, s)
		case PhaseAct:
			s = l.act(ctx, t, s)
		case PhaseObserve:
			s = observe(s)
		case PhaseRespond:
			s = l.respond(ctx, t, s)
		default:
			slog.Error("reasoning loop reached an unknown phase", "phase", s.Phase)
			s.FinalAnswer = errorApology
			s.Phase = PhaseDone
		}
	}

	emit(t, Event{Type: EventAnswer, Iteration: s.Iteration, Content: s.FinalAnswer})

	metrics.LoopIterations.Observe(float64(s.Iteration))
	metrics.LoopOutcomes.WithLabelValues(string(s.Outcome)).Inc()

	warnings := Inspect(s.FinalAnswer, s.Observation, s.LastTool)
	reportWarnings(s.CurrentUser, warnings)
	return s, warnings
}

func emit(t Turn, ev Event) {
	if t.Observer != nil {
		t.Observer(ev)
	}
}

func (l *Loop) turnInput(s State) prompts.TurnInput {
	history := make([]prompts.Message, len(s.Messages))
	for i, m := range s.Messages {
		history[i] = prompts.Message{Role: m.Role, Content: m.Content}
	}
	return prompts.TurnInput{
		History:     history,
		Observation: s.Observation,
		CurrentUser: s.CurrentUser,
		Question:    s.Question(),
		Now:         l.now(),
	}
}

// reason runs one model pass and parses the reply.
func (l *Loop) reason(ctx context.Context, t Turn, s State) State {
	if s.capped() {
		slog.Warn("iteration cap reached", "user", s.CurrentUser, "iterations", s.Iteration)
		s.FinalAnswer = capApology
		s.Outcome = OutcomeCapped
		s.Phase = PhaseRespond
		return s
	}

	s.Thought, s.Action, s.ActionInput, s.FinalAnswer = "", "", nil, ""

	prompt, err := l.catalog.Reason(l.turnInput(s))
	if err != nil {
		slog.Error("failed to render reasoning prompt", "error", err)
		return failTurn(s)
	}

	reply, err := t.Client.Generate(ctx, prompt, t.System)
	s.Iteration++
	if err != nil {
		slog.Error("llm call failed", "user", s.CurrentUser, "iteration", s.Iteration, "error", err)
		return failTurn(s)
	}
	slog.Debug("model reply", "iteration", s.Iteration, "reply", reply)

	switch step := Parse(reply).(type) {
	case Answer:
		s.Thought = step.Thought
		s.FinalAnswer = step.Text
		s.Outcome = OutcomeAnswered
	case Action:
		s.Thought = step.Thought
		s.Action = step.Name
		s.ActionInput = step.Params
	case Thought:
		s.Thought = step.Text
	case Empty:
		slog.Debug("model reply had no markers", "iteration", s.Iteration)
	}
	if s.Thought != "" {
		emit(t, Event{Type: EventThought, Iteration: s.Iteration, Content: s.Thought})
	}

	s.Phase = route(s)
	if s.Phase == PhaseRespond && s.FinalAnswer == "" {
		return closeOnThought(s)
	}
	return s
}

// closeOnThought handles a last pass that produced only a thought. When a
// tool ran during the turn respond synthesises an answer from its result;
// otherwise the user gets the fallback apology.
func closeOnThought(s State) State {
	if s.LastTool == "" {
		s.FinalAnswer = capApology
		s.Outcome = OutcomeCapped
	}
	s.Phase = PhaseRespond
	return s
}

func failTurn(s State) State {
	s.FinalAnswer = errorApology
	s.Outcome = OutcomeLLMError
	s.Phase = PhaseRespond
	return s
}

// act resolves, maps, decodes and executes the requested tool.
func (l *Loop) act(ctx context.Context, t Turn, s State) State {
	s.Phase = PhaseObserve

	name, ok := tools.ParseName(s.Action)
	if !ok {
		slog.Warn("model requested an unknown tool", "tool", s.Action)
		s.Observation = unknownToolObservation(s.Action)
		emit(t, Event{Type: EventObservation, Iteration: s.Iteration, Tool: s.Action, Content: s.Observation})
		return s
	}

	mapped, overflow := MapParams(name, s.ActionInput, s.CurrentUser)
	if len(overflow) > 0 {
		slog.Warn("dropping extra positional arguments", "tool", name, "dropped", overflow)
	}
	s.ActionInput = mapped
	emit(t, Event{Type: EventAction, Iteration: s.Iteration, Tool: string(name), Args: mapped})

	call, err := tools.Decode(name, mapped)
	if err != nil {
		var de *tools.DecodeError
		if !errors.As(err, &de) {
			de = &tools.DecodeError{Tool: name, Reason: err.Error()}
		}
		s.Observation = decodeErrorObservation(de)
		emit(t, Event{Type: EventObservation, Iteration: s.Iteration, Tool: string(name), Content: s.Observation})
		return s
	}

	res := l.tools.Execute(ctx, s.CurrentUser, call)
	s = s.withToolUsed(name)
	s.Observation = FormatObservation(name, res)
	emit(t, Event{Type: EventObservation, Iteration: s.Iteration, Tool: string(name), Content: s.Observation})
	return s
}

// observe is a pass-through back to reason.
func observe(s State) State {
	s.Phase = PhaseReason
	return s
}

// respond synthesises an answer when the turn has none yet.
func (l *Loop) respond(ctx context.Context, t Turn, s State) State {
	s.Phase = PhaseDone
	if s.FinalAnswer != "" {
		return s
	}

	prompt, err := l.catalog.Synthesis(l.turnInput(s))
	if err != nil {
		slog.Error("failed to render synthesis prompt", "error", err)
		s.FinalAnswer, s.Outcome = errorApology, OutcomeLLMError
		return s
	}
	reply, err := t.Client.Generate(ctx, prompt, t.System)
	if err != nil {
		slog.Error("llm synthesis call failed", "user", s.CurrentUser, "error", err)
		s.FinalAnswer, s.Outcome = errorApology, OutcomeLLMError
		return s
	}

	s.FinalAnswer = synthesizedAnswer(reply)
	s.Outcome = OutcomeSynthesized
	if s.FinalAnswer == "" {
		s.FinalAnswer, s.Outcome = capApology, OutcomeCapped
	}
	return s
}

// synthesizedAnswer takes the text after an Answer marker, or the whole reply.
func synthesizedAnswer(reply string) string {
	if a, ok := Parse(reply).(Answer); ok {
		return a.Text
	}
	return strings.TrimSpace(reply)
}
