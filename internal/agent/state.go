package agent

import (
	"slices"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/tools"
)

// Message is one entry of the conversation history.
type Message = domain.StoredMessage

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Phase is a node of the reasoning state machine.
type Phase string

const (
	PhaseReason  Phase = "reason"
	PhaseAct     Phase = "act"
	PhaseObserve Phase = "observe"
	PhaseRespond Phase = "respond"
	PhaseDone    Phase = "done"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeSynthesized Outcome = "synthesized"
	OutcomeCapped      Outcome = "capped"
	OutcomeLLMError    Outcome = "llm_error"
)

// DefaultMaxIterations bounds the reasoning passes of one turn.
const DefaultMaxIterations = 5

const (
	capApology   = "I apologize, but I'm having trouble processing this request. Could you rephrase it?"
	errorApology = "I apologize, but I encountered an error. Please try again."
)

// State is the conversation state of one turn. Transitions take a State and
// return a new one; slices are copied before they are extended.
type State struct {
	Messages    []Message
	CurrentUser string

	Thought     string
	Action      string
	ActionInput tools.Args
	Observation string
	FinalAnswer string

	LastTool  tools.Name
	ToolsUsed []string

	Iteration     int
	MaxIterations int
	Phase         Phase
	Outcome       Outcome
}

// NewState starts a turn at the reason phase.
func NewState(history []Message, currentUser string, maxIterations int) State {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return State{
		Messages:      slices.Clone(history),
		CurrentUser:   currentUser,
		MaxIterations: maxIterations,
		Phase:         PhaseReason,
	}
}

// Question returns the latest user message.
func (s State) Question() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// capped reports whether the iteration budget is spent.
func (s State) capped() bool {
	return s.Iteration >= s.MaxIterations
}

// route picks the phase that follows a reason pass.
func route(s State) Phase {
	switch {
	case s.FinalAnswer != "":
		return PhaseRespond
	case s.Action != "":
		return PhaseAct
	case s.capped():
		return PhaseRespond
	default:
		return PhaseReason
	}
}

// withToolUsed records an executed tool.
func (s State) withToolUsed(name tools.Name) State {
	s.ToolsUsed = append(slices.Clone(s.ToolsUsed), string(name))
	s.LastTool = name
	return s
}
