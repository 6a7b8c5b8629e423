package tools

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of a tool execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is a tool outcome: a success with a payload or an error message.
type Result struct {
	Status  Status
	Message string
	Payload any
}

// Success builds a successful result.
func Success(message string, payload any) Result {
	return Result{Status: StatusSuccess, Message: message, Payload: payload}
}

// Failure builds an error result.
func Failure(format string, a ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, a...)}
}

// OK reports whether the tool succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// MarshalJSON flattens the payload alongside status and message.
func (r Result) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal tool payload: %w", err)
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("tool payload must encode as an object: %w", err)
		}
	}
	out["status"] = r.Status
	if r.Message != "" {
		out["message"] = r.Message
	}
	return json.Marshal(out)
}
