package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Stats summarises the interaction log.
type Stats struct {
	TotalInteractions int            `json:"total_interactions"`
	UniqueUsers       int            `json:"unique_users"`
	Personas          map[string]int `json:"personas"`
	Models            map[string]int `json:"models"`
	PromptStyles      map[string]int `json:"prompt_styles"`
	Outcomes          map[string]int `json:"outcomes"`
	ToolCalls         map[string]int `json:"tool_calls"`
	AvgIterations     float64        `json:"avg_iterations"`
	GuardWarnings     int            `json:"guard_warnings"`
	FirstInteraction  time.Time      `json:"first_interaction,omitzero"`
	LastInteraction   time.Time      `json:"last_interaction,omitzero"`
	MalformedLines    int            `json:"malformed_lines,omitempty"`
}

// ReadStatsFile summarises the global NDJSON interaction log at path.
// A missing file yields empty statistics.
func ReadStatsFile(path string) (Stats, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return newStats(), nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()
	return ReadStats(f)
}

func newStats() Stats {
	return Stats{
		Personas:     map[string]int{},
		Models:       map[string]int{},
		PromptStyles: map[string]int{},
		Outcomes:     map[string]int{},
		ToolCalls:    map[string]int{},
	}
}

// ReadStats summarises assistant replies from an NDJSON stream. Malformed
// lines are counted and skipped.
func ReadStats(r io.Reader) (Stats, error) {
	stats := newStats()
	users := map[string]struct{}{}
	iterations := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev ConversationLogEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			stats.MalformedLines++
			continue
		}
		if ev.EventType != "chat_assistant_message" {
			continue
		}

		stats.TotalInteractions++
		users[ev.UserID] = struct{}{}
		if ts, err := time.Parse(time.RFC3339Nano, ev.Timestamp); err == nil {
			if stats.FirstInteraction.IsZero() || ts.Before(stats.FirstInteraction) {
				stats.FirstInteraction = ts
			}
			if ts.After(stats.LastInteraction) {
				stats.LastInteraction = ts
			}
		}

		countString(stats.Personas, ev.Meta["persona"])
		countString(stats.Models, ev.Meta["model"])
		countString(stats.PromptStyles, ev.Meta["prompt_style"])
		countString(stats.Outcomes, ev.Meta["outcome"])
		if list, ok := ev.Meta["tools_used"].([]any); ok {
			for _, name := range list {
				countString(stats.ToolCalls, name)
			}
		}
		// JSON numbers decode as float64.
		if n, ok := ev.Meta["iterations"].(float64); ok {
			iterations += int(n)
		}
		if n, ok := ev.Meta["warnings"].(float64); ok {
			stats.GuardWarnings += int(n)
		}
	}
	if err := scanner.Err(); err != nil {
		return Stats{}, fmt.Errorf("read interaction log: %w", err)
	}

	stats.UniqueUsers = len(users)
	if stats.TotalInteractions > 0 {
		stats.AvgIterations = float64(iterations) / float64(stats.TotalInteractions)
	}
	return stats, nil
}

func countString(into map[string]int, v any) {
	if s, ok := v.(string); ok && s != "" {
		into[s]++
	}
}
