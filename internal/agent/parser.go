package agent

import (
	"regexp"
	"strings"

	"github.com/ashureev/fitfusion/internal/tools"
)

// Step is the parsed shape of one model reply: Empty, Thought, Action or Answer.
type Step interface {
	isStep()
}

// Empty means the reply carried no recognised marker.
type Empty struct{}

// Thought is a reply with reasoning but neither an action nor an answer.
type Thought struct {
	Text string
}

// Action is a tool invocation request.
type Action struct {
	Thought string
	Name    string
	Params  tools.Args
}

// Answer is a final reply to the user.
type Answer struct {
	Thought string
	Text    string
}

func (Empty) isStep()   {}
func (Thought) isStep() {}
func (Action) isStep()  {}
func (Answer) isStep()  {}

var (
	markerPattern     = regexp.MustCompile(`(?i)\b(thought|action|answer)\s*:`)
	actionHeadPattern = regexp.MustCompile(`^[\s*` + "`" + `]*(\w+)\s*\(`)
)

type marker struct {
	kind       string
	start, end int
}

func findMarkers(text string) []marker {
	locs := markerPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]marker, 0, len(locs))
	for _, loc := range locs {
		out = append(out, marker{
			kind:  strings.ToLower(text[loc[2]:loc[3]]),
			start: loc[0],
			end:   loc[1],
		})
	}
	return out
}

// Parse extracts the step from a model reply. Markers are case-insensitive
// and their spans may cross lines. An Answer wins over an Action; a Thought is
// extracted independently and carried on both.
func Parse(text string) Step {
	marks := findMarkers(text)
	thought := thoughtSpan(text, marks)

	for _, m := range marks {
		if m.kind != "answer" {
			continue
		}
		if ans := strings.TrimSpace(text[m.end:]); ans != "" {
			return Answer{Thought: thought, Text: ans}
		}
		break
	}

	for _, m := range marks {
		if m.kind != "action" {
			continue
		}
		if name, args, ok := actionCall(text[m.end:]); ok {
			return Action{Thought: thought, Name: name, Params: ParseArgs(args)}
		}
		break
	}

	if thought != "" {
		return Thought{Text: thought}
	}
	return Empty{}
}

// thoughtSpan returns the text between the first Thought marker and the next
// Action or Answer marker.
func thoughtSpan(text string, marks []marker) string {
	for i, m := range marks {
		if m.kind != "thought" {
			continue
		}
		end := len(text)
		for _, next := range marks[i+1:] {
			if next.kind != "thought" {
				end = next.start
				break
			}
		}
		return strings.TrimSpace(text[m.end:end])
	}
	return ""
}

// actionCall reads `name(args)` from the start of s. The closing parenthesis
// is matched outside quotes; without one there is no action.
func actionCall(s string) (name, args string, ok bool) {
	loc := actionHeadPattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", "", false
	}
	name = s[loc[2]:loc[3]]
	open := loc[1]

	depth := 1
	var quote rune
	for i, r := range s[open:] {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth == 0 {
				return name, s[open : open+i], true
			}
		}
	}
	return "", "", false
}
