package agent

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ashureev/fitfusion/internal/metrics"
	"github.com/ashureev/fitfusion/internal/tools"
)

// Guard checks are heuristics over free text. Warnings are advisory only; the
// answer is never blocked or rewritten.
const (
	CheckBookingID    = "booking_id"
	CheckConfirmation = "confirmation"
)

var bookingIDPattern = regexp.MustCompile(`(?i)booking\s+id[:#\s]+(\d+)`)

var confirmationPhrases = []string{
	"booking confirmed",
	"you're all set",
	"booked successfully",
	"reservation confirmed",
	"you are all set",
}

// Warning is a potential hallucination in a final answer.
type Warning struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// Inspect flags booking IDs absent from the last observation and booking
// confirmations when the last executed tool was not book_session.
func Inspect(answer, lastObservation string, lastTool tools.Name) []Warning {
	var warnings []Warning

	for _, m := range bookingIDPattern.FindAllStringSubmatch(answer, -1) {
		id := m[1]
		if !strings.Contains(lastObservation, id) {
			warnings = append(warnings, Warning{
				Check:  CheckBookingID,
				Detail: fmt.Sprintf("booking ID %s not present in the last tool result", id),
			})
		}
	}

	lower := strings.ToLower(answer)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) && lastTool != tools.BookSession {
			warnings = append(warnings, Warning{
				Check:  CheckConfirmation,
				Detail: fmt.Sprintf("answer says %q but the last tool was %q", phrase, lastTool),
			})
			break
		}
	}
	return warnings
}

func reportWarnings(user string, warnings []Warning) {
	for _, w := range warnings {
		slog.Warn("possible hallucination in answer", "user", user, "check", w.Check, "detail", w.Detail)
		metrics.GuardWarnings.WithLabelValues(w.Check).Inc()
	}
}
