package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ashureev/fitfusion/internal/tools"
)

// FormatObservation renders a tool result for the next reasoning prompt.
// Success and error are tagged explicitly and list results carry a count.
func FormatObservation(name tools.Name, res tools.Result) string {
	if !res.OK() {
		return "❌ ERROR: " + res.Message
	}

	if list, ok := res.Payload.(tools.BookingList); ok && name == tools.ViewBookings {
		if list.Count == 0 {
			return fmt.Sprintf("No bookings found for user %s", list.Username)
		}
		data, err := json.MarshalIndent(list.Bookings, "", "  ")
		if err != nil {
			slog.Warn("failed to marshal bookings observation", "error", err)
			return "❌ ERROR: could not read bookings"
		}
		return fmt.Sprintf("✅ FOUND %d BOOKINGS:\n%s\n\nYou MUST list these bookings to the user!", list.Count, data)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		slog.Warn("failed to marshal tool observation", "tool", name, "error", err)
		return "❌ ERROR: could not read tool result"
	}
	return "✅ SUCCESS:\n" + string(data)
}

func unknownToolObservation(name string) string {
	return fmt.Sprintf("Error: Unknown tool '%s'. Available tools: %s", name, tools.NameList())
}

func decodeErrorObservation(err *tools.DecodeError) string {
	return fmt.Sprintf("❌ ERROR: Missing or incorrect parameters for %s: %s", err.Tool, err.Reason)
}
