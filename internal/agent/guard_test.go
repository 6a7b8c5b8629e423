package agent

import (
	"testing"

	"github.com/ashureev/fitfusion/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	bookedObs := "✅ SUCCESS:\n{\n  \"booking_id\": 42,\n  \"message\": \"Booking confirmed! Booking ID: 42\"\n}"

	tests := []struct {
		name        string
		answer      string
		observation string
		lastTool    tools.Name
		wantChecks  []string
	}{
		{
			name:        "grounded confirmation",
			answer:      "Booking confirmed! Your booking ID: 42.",
			observation: bookedObs,
			lastTool:    tools.BookSession,
		},
		{
			name:        "invented booking id",
			answer:      "All done, booking ID 99.",
			observation: bookedObs,
			lastTool:    tools.BookSession,
			wantChecks:  []string{CheckBookingID},
		},
		{
			name:        "confirmation without booking",
			answer:      "You're all set for tomorrow!",
			observation: "No bookings found for user alice",
			lastTool:    tools.ViewBookings,
			wantChecks:  []string{CheckConfirmation},
		},
		{
			name:       "confirmation with no tool at all",
			answer:     "Booking confirmed, see you there. Booking ID: 5",
			wantChecks: []string{CheckBookingID, CheckConfirmation},
		},
		{
			name:   "plain answer",
			answer: "Try a 30 minute beginner cardio session.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			warnings := Inspect(tt.answer, tt.observation, tt.lastTool)
			var checks []string
			for _, w := range warnings {
				require.NotEmpty(t, w.Detail)
				checks = append(checks, w.Check)
			}
			assert.Equal(t, tt.wantChecks, checks)
		})
	}
}
