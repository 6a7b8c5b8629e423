package tools

import (
	"fmt"
	"strings"

	"github.com/ashureev/fitfusion/internal/domain"
)

func quoted(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = fmt.Sprintf("%q", v)
	}
	switch len(q) {
	case 0:
		return ""
	case 1:
		return q[0]
	}
	return strings.Join(q[:len(q)-1], ", ") + ", or " + q[len(q)-1]
}

func serviceNames() []string {
	out := make([]string, len(domain.ServiceTypes))
	for i, s := range domain.ServiceTypes {
		out[i] = string(s)
	}
	return out
}

// Describe renders the tool catalogue shown to the model in the system prompt.
func Describe() string {
	var sb strings.Builder
	sb.WriteString("Available Tools:\n\n")
	fmt.Fprintf(&sb, `1. check_availability(service_type, date)
   - Check available time slots for services
   - service_type: %s
   - date: Date in YYYY-MM-DD format
   - Returns: List of available time slots

2. book_session(username, service_type, date_time, notes)
   - Create a booking record
   - username: User making the booking
   - service_type: Type of service
   - date_time: Date and time in "YYYY-MM-DD HH:MM" format ("tomorrow at 2pm" also works)
   - notes: Optional notes (default: "")
   - Returns: Confirmation with booking ID

3. view_bookings(username)
   - Retrieve user's bookings
   - username: User to query bookings for
   - Returns: List of all bookings with details

4. cancel_booking(booking_id)
   - Cancel a booking
   - booking_id: ID of the booking to cancel
   - Returns: Cancellation confirmation

5. submit_feedback(username, feedback_text, rating)
   - Store user feedback
   - username: User submitting feedback
   - feedback_text: Feedback content
   - rating: Rating from %d-%d
   - Returns: Success confirmation

6. get_fitness_plan(fitness_level, goals, equipment_available, duration)
   - Generate workout routines based on goals
   - fitness_level: %s
   - goals: %s
   - equipment_available: %s
   - duration: %s
   - Returns: Structured workout plan

7. get_nutrition_advice(dietary_preferences, fitness_goals, restrictions)
   - Provide meal recommendations
   - dietary_preferences: %s
   - fitness_goals: %s
   - restrictions: Comma-separated allergies/restrictions or "none"
   - Returns: Meal plan suggestions

8. get_user_context(username)
   - Fetch user history and preferences
   - username: User to get context for
   - Returns: User profile summary with bookings and feedback
`,
		quoted(serviceNames()),
		domain.MinRating, domain.MaxRating,
		quoted(fitnessLevels), quoted(workoutGoals), quoted(equipment), quoted(durations),
		quoted(diets), quoted(nutritionGoals),
	)
	return sb.String()
}
