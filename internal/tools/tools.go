// Package tools implements the fixed set of domain tools the assistant can
// invoke: availability, bookings, feedback, workout plans, nutrition advice
// and member context.
package tools

import (
	"slices"
	"strings"
)

// Name identifies one of the eight tools.
type Name string

const (
	CheckAvailability  Name = "check_availability"
	BookSession        Name = "book_session"
	ViewBookings       Name = "view_bookings"
	CancelBooking      Name = "cancel_booking"
	SubmitFeedback     Name = "submit_feedback"
	GetFitnessPlan     Name = "get_fitness_plan"
	GetNutritionAdvice Name = "get_nutrition_advice"
	GetUserContext     Name = "get_user_context"
)

// Names lists the tools in the order they are described to the model.
var Names = []Name{
	CheckAvailability,
	BookSession,
	ViewBookings,
	CancelBooking,
	SubmitFeedback,
	GetFitnessPlan,
	GetNutritionAdvice,
	GetUserContext,
}

// ParseName resolves a tool name as written by the model.
func ParseName(s string) (Name, bool) {
	n := Name(strings.TrimSpace(s))
	if slices.Contains(Names, n) {
		return n, true
	}
	return "", false
}

// NameList joins all tool names for error messages.
func NameList() string {
	parts := make([]string, len(Names))
	for i, n := range Names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// Args are coerced call arguments keyed by parameter name.
// Values are bool, int64, float64 or string.
type Args map[string]any

// schemas lists each tool's parameters in positional order.
var schemas = map[Name][]string{
	ViewBookings:       {"username"},
	GetUserContext:     {"username"},
	CheckAvailability:  {"service_type", "date"},
	BookSession:        {"username", "service_type", "date_time", "notes"},
	CancelBooking:      {"booking_id"},
	SubmitFeedback:     {"username", "feedback_text", "rating"},
	GetFitnessPlan:     {"fitness_level", "goals", "equipment_available", "duration"},
	GetNutritionAdvice: {"dietary_preferences", "fitness_goals", "restrictions"},
}

// Schema returns the ordered parameter names for a tool.
func Schema(n Name) ([]string, bool) {
	s, ok := schemas[n]
	return s, ok
}

// Call is a decoded, strongly typed tool invocation.
// The set of implementations is closed; see Decode.
type Call interface {
	Tool() Name
	isCall()
}

// CheckAvailabilityCall lists free slots for a service on a date.
type CheckAvailabilityCall struct {
	ServiceType string
	Date        string
}

// BookSessionCall reserves a slot.
type BookSessionCall struct {
	Username    string
	ServiceType string
	DateTime    string
	Notes       string
}

// ViewBookingsCall lists a member's bookings.
type ViewBookingsCall struct {
	Username string
}

// CancelBookingCall cancels a booking by ID.
type CancelBookingCall struct {
	BookingID int64
}

// SubmitFeedbackCall records a rating and comment.
type SubmitFeedbackCall struct {
	Username     string
	FeedbackText string
	Rating       int
}

// GetFitnessPlanCall requests a workout plan.
type GetFitnessPlanCall struct {
	FitnessLevel       string
	Goals              string
	EquipmentAvailable string
	Duration           string
}

// GetNutritionAdviceCall requests a meal plan.
type GetNutritionAdviceCall struct {
	DietaryPreferences string
	FitnessGoals       string
	Restrictions       string
}

// GetUserContextCall requests a member profile summary.
type GetUserContextCall struct {
	Username string
}

func (CheckAvailabilityCall) Tool() Name  { return CheckAvailability }
func (BookSessionCall) Tool() Name        { return BookSession }
func (ViewBookingsCall) Tool() Name       { return ViewBookings }
func (CancelBookingCall) Tool() Name      { return CancelBooking }
func (SubmitFeedbackCall) Tool() Name     { return SubmitFeedback }
func (GetFitnessPlanCall) Tool() Name     { return GetFitnessPlan }
func (GetNutritionAdviceCall) Tool() Name { return GetNutritionAdvice }
func (GetUserContextCall) Tool() Name     { return GetUserContext }

func (CheckAvailabilityCall) isCall()  {}
func (BookSessionCall) isCall()        {}
func (ViewBookingsCall) isCall()       {}
func (CancelBookingCall) isCall()      {}
func (SubmitFeedbackCall) isCall()     {}
func (GetFitnessPlanCall) isCall()     {}
func (GetNutritionAdviceCall) isCall() {}
func (GetUserContextCall) isCall()     {}
