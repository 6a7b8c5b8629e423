package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/metrics"
	"github.com/ashureev/fitfusion/internal/store"
)

// Store is the persistence surface the tools need.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateBooking(ctx context.Context, username string, service domain.ServiceType, at time.Time, notes string) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, username string) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*domain.Booking, error)
	AvailableSlots(ctx context.Context, service domain.ServiceType, date time.Time) ([]string, error)
	SubmitFeedback(ctx context.Context, username, text string, rating int) (*domain.Feedback, error)
	UserContext(ctx context.Context, username string) (*domain.UserContext, error)
}

// Registry executes tool calls against a store.
type Registry struct {
	store Store
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for relative dates and the
// past-booking check.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a tool registry.
func NewRegistry(s Store, opts ...Option) *Registry {
	r := &Registry{store: s, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Availability is the check_availability payload.
type Availability struct {
	ServiceType    string   `json:"service_type"`
	Date           string   `json:"date"`
	AvailableSlots []string `json:"available_slots"`
	Count          int      `json:"count"`
}

// BookingDetails echoes what was booked.
type BookingDetails struct {
	Username    string `json:"username"`
	ServiceType string `json:"service_type"`
	DateTime    string `json:"date_time"`
	Notes       string `json:"notes"`
}

// BookingConfirmation is the book_session payload.
type BookingConfirmation struct {
	BookingID      int64          `json:"booking_id"`
	BookingDetails BookingDetails `json:"booking_details"`
}

// BookingList is the view_bookings payload.
type BookingList struct {
	Username string           `json:"username"`
	Bookings []domain.Booking `json:"bookings"`
	Count    int              `json:"count"`
}

// Cancellation is the cancel_booking payload.
type Cancellation struct {
	BookingID int64 `json:"booking_id"`
}

// FeedbackReceipt is the submit_feedback payload.
type FeedbackReceipt struct {
	FeedbackID int64 `json:"feedback_id"`
	Rating     int   `json:"rating"`
}

// MemberSummary is the get_user_context payload.
type MemberSummary struct {
	Username       string           `json:"username"`
	MemberSince    string           `json:"member_since"`
	TotalBookings  int              `json:"total_bookings"`
	ActiveBookings int              `json:"active_bookings"`
	RecentBookings []domain.Booking `json:"recent_bookings"`
	FeedbackCount  int              `json:"feedback_count"`
}

const recentBookingLimit = 5

// Execute runs a decoded call on behalf of caller, the signed-in member.
// An empty caller skips ownership checks.
func (r *Registry) Execute(ctx context.Context, caller string, call Call) Result {
	start := time.Now()
	var res Result
	switch c := call.(type) {
	case CheckAvailabilityCall:
		res = r.checkAvailability(ctx, c)
	case BookSessionCall:
		res = r.bookSession(ctx, caller, c)
	case ViewBookingsCall:
		res = r.viewBookings(ctx, caller, c)
	case CancelBookingCall:
		res = r.cancelBooking(ctx, caller, c)
	case SubmitFeedbackCall:
		res = r.submitFeedback(ctx, caller, c)
	case GetFitnessPlanCall:
		res = fitnessPlan(c)
	case GetNutritionAdviceCall:
		res = nutritionAdvice(c)
	case GetUserContextCall:
		res = r.userContext(ctx, caller, c)
	default:
		res = Failure("Unsupported tool call %T", call)
	}

	metrics.ToolCalls.WithLabelValues(string(call.Tool()), string(res.Status)).Inc()
	metrics.ToolDuration.WithLabelValues(string(call.Tool())).Observe(time.Since(start).Seconds())
	return res
}

func choices(options []string) string {
	return strings.Join(options, ", ")
}

func parseService(raw string) (domain.ServiceType, bool) {
	s := domain.ServiceType(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func invalidService() Result {
	return Failure("Invalid service type. Choose from: %s", choices(serviceNames()))
}

// denied reports whether caller may act on username's account.
func denied(caller, username string) (Result, bool) {
	if caller == "" || strings.EqualFold(caller, username) {
		return Result{}, false
	}
	return Failure("You can only access your own account. You are signed in as '%s'.", caller), true
}

func internalFailure(tool Name, err error) Result {
	slog.Error("tool execution failed", "tool", tool, "error", err)
	return Failure("Something went wrong while running %s. Please try again.", tool)
}

func (r *Registry) checkAvailability(ctx context.Context, c CheckAvailabilityCall) Result {
	service, ok := parseService(c.ServiceType)
	if !ok {
		return invalidService()
	}
	date, err := ParseDate(c.Date, r.now())
	if err != nil {
		return Failure("Invalid date format. Use YYYY-MM-DD")
	}

	slots, err := r.store.AvailableSlots(ctx, service, date)
	if err != nil {
		return internalFailure(CheckAvailability, err)
	}
	return Success("", Availability{
		ServiceType:    string(service),
		Date:           date.Format(domain.DateLayout),
		AvailableSlots: slots,
		Count:          len(slots),
	})
}

func (r *Registry) bookSession(ctx context.Context, caller string, c BookSessionCall) Result {
	if res, ok := denied(caller, c.Username); ok {
		return res
	}
	service, ok := parseService(c.ServiceType)
	if !ok {
		return invalidService()
	}

	now := r.now()
	at, err := ParseDateTime(c.DateTime, now)
	if err != nil {
		return Failure("Invalid date-time format. Use YYYY-MM-DD HH:MM")
	}
	if !at.After(now) {
		return Failure("Cannot book sessions in the past")
	}

	booking, err := r.store.CreateBooking(ctx, c.Username, service, at, c.Notes)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return Failure("User '%s' not found. Please sign up first.", c.Username)
	case errors.Is(err, store.ErrSlotTaken):
		return Failure("The %s slot at %s is already booked. Please choose another time.", service, at.Format(domain.DateTimeLayout))
	case err != nil:
		return internalFailure(BookSession, err)
	}

	return Success(fmt.Sprintf("Booking confirmed! Booking ID: %d", booking.ID), BookingConfirmation{
		BookingID: booking.ID,
		BookingDetails: BookingDetails{
			Username:    booking.Username,
			ServiceType: string(booking.ServiceType),
			DateTime:    booking.When(),
			Notes:       booking.Notes,
		},
	})
}

func (r *Registry) viewBookings(ctx context.Context, caller string, c ViewBookingsCall) Result {
	if res, ok := denied(caller, c.Username); ok {
		return res
	}
	user, err := r.store.GetUserByUsername(ctx, c.Username)
	if err != nil {
		return internalFailure(ViewBookings, err)
	}
	if user == nil {
		return Failure("User '%s' not found. Please sign up first.", c.Username)
	}

	bookings, err := r.store.ListBookings(ctx, c.Username)
	if err != nil {
		return internalFailure(ViewBookings, err)
	}
	msg := ""
	if len(bookings) == 0 {
		msg = fmt.Sprintf("No bookings found for %s", c.Username)
	}
	return Success(msg, BookingList{Username: c.Username, Bookings: bookings, Count: len(bookings)})
}

func (r *Registry) cancelBooking(ctx context.Context, caller string, c CancelBookingCall) Result {
	notFound := Failure("Booking ID %d not found.", c.BookingID)
	if caller != "" {
		existing, err := r.store.GetBooking(ctx, c.BookingID)
		if err != nil {
			return internalFailure(CancelBooking, err)
		}
		// Another member's booking is indistinguishable from a missing one.
		if existing == nil || !strings.EqualFold(existing.Username, caller) {
			return notFound
		}
	}

	_, err := r.store.CancelBooking(ctx, c.BookingID)
	switch {
	case errors.Is(err, store.ErrBookingNotFound):
		return notFound
	case errors.Is(err, store.ErrAlreadyCancelled):
		return Failure("Booking is already cancelled.")
	case err != nil:
		return internalFailure(CancelBooking, err)
	}
	return Success(fmt.Sprintf("Booking %d has been cancelled successfully.", c.BookingID), Cancellation{BookingID: c.BookingID})
}

func (r *Registry) submitFeedback(ctx context.Context, caller string, c SubmitFeedbackCall) Result {
	if res, ok := denied(caller, c.Username); ok {
		return res
	}
	if !domain.ValidRating(c.Rating) {
		return Failure("Rating must be between %d and %d.", domain.MinRating, domain.MaxRating)
	}
	if strings.TrimSpace(c.FeedbackText) == "" {
		return Failure("Feedback text cannot be empty.")
	}

	fb, err := r.store.SubmitFeedback(ctx, c.Username, c.FeedbackText, c.Rating)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return Failure("User '%s' not found. Please sign up first.", c.Username)
	case errors.Is(err, store.ErrInvalidRating):
		return Failure("Rating must be between %d and %d.", domain.MinRating, domain.MaxRating)
	case err != nil:
		return internalFailure(SubmitFeedback, err)
	}
	return Success("Thank you for your feedback!", FeedbackReceipt{FeedbackID: fb.ID, Rating: fb.Rating})
}

func (r *Registry) userContext(ctx context.Context, caller string, c GetUserContextCall) Result {
	if res, ok := denied(caller, c.Username); ok {
		return res
	}
	uc, err := r.store.UserContext(ctx, c.Username)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return Failure("User '%s' not found. Please sign up first.", c.Username)
	case err != nil:
		return internalFailure(GetUserContext, err)
	}

	recent := uc.Bookings
	if len(recent) > recentBookingLimit {
		recent = recent[:recentBookingLimit]
	}
	return Success("", MemberSummary{
		Username:       uc.User.Username,
		MemberSince:    uc.User.CreatedAt.Format(domain.DateTimeLayout),
		TotalBookings:  uc.TotalBookings,
		ActiveBookings: uc.ActiveBookings,
		RecentBookings: recent,
		FeedbackCount:  len(uc.Feedback),
	})
}

func fitnessPlan(c GetFitnessPlanCall) Result {
	level := strings.ToLower(strings.TrimSpace(c.FitnessLevel))
	goal := strings.ToLower(strings.TrimSpace(c.Goals))
	equip := strings.ToLower(strings.TrimSpace(c.EquipmentAvailable))
	duration := strings.ToLower(strings.TrimSpace(c.Duration))

	switch {
	case !slices.Contains(fitnessLevels, level):
		return Failure("Invalid fitness level. Choose from: %s", choices(fitnessLevels))
	case !slices.Contains(workoutGoals, goal):
		return Failure("Invalid goal. Choose from: %s", choices(workoutGoals))
	case !slices.Contains(equipment, equip):
		return Failure("Invalid equipment option. Choose from: %s", choices(equipment))
	case !slices.Contains(durations, duration):
		return Failure("Invalid duration. Choose from: %s", choices(durations))
	}

	return Success("", FitnessPlan{
		FitnessLevel: level,
		Goals:        goal,
		Equipment:    equip,
		Duration:     duration,
		WorkoutPlan:  buildWorkout(level, goal, equip, duration),
	})
}

func nutritionAdvice(c GetNutritionAdviceCall) Result {
	diet := strings.ToLower(strings.TrimSpace(c.DietaryPreferences))
	goal := strings.ToLower(strings.TrimSpace(c.FitnessGoals))
	restrictions := strings.TrimSpace(c.Restrictions)
	if restrictions == "" {
		restrictions = "none"
	}

	switch {
	case !slices.Contains(diets, diet):
		return Failure("Invalid dietary preference. Choose from: %s", choices(diets))
	case !slices.Contains(nutritionGoals, goal):
		return Failure("Invalid fitness goal. Choose from: %s", choices(nutritionGoals))
	}

	return Success("", NutritionAdvice{
		DietaryPreferences: diet,
		FitnessGoals:       goal,
		Restrictions:       restrictions,
		MealPlan:           buildMealPlan(diet, goal, restrictions),
		Hydration:          hydrationAdvice,
		Supplements:        supplementsFor(goal),
	})
}
