// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("username already exists")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrSlotTaken        = errors.New("time slot is already booked")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)

// SlotHours are the bookable hourly slots of a business day.
var SlotHours = []int{9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

// Repository defines the interface for persisting members, bookings,
// feedback and chat sessions.
type Repository interface {
	// CreateUser registers a new member. Returns ErrUserExists on a duplicate username.
	CreateUser(ctx context.Context, username, email string) (*domain.User, error)

	// GetUserByUsername retrieves a user, or nil if none exists.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// CreateBooking reserves a confirmed slot for the user.
	CreateBooking(ctx context.Context, username string, service domain.ServiceType, at time.Time, notes string) (*domain.Booking, error)

	// GetBooking retrieves a booking by ID, or nil if none exists.
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)

	// ListBookings returns the user's bookings, most recent first.
	ListBookings(ctx context.Context, username string) ([]domain.Booking, error)

	// CancelBooking moves a confirmed booking to cancelled.
	CancelBooking(ctx context.Context, id int64) (*domain.Booking, error)

	// AvailableSlots returns the free "HH:MM" slots for a service on a date.
	AvailableSlots(ctx context.Context, service domain.ServiceType, date time.Time) ([]string, error)

	// SubmitFeedback stores a rating and comment from the user.
	SubmitFeedback(ctx context.Context, username, text string, rating int) (*domain.Feedback, error)

	// UserContext aggregates the user's profile, bookings and feedback.
	UserContext(ctx context.Context, username string) (*domain.UserContext, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// GetAgentSession retrieves chat session state, or nil if none exists.
	GetAgentSession(ctx context.Context, username, sessionID string) (*domain.AgentSession, error)

	// UpsertAgentSession creates or updates chat session state.
	UpsertAgentSession(ctx context.Context, session *domain.AgentSession) error

	// DeleteAgentSession removes chat session state.
	DeleteAgentSession(ctx context.Context, username, sessionID string) error

	// CleanupExpiredSessions removes sessions idle for longer than ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)
}
