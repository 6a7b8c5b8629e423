// Package domain contains core domain types for the FitFusion application.
package domain

import (
	"regexp"
	"strings"
	"time"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// User represents a registered gym member.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidUsername reports whether name is an acceptable username.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// ValidEmail reports whether addr looks like an email address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(strings.TrimSpace(addr))
}

// UserContext is the aggregated profile used for personalization.
type UserContext struct {
	User           User       `json:"user"`
	Bookings       []Booking  `json:"bookings"`
	Feedback       []Feedback `json:"feedback"`
	TotalBookings  int        `json:"total_bookings"`
	ActiveBookings int        `json:"active_bookings"`
}
