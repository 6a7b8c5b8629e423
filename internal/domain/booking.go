package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the storage and display format for booking instants.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date format accepted by availability lookups.
const DateLayout = "2006-01-02"

// ServiceType identifies a bookable gym service.
type ServiceType string

const (
	ServicePersonalTraining ServiceType = "personal_training"
	ServiceGroupClass       ServiceType = "group_class"
	ServiceNutritionConsult ServiceType = "nutrition_consult"
)

// ServiceTypes lists every bookable service in display order.
var ServiceTypes = []ServiceType{
	ServicePersonalTraining,
	ServiceGroupClass,
	ServiceNutritionConsult,
}

// Valid reports whether s is a known service type.
func (s ServiceType) Valid() bool {
	for _, v := range ServiceTypes {
		if s == v {
			return true
		}
	}
	return false
}

// BookingStatus is the lifecycle state of a booking.
// The only transition is confirmed -> cancelled.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a reserved session slot.
type Booking struct {
	ID          int64         `json:"id"`
	Username    string        `json:"username"`
	ServiceType ServiceType   `json:"service_type"`
	DateTime    time.Time     `json:"-"`
	Status      BookingStatus `json:"status"`
	Notes       string        `json:"notes"`
	CreatedAt   time.Time     `json:"-"`
}

// Active reports whether the booking has not been cancelled.
func (b Booking) Active() bool {
	return b.Status == BookingConfirmed
}

// MarshalJSON renders instants in storage format.
func (b Booking) MarshalJSON() ([]byte, error) {
	type plain Booking
	return json.Marshal(struct {
		plain
		DateTime  string `json:"date_time"`
		CreatedAt string `json:"created_at"`
	}{
		plain:     plain(b),
		DateTime:  b.When(),
		CreatedAt: b.CreatedAt.Format(DateTimeLayout),
	})
}

// When returns the booking instant in storage format.
func (b Booking) When() string {
	return b.DateTime.Format(DateTimeLayout)
}

// FormatBookings renders bookings as a short human-readable list.
func FormatBookings(bookings []Booking) string {
	if len(bookings) == 0 {
		return "No bookings found."
	}
	var sb strings.Builder
	for _, b := range bookings {
		status := "✅"
		if !b.Active() {
			status = "❌"
		}
		fmt.Fprintf(&sb, "%s Booking #%d: %s on %s", status, b.ID, displayService(b.ServiceType), b.When())
		if b.Notes != "" {
			fmt.Fprintf(&sb, " (%s)", b.Notes)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func displayService(s ServiceType) string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
