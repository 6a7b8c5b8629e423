package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a member's rating of the gym and its services.
type Feedback struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"feedback_text"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"-"`
}

// ValidRating reports whether r is within the accepted rating range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
