package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "fitfusion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(domain.DateTimeLayout, s, time.Local)
	require.NoError(t, err)
	return ts
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestStore(t)

	user, err := repo.CreateUser(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	_, err = repo.CreateUser(ctx, "alice", "other@example.com")
	require.ErrorIs(t, err, ErrUserExists)

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.Email)

	missing, err := repo.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBookingLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestStore(t)

	_, err := repo.CreateUser(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = repo.CreateBooking(ctx, "ghost", domain.ServicePersonalTraining, at(t, "2030-06-10 10:00:00"), "")
	require.ErrorIs(t, err, ErrUserNotFound)

	first, err := repo.CreateBooking(ctx, "alice", domain.ServicePersonalTraining, at(t, "2030-06-10 10:00:00"), "legs")
	require.NoError(t, err)
	second, err := repo.CreateBooking(ctx, "alice", domain.ServiceGroupClass, at(t, "2030-06-12 18:00:00"), "")
	require.NoError(t, err)

	_, err = repo.CreateBooking(ctx, "alice", domain.ServicePersonalTraining, at(t, "2030-06-10 10:00:00"), "")
	require.ErrorIs(t, err, ErrSlotTaken)

	bookings, err := repo.ListBookings(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, second.ID, bookings[0].ID, "most recent first")
	assert.Equal(t, "2030-06-10 10:00:00", bookings[1].When())

	cancelled, err := repo.CancelBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)

	_, err = repo.CancelBooking(ctx, first.ID)
	require.ErrorIs(t, err, ErrAlreadyCancelled)

	got, err := repo.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status, "second cancel must not mutate")

	_, err = repo.CancelBooking(ctx, 9999)
	require.ErrorIs(t, err, ErrBookingNotFound)

	// A cancelled slot can be booked again.
	_, err = repo.CreateBooking(ctx, "alice", domain.ServicePersonalTraining, at(t, "2030-06-10 10:00:00"), "")
	require.NoError(t, err)
}

func TestAvailableSlotsExcludesConfirmedBookings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestStore(t)

	_, err := repo.CreateUser(ctx, "bob", "bob@example.com")
	require.NoError(t, err)
	day := at(t, "2030-06-10 00:00:00")

	slots, err := repo.AvailableSlots(ctx, domain.ServiceGroupClass, day)
	require.NoError(t, err)
	assert.Len(t, slots, 12)
	assert.Equal(t, "09:00", slots[0])
	assert.Equal(t, "20:00", slots[11])

	_, err = repo.CreateBooking(ctx, "bob", domain.ServiceGroupClass, at(t, "2030-06-10 09:00:00"), "")
	require.NoError(t, err)
	cancelled, err := repo.CreateBooking(ctx, "bob", domain.ServiceGroupClass, at(t, "2030-06-10 11:00:00"), "")
	require.NoError(t, err)
	_, err = repo.CancelBooking(ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = repo.CreateBooking(ctx, "bob", domain.ServicePersonalTraining, at(t, "2030-06-10 12:00:00"), "")
	require.NoError(t, err)

	slots, err = repo.AvailableSlots(ctx, domain.ServiceGroupClass, day)
	require.NoError(t, err)
	assert.Len(t, slots, 11)
	assert.NotContains(t, slots, "09:00")
	assert.Contains(t, slots, "11:00")
	assert.Contains(t, slots, "12:00")
}

func TestFeedbackAndUserContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestStore(t)

	_, err := repo.CreateUser(ctx, "carol", "carol@example.com")
	require.NoError(t, err)

	_, err = repo.SubmitFeedback(ctx, "carol", "too loud", 0)
	require.ErrorIs(t, err, ErrInvalidRating)
	_, err = repo.SubmitFeedback(ctx, "carol", "too loud", 6)
	require.ErrorIs(t, err, ErrInvalidRating)
	_, err = repo.SubmitFeedback(ctx, "nobody", "hi", 3)
	require.ErrorIs(t, err, ErrUserNotFound)

	fb, err := repo.SubmitFeedback(ctx, "carol", "great trainers", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)

	b, err := repo.CreateBooking(ctx, "carol", domain.ServiceNutritionConsult, at(t, "2030-01-02 15:00:00"), "")
	require.NoError(t, err)
	_, err = repo.CreateBooking(ctx, "carol", domain.ServicePersonalTraining, at(t, "2030-01-03 15:00:00"), "")
	require.NoError(t, err)
	_, err = repo.CancelBooking(ctx, b.ID)
	require.NoError(t, err)

	uc, err := repo.UserContext(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", uc.User.Username)
	assert.Equal(t, 2, uc.TotalBookings)
	assert.Equal(t, 1, uc.ActiveBookings)
	assert.Len(t, uc.Feedback, 1)

	_, err = repo.UserContext(ctx, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAgentSessionRoundTripAndCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestStore(t)

	session := &domain.AgentSession{
		Username:     "alice",
		SessionID:    "tab-1",
		MessagesJSON: `[{"role":"user","content":"hi"}]`,
		Preferences:  domain.Preferences{Persona: "drill_sergeant", PromptStyle: "few_shot", Temperature: 0.3},
	}
	require.NoError(t, repo.UpsertAgentSession(ctx, session))

	got, err := repo.GetAgentSession(ctx, "alice", "tab-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.MessagesJSON, got.MessagesJSON)
	assert.Equal(t, session.Preferences, got.Preferences)

	other, err := repo.GetAgentSession(ctx, "alice", "tab-2")
	require.NoError(t, err)
	assert.Nil(t, other)

	deleted, err := repo.CleanupExpiredSessions(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, repo.DeleteAgentSession(ctx, "alice", "tab-1"))
}
