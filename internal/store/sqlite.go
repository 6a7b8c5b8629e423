package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db             *sql.DB
	agentSessionMu sync.Mutex // Mutex for agent session operations to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		service_type TEXT NOT NULL,
		date_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed',
		notes TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id, date_time);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_slot
		ON bookings(service_type, date_time) WHERE status = 'confirmed';

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		feedback_text TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_sessions (
		username TEXT NOT NULL,
		session_id TEXT NOT NULL,
		messages_json TEXT NOT NULL DEFAULT '[]',
		preferences_json TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (username, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_agent_sessions_updated ON agent_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateUser registers a new member.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email string) (*domain.User, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, created_at) VALUES (?, ?, ?)`,
		username, email, now.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get user id: %w", err)
	}

	return &domain.User{ID: id, Username: username, Email: email, CreatedAt: time.Unix(now.Unix(), 0)}, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE username = ?`, username)

	var user domain.User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Username, &user.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0)

	return &user, nil
}

// CreateBooking reserves a confirmed slot for the user.
// The partial unique index on confirmed slots rejects double bookings.
func (s *SQLiteStore) CreateBooking(ctx context.Context, username string, service domain.ServiceType, at time.Time, notes string) (*domain.Booking, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (user_id, service_type, date_time, status, notes, created_at)
		SELECT id, ?, ?, ?, ?, ? FROM users WHERE username = ?`,
		string(service), at.Format(domain.DateTimeLayout), string(domain.BookingConfirmed), notes, now.Unix(), username,
	)
	if err != nil {
		if shared.IsSQLiteUniqueError(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrUserNotFound
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get booking id: %w", err)
	}

	return &domain.Booking{
		ID:          id,
		Username:    username,
		ServiceType: service,
		DateTime:    at,
		Status:      domain.BookingConfirmed,
		Notes:       notes,
		CreatedAt:   time.Unix(now.Unix(), 0),
	}, nil
}

const bookingColumns = `b.id, u.username, b.service_type, b.date_time, b.status, b.notes, b.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var service, status, when string
	var createdAt int64
	if err := row.Scan(&b.ID, &b.Username, &service, &when, &status, &b.Notes, &createdAt); err != nil {
		return nil, err
	}

	at, err := time.ParseInLocation(domain.DateTimeLayout, when, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse booking date_time %q: %w", when, err)
	}
	b.ServiceType = domain.ServiceType(service)
	b.Status = domain.BookingStatus(status)
	b.DateTime = at
	b.CreatedAt = time.Unix(createdAt, 0)
	return &b, nil
}

// GetBooking retrieves a booking by ID.
func (s *SQLiteStore) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.id = ?`, id)

	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking row: %w", err)
	}
	return b, nil
}

// ListBookings returns the user's bookings ordered by date_time descending.
func (s *SQLiteStore) ListBookings(ctx context.Context, username string) ([]domain.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE u.username = ?
		ORDER BY b.date_time DESC, b.id DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close bookings rows", "error", closeErr)
		}
	}()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// CancelBooking moves a confirmed booking to cancelled.
func (s *SQLiteStore) CancelBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !booking.Active() {
		return nil, ErrAlreadyCancelled
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
		string(domain.BookingCancelled), id, string(domain.BookingConfirmed))
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Lost a race with a concurrent cancellation.
		return nil, ErrAlreadyCancelled
	}

	booking.Status = domain.BookingCancelled
	return booking, nil
}

// AvailableSlots returns the hourly slots on date not held by a confirmed booking.
func (s *SQLiteStore) AvailableSlots(ctx context.Context, service domain.ServiceType, date time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%H:%M', date_time) FROM bookings
		WHERE service_type = ? AND date(date_time) = ? AND status = ?`,
		string(service), date.Format(domain.DateLayout), string(domain.BookingConfirmed))
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close slot rows", "error", closeErr)
		}
	}()

	booked := make(map[string]bool)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		booked[slot] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booked slots: %w", err)
	}

	available := make([]string, 0, len(SlotHours))
	for _, h := range SlotHours {
		slot := fmt.Sprintf("%02d:00", h)
		if !booked[slot] {
			available = append(available, slot)
		}
	}
	return available, nil
}

// SubmitFeedback stores a rating and comment from the user.
func (s *SQLiteStore) SubmitFeedback(ctx context.Context, username, text string, rating int) (*domain.Feedback, error) {
	if !domain.ValidRating(rating) {
		return nil, ErrInvalidRating
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, feedback_text, rating, created_at)
		SELECT id, ?, ?, ? FROM users WHERE username = ?`,
		text, rating, now.Unix(), username)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrUserNotFound
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get feedback id: %w", err)
	}

	return &domain.Feedback{ID: id, Username: username, Text: text, Rating: rating, CreatedAt: time.Unix(now.Unix(), 0)}, nil
}

func (s *SQLiteStore) listFeedback(ctx context.Context, username string) ([]domain.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, u.username, f.feedback_text, f.rating, f.created_at
		FROM feedback f JOIN users u ON u.id = f.user_id
		WHERE u.username = ?
		ORDER BY f.created_at DESC, f.id DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close feedback rows", "error", closeErr)
		}
	}()

	feedback := []domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		var createdAt int64
		if err := rows.Scan(&f.ID, &f.Username, &f.Text, &f.Rating, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		f.CreatedAt = time.Unix(createdAt, 0)
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return feedback, nil
}

// UserContext aggregates the user's profile, bookings and feedback.
func (s *SQLiteStore) UserContext(ctx context.Context, username string) (*domain.UserContext, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	bookings, err := s.ListBookings(ctx, username)
	if err != nil {
		return nil, err
	}
	feedback, err := s.listFeedback(ctx, username)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, b := range bookings {
		if b.Active() {
			active++
		}
	}

	return &domain.UserContext{
		User:           *user,
		Bookings:       bookings,
		Feedback:       feedback,
		TotalBookings:  len(bookings),
		ActiveBookings: active,
	}, nil
}

// GetAgentSession retrieves chat session state.
func (s *SQLiteStore) GetAgentSession(ctx context.Context, username, sessionID string) (*domain.AgentSession, error) {
	s.agentSessionMu.Lock()
	defer s.agentSessionMu.Unlock()

	query := `
		SELECT username, session_id, messages_json, preferences_json, created_at, updated_at
		FROM agent_sessions WHERE username = ? AND session_id = ?`

	row := s.db.QueryRowContext(ctx, query, username, sessionID)

	var session domain.AgentSession
	var prefsJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.Username, &session.SessionID,
		&session.MessagesJSON, &prefsJSON,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent session: %w", err)
	}

	if err := json.Unmarshal([]byte(prefsJSON), &session.Preferences); err != nil {
		slog.Warn("discarding malformed session preferences", "username", username, "session_id", sessionID, "error", err)
		session.Preferences = domain.Preferences{}
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

// UpsertAgentSession creates or updates chat session state.
func (s *SQLiteStore) UpsertAgentSession(ctx context.Context, session *domain.AgentSession) error {
	s.agentSessionMu.Lock()
	defer s.agentSessionMu.Unlock()

	prefs, err := json.Marshal(session.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	messages := session.MessagesJSON
	if strings.TrimSpace(messages) == "" {
		messages = "[]"
	}
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO agent_sessions (
			username, session_id, messages_json, preferences_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username, session_id) DO UPDATE SET
			messages_json = excluded.messages_json,
			preferences_json = excluded.preferences_json,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		session.Username, session.SessionID,
		messages, string(prefs),
		createdAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert agent session: %w", err)
	}
	return nil
}

// DeleteAgentSession removes chat session state, retrying on SQLITE_BUSY.
func (s *SQLiteStore) DeleteAgentSession(ctx context.Context, username, sessionID string) error {
	return shared.RetryOnConflict(ctx, "delete agent session", 3, 100*time.Millisecond, func() error {
		return s.deleteAgentSessionOnce(ctx, username, sessionID)
	})
}

func (s *SQLiteStore) deleteAgentSessionOnce(ctx context.Context, username, sessionID string) error {
	s.agentSessionMu.Lock()
	defer s.agentSessionMu.Unlock()

	query := `DELETE FROM agent_sessions WHERE username = ? AND session_id = ?`
	if _, err := s.db.ExecContext(ctx, query, username, sessionID); err != nil {
		return fmt.Errorf("delete agent session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes sessions idle for longer than ttl.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	s.agentSessionMu.Lock()
	defer s.agentSessionMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM agent_sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return result.RowsAffected()
}
