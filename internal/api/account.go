package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/ashureev/fitfusion/internal/store"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
}

// Signup registers a member and signs them in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if !domain.ValidUsername(username) {
		Error(w, http.StatusBadRequest, "username must be 3-32 letters, digits, '.', '_' or '-'")
		return
	}
	if !domain.ValidEmail(email) {
		Error(w, http.StatusBadRequest, "please enter a valid email address")
		return
	}

	user, err := h.repo.CreateUser(r.Context(), username, email)
	if errors.Is(err, store.ErrUserExists) {
		Error(w, http.StatusConflict, fmt.Sprintf("username '%s' is already taken", username))
		return
	}
	if err != nil {
		slog.Error("Failed to create user", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	identity.SetUserCookie(w, user.Username, h.isDevelopment())
	slog.Info("Member signed up", "username", user.Username)
	JSON(w, http.StatusCreated, user)
}

// Login signs an existing member in by username.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		Error(w, http.StatusBadRequest, "username is required")
		return
	}

	user, err := h.repo.GetUserByUsername(r.Context(), username)
	if err != nil {
		slog.Error("Failed to look up user", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if user == nil {
		Error(w, http.StatusNotFound, fmt.Sprintf("user '%s' not found, please sign up first", username))
		return
	}

	identity.SetUserCookie(w, user.Username, h.isDevelopment())
	JSON(w, http.StatusOK, user)
}

// Logout clears the sign-in cookie and drops any live chat connections.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if username := identity.UsernameFromContext(r.Context()); username != "" && h.conns != nil {
		h.conns.CloseUser(username)
	}
	identity.ClearUserCookie(w, h.isDevelopment())
	JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// GetMe returns the signed-in member's profile and booking counts.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	uc, err := h.repo.UserContext(r.Context(), username)
	if errors.Is(err, store.ErrUserNotFound) {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load member profile", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"id":              uc.User.ID,
		"username":        uc.User.Username,
		"email":           uc.User.Email,
		"member_since":    uc.User.CreatedAt.Format(domain.DateLayout),
		"total_bookings":  uc.TotalBookings,
		"active_bookings": uc.ActiveBookings,
		"session_id":      identity.SessionIDFromContext(r.Context()),
	})
}

// ListBookings returns the signed-in member's bookings for the sidebar.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	bookings, err := h.repo.ListBookings(r.Context(), username)
	if err != nil {
		slog.Error("Failed to list bookings", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	active := 0
	for _, b := range bookings {
		if b.Active() {
			active++
		}
	}
	JSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"total":    len(bookings),
		"active":   active,
		"summary":  domain.FormatBookings(bookings),
	})
}
