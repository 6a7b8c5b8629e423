// Package api provides the HTTP handlers for the FitFusion member API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/ashureev/fitfusion/internal/config"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/go-chi/chi/v5"
)

// ConnectionCloser drops a member's live chat connections on sign-out.
type ConnectionCloser interface {
	CloseUser(username string)
}

// Handler serves account, booking and settings endpoints.
type Handler struct {
	repo    store.Repository
	agent   agent.Processor
	catalog *prompts.Catalog
	conns   ConnectionCloser
	cfg     *config.Config
}

// NewHandler creates a new Handler. conns may be nil when the WebSocket
// endpoint is not mounted.
func NewHandler(repo store.Repository, processor agent.Processor, catalog *prompts.Catalog, conns ConnectionCloser, cfg *config.Config) *Handler {
	return &Handler{
		repo:    repo,
		agent:   processor,
		catalog: catalog,
		conns:   conns,
		cfg:     cfg,
	}
}

// RegisterRoutes registers the member API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/config", h.GetConfig)
		r.Get("/personas", h.ListPersonas)
		r.Get("/models", h.ListModels)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireUser)
			r.Get("/me", h.GetMe)
			r.Get("/bookings", h.ListBookings)
			r.Get("/preferences", h.GetPreferences)
			r.Put("/preferences", h.UpdatePreferences)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) isDevelopment() bool {
	return h.cfg == nil || h.cfg.IsDevelopment()
}

// decodeBody reads a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
