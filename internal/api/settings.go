package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/ashureev/fitfusion/internal/llm"
)

type personaView struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"signed_in":       identity.UsernameFromContext(r.Context()) != "",
		"default_model":   llm.DefaultModel,
		"default_persona": "",
		"default_style":   "",
		"max_iterations":  0,
		"llm_configured":  false,
	}
	if h.cfg != nil {
		resp["default_model"] = h.cfg.LLM.Model
		resp["default_persona"] = h.cfg.Agent.Persona
		resp["default_style"] = h.cfg.Agent.PromptStyle
		resp["max_iterations"] = h.cfg.Agent.MaxIterations
		resp["llm_configured"] = h.cfg.LLM.APIKey != ""
	}
	JSON(w, http.StatusOK, resp)
}

// ListPersonas returns the selectable personas and prompt styles.
func (h *Handler) ListPersonas(w http.ResponseWriter, _ *http.Request) {
	personas := make([]personaView, 0, len(h.catalog.Personas))
	for _, p := range h.catalog.Personas {
		personas = append(personas, personaView{Key: p.Key, DisplayName: p.DisplayName(), Description: p.Description})
	}
	JSON(w, http.StatusOK, map[string]any{
		"personas": personas,
		"styles":   h.catalog.Styles,
	})
}

// ListModels returns the selectable language models.
func (h *Handler) ListModels(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"models":  llm.Catalogue,
		"default": llm.DefaultModel,
	})
}

// GetPreferences returns the assistant settings of the current chat session.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	prefs, err := h.agent.Preferences(r.Context(), username, sessionID)
	if err != nil {
		slog.Error("Failed to load preferences", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	JSON(w, http.StatusOK, prefs)
}

// preferencesUpdate carries the fields a client wants to change; omitted
// fields keep their current value.
type preferencesUpdate struct {
	Persona     *string  `json:"persona"`
	PromptStyle *string  `json:"prompt_style"`
	Model       *string  `json:"model"`
	Temperature *float64 `json:"temperature"`
	TopP        *float64 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
}

// UpdatePreferences changes the assistant settings of the current chat session.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	var req preferencesUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	prefs, err := h.agent.Preferences(r.Context(), username, sessionID)
	if err != nil {
		slog.Error("Failed to load preferences", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	if req.Persona != nil {
		prefs.Persona = *req.Persona
	}
	if req.PromptStyle != nil {
		prefs.PromptStyle = *req.PromptStyle
	}
	if req.Model != nil {
		prefs.Model = *req.Model
	}
	if req.Temperature != nil {
		prefs.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		prefs.TopP = *req.TopP
	}
	if req.MaxTokens != nil {
		prefs.MaxTokens = *req.MaxTokens
	}

	updated, err := h.agent.SetPreferences(r.Context(), username, sessionID, prefs)
	if errors.Is(err, agent.ErrInvalidPreference) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Failed to save preferences", "error", err, "username", username)
		Error(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	JSON(w, http.StatusOK, updated)
}
