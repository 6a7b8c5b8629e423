package chatws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// Limiter throttles chat turns per member.
type Limiter interface {
	Allow(key string) bool
}

// Handler upgrades requests to a chat WebSocket. Each text frame is a JSON
// message; a chat message runs one turn and streams its steps back.
type Handler struct {
	agent         agent.Processor
	sm            *SessionManager
	limiter       Limiter
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket chat handler. limiter may be nil.
func NewHandler(processor agent.Processor, sm *SessionManager, limiter Limiter, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		agent:         processor,
		sm:            sm,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// clientMessage is a frame sent by the browser.
type clientMessage struct {
	Type    string `json:"type"` // chat | ping | reset
	Content string `json:"content,omitempty"`
}

// serverMessage is a frame sent to the browser: a chat step or a control reply.
type serverMessage struct {
	*agent.ChatResponse
	Control string `json:"control,omitempty"` // pong | reset | error
	Error   string `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if username == "" {
		http.Error(w, `{"error":"sign in required"}`, http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "username", username)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "username", username)
		}
	}()

	h.sm.Register(username, sessionID, ws)
	defer h.sm.Unregister(username, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, username, sessionID)
	slog.Info("Chat connection ended", "username", username, "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, username, sessionID string) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "username", username)
			} else {
				slog.Warn("WebSocket read error", "error", err, "username", username)
			}
			return
		}

		var err error
		switch msg.Type {
		case "chat":
			err = h.chat(ctx, ws, username, sessionID, msg.Content)
		case "ping":
			err = h.write(ctx, ws, serverMessage{Control: "pong"})
		case "reset":
			if resetErr := h.agent.ResetSession(ctx, username, sessionID); resetErr != nil {
				slog.Error("failed to clear chat history", "username", username, "error", resetErr)
				err = h.write(ctx, ws, serverMessage{Control: "error", Error: "failed to clear history"})
			} else {
				err = h.write(ctx, ws, serverMessage{Control: "reset"})
			}
		default:
			err = h.write(ctx, ws, serverMessage{Control: "error", Error: "unknown message type"})
		}
		if err != nil {
			slog.Debug("WebSocket write error", "error", err, "username", username)
			return
		}
	}
}

func (h *Handler) chat(ctx context.Context, ws *websocket.Conn, username, sessionID, content string) error {
	if h.limiter != nil && !h.limiter.Allow(username) {
		return h.write(ctx, ws, serverMessage{Control: "error", Error: "rate limit exceeded"})
	}

	req := agent.ChatRequest{
		Message:   content,
		Username:  username,
		SessionID: sessionID,
		Channel:   agent.ChannelWebSocket,
	}
	for resp, err := range h.agent.Chat(ctx, req) {
		if err != nil {
			slog.Warn("chat turn rejected", "username", username, "error", err)
			return h.write(ctx, ws, serverMessage{Control: "error", Error: agent.ClientMessage(err)})
		}
		if err := h.write(ctx, ws, serverMessage{ChatResponse: resp}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, msg serverMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, ws, msg)
}
