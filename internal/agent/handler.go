package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/fitfusion/internal/config"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// RateLimiter implements a per-member token bucket.
// The key is the username only, not username:session, so clients cannot
// bypass throttling by rotating session IDs.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows limit requests per window per key, and starts the
// background eviction goroutine. Call Stop to end it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		idle:     window,
		stop:     make(chan struct{}),
	}
	go rl.evict()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// evict periodically drops limiters idle for a full window; a fresh limiter
// starts with a full bucket, so this never loosens the limit.
func (r *RateLimiter) evict() {
	ticker := time.NewTicker(r.idle)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.idle)
			r.mu.Lock()
			for key, e := range r.limiters {
				if e.lastSeen.Before(cutoff) {
					delete(r.limiters, key)
				}
			}
			r.mu.Unlock()
		}
	}
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Handler serves the assistant over HTTP with an SSE progress stream.
type Handler struct {
	agent       Processor
	rateLimiter *RateLimiter
	cfg         *config.Config
}

// NewHandler creates an agent handler. cfg may be nil for defaults.
func NewHandler(agent Processor, cfg *config.Config) *Handler {
	rateLimitRequests := 20
	rateLimitWindow := time.Minute
	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.RequestsPerWindow
		rateLimitWindow = cfg.RateLimit.WindowDuration
	}
	return &Handler{
		agent:       agent,
		rateLimiter: NewRateLimiter(rateLimitRequests, rateLimitWindow),
		cfg:         cfg,
	}
}

type chatChunk struct {
	resp *ChatResponse
	err  error
}

// HandleChat handles POST /api/agent/chat requests. Loop steps are streamed
// as SSE "message" events; the stream ends with a "done" event.
//
//nolint:gocyclo // Validation and streaming branches are kept inline to preserve request flow.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if username == "" {
		http.Error(w, `{"error": "sign in required"}`, http.StatusUnauthorized)
		return
	}

	if !h.rateLimiter.Allow(username) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	maxBodySize := int64(defaultMaxRequestBodySize)
	if h.cfg != nil && h.cfg.SSE.MaxRequestBodySize > 0 {
		maxBodySize = h.cfg.SSE.MaxRequestBodySize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, `{"error": "request body too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, `{"error": "message is required"}`, http.StatusBadRequest)
		return
	}

	req.Username = username
	req.SessionID = sessionID
	req.Channel = ChannelHTTP

	slog.Info("Agent chat request",
		"username", username,
		"session_id", sessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error": "streaming not supported"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	chunks := make(chan chatChunk)
	go func() {
		defer close(chunks)
		for resp, err := range h.agent.Chat(ctx, req) {
			select {
			case chunks <- chatChunk{resp: resp, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepaliveInterval := 10 * time.Second
	if h.cfg != nil && h.cfg.SSE.KeepaliveInterval > 0 {
		keepaliveInterval = h.cfg.SSE.KeepaliveInterval
	}
	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	var eventID int64
	for {
		select {
		case <-ctx.Done():
			slog.Info("Agent chat stream disconnected", "username", username, "session_id", sessionID)
			return
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err, "username", username)
				return
			}
			flusher.Flush()
		case chunk, ok := <-chunks:
			if !ok {
				if err := writeSSE(w, "done", `{}`); err != nil {
					slog.Warn("failed to write SSE done event", "error", err)
				}
				flusher.Flush()
				return
			}
			if chunk.err != nil {
				slog.Error("Agent stream failed", "error", chunk.err, "username", username)
				data, _ := json.Marshal(map[string]string{"error": ClientMessage(chunk.err)})
				if err := writeSSE(w, "error", string(data)); err != nil {
					slog.Warn("failed to write SSE error event", "error", err)
					return
				}
				flusher.Flush()
				continue
			}

			data, err := json.Marshal(chunk.resp)
			if err != nil {
				slog.Warn("failed to marshal chat response", "error", err)
				if writeErr := writeSSE(w, "error", `{"error":"failed to serialize response"}`); writeErr != nil {
					slog.Warn("failed to write SSE serialization error", "error", writeErr)
				}
				flusher.Flush()
				return
			}
			eventID++
			if err := writeSSEWithID(w, eventID, "message", string(data)); err != nil {
				slog.Warn("failed to write SSE message event", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// HandleHistory handles GET /api/agent/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	if username == "" {
		http.Error(w, `{"error": "sign in required"}`, http.StatusUnauthorized)
		return
	}
	messages, err := h.agent.History(r.Context(), username, identity.SessionIDFromContext(r.Context()))
	if err != nil {
		slog.Error("failed to load chat history", "username", username, "error", err)
		http.Error(w, `{"error": "failed to load history"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// HandleClearHistory handles DELETE /api/agent/history.
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	username := identity.UsernameFromContext(r.Context())
	if username == "" {
		http.Error(w, `{"error": "sign in required"}`, http.StatusUnauthorized)
		return
	}
	if err := h.agent.ResetSession(r.Context(), username, identity.SessionIDFromContext(r.Context())); err != nil {
		slog.Error("failed to clear chat history", "username", username, "error", err)
		http.Error(w, `{"error": "failed to clear history"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// RegisterRoutes registers agent routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/agent", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Get("/history", h.HandleHistory)
		r.Delete("/history", h.HandleClearHistory)
	})
}

// RateLimiter exposes the limiter so other transports share one budget per member.
func (h *Handler) RateLimiter() *RateLimiter {
	return h.rateLimiter
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	if h.agent != nil {
		h.agent.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEWithID(w io.Writer, id int64, event, data string) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
