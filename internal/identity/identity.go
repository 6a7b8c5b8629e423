// Package identity resolves the signed-in member and the chat session of a
// request.
package identity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/store"
)

const (
	UserCookieName        = "fitfusion_user"
	SessionHeaderName     = "X-FitFusion-Session-ID"
	DefaultSessionIDValue = "default"
	userCookieMaxAge      = 30 * 24 * time.Hour
)

type contextKey int

const (
	usernameKey contextKey = iota
	sessionIDKey
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// UsernameFromContext extracts the signed-in username from the request
// context, or "" for anonymous requests.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithUsername returns a context carrying username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// WithSessionID returns a context carrying a sanitised session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// SetUserCookie signs the member in on this device.
func SetUserCookie(w http.ResponseWriter, username string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     UserCookieName,
		Value:    username,
		Path:     "/",
		MaxAge:   int(userCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(userCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearUserCookie signs the member out.
func ClearUserCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     UserCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects the signed-in username (when the cookie names an
// existing member) and the per-request session ID. Requests without a valid
// cookie continue anonymously.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithSessionID(r.Context(), sessionIDFromRequest(r))

			if c, err := r.Cookie(UserCookieName); err == nil && domain.ValidUsername(c.Value) {
				user, err := repo.GetUserByUsername(ctx, c.Value)
				switch {
				case err != nil:
					slog.Error("failed to resolve signed-in member", "username", c.Value, "error", err)
					http.Error(w, `{"error":"failed to resolve user"}`, http.StatusInternalServerError)
					return
				case user == nil:
					ClearUserCookie(w, isDev)
				default:
					ctx = WithUsername(ctx, user.Username)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UsernameFromContext(r.Context()) == "" {
			http.Error(w, `{"error":"sign in required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
