//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/ashureev/fitfusion/internal/config"
	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/ashureev/fitfusion/internal/llm"
	"github.com/ashureev/fitfusion/internal/llm/llmtest"
	"github.com/ashureev/fitfusion/internal/prompts"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/ashureev/fitfusion/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	closed []string
}

func (c *recordingCloser) CloseUser(username string) {
	c.closed = append(c.closed, username)
}

type testEnv struct {
	repo   store.Repository
	conns  *recordingCloser
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	catalog, err := prompts.Load()
	require.NoError(t, err)

	svc := agent.NewService(repo, catalog, llmtest.NewScripted(), tools.NewRegistry(repo), agent.DefaultConfig())
	t.Cleanup(svc.Close)

	cfg := &config.Config{}
	cfg.LLM.Model = llm.DefaultModel
	cfg.Agent.Persona = prompts.DefaultPersona
	cfg.Agent.PromptStyle = prompts.DefaultStyle
	cfg.Agent.MaxIterations = 5

	conns := &recordingCloser{}
	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	NewHandler(repo, svc, catalog, conns, cfg).RegisterRoutes(r)
	NewHealthHandler(repo).RegisterHealth(r)
	return &testEnv{repo: repo, conns: conns, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func userCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.UserCookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s", identity.UserCookieName)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return got
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "bar", got["foo"])
}

func TestSignupLoginLogout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/signup", `{"username":"alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := userCookie(t, rec)
	assert.Equal(t, "alice", cookie.Value)

	rec = env.do(t, http.MethodPost, "/api/signup", `{"username":"alice","email":"other@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "alice@example.com", me["email"])
	assert.InDelta(t, 0, me["total_bookings"], 0)

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", userCookie(t, rec).Value)

	rec = env.do(t, http.MethodPost, "/api/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, userCookie(t, rec).MaxAge)
	assert.Equal(t, []string{"alice"}, env.conns.closed)
}

func TestAccountRejects(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad username", http.MethodPost, "/api/signup", `{"username":"a!","email":"a@example.com"}`, http.StatusBadRequest},
		{"bad email", http.MethodPost, "/api/signup", `{"username":"alice","email":"nope"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/signup", `{`, http.StatusBadRequest},
		{"unknown member", http.MethodPost, "/api/login", `{"username":"ghost"}`, http.StatusNotFound},
		{"empty login", http.MethodPost, "/api/login", `{"username":"  "}`, http.StatusBadRequest},
		{"anonymous me", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"anonymous bookings", http.MethodGet, "/api/bookings", "", http.StatusUnauthorized},
		{"anonymous preferences", http.MethodGet, "/api/preferences", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, tt.body)
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}
}

func TestStaleCookieIsCleared(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/me", "", &http.Cookie{Name: identity.UserCookieName, Value: "ghost"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, -1, userCookie(t, rec).MaxAge)
}

func TestListBookings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repo.CreateUser(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	at := mustTime(t, "2026-06-10 10:00:00")
	b, err := env.repo.CreateBooking(ctx, "alice", domain.ServicePersonalTraining, at, "")
	require.NoError(t, err)
	_, err = env.repo.CreateBooking(ctx, "alice", domain.ServiceGroupClass, at.Add(2*time.Hour), "yoga")
	require.NoError(t, err)
	_, err = env.repo.CancelBooking(ctx, b.ID)
	require.NoError(t, err)

	cookie := &http.Cookie{Name: identity.UserCookieName, Value: "alice"}
	rec := env.do(t, http.MethodGet, "/api/bookings", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.InDelta(t, 2, got["total"], 0)
	assert.InDelta(t, 1, got["active"], 0)
	assert.Len(t, got["bookings"], 2)
	assert.Contains(t, got["summary"], "Group Class on 2026-06-10 12:00:00 (yoga)")
}

func TestPreferencesEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.repo.CreateUser(context.Background(), "alice", "alice@example.com")
	require.NoError(t, err)
	cookie := &http.Cookie{Name: identity.UserCookieName, Value: "alice"}

	rec := env.do(t, http.MethodGet, "/api/preferences", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var prefs domain.Preferences
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&prefs))
	assert.Equal(t, prompts.DefaultPersona, prefs.Persona)

	rec = env.do(t, http.MethodPut, "/api/preferences", `{"persona":"motivational_coach","temperature":0.2}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&prefs))
	assert.Equal(t, "motivational_coach", prefs.Persona)
	assert.Equal(t, prompts.DefaultStyle, prefs.PromptStyle)
	assert.InDelta(t, 0.2, prefs.Temperature, 1e-9)
	assert.InDelta(t, llm.DefaultTopP, prefs.TopP, 1e-9)

	rec = env.do(t, http.MethodPut, "/api/preferences", `{"model":"gpt-4"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unknown model")
}

func TestCatalogueEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/personas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Len(t, got["personas"], 3)
	assert.Len(t, got["styles"], 3)

	rec = env.do(t, http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode(t, rec)
	assert.Len(t, got["models"], len(llm.Catalogue))
	assert.Equal(t, llm.DefaultModel, got["default"])

	rec = env.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode(t, rec)
	assert.Equal(t, false, got["signed_in"])
	assert.Equal(t, false, got["llm_configured"])
	assert.InDelta(t, 5, got["max_iterations"], 0)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, map[string]any{"api": "ok", "database": "ok"}, got["checks"])
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.ParseInLocation(domain.DateTimeLayout, s, time.Local)
	require.NoError(t, err)
	return at
}
