package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const testAPIKey = "test-secret-key-12345"

var testTokens = map[string]string{testAPIKey: "alice", "other-key-67890": "bob"}

// mockHandler records whether it was called and the actor it saw.
func mockHandler() (http.Handler, *bool, *string) {
	called := false
	actor := ""
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		actor, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}), &called, &actor
}

// captureLogs swaps the default logger for a JSON logger writing to the
// returned buffer until the test ends.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var logBuf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logBuf, nil)))
	t.Cleanup(func() { slog.SetDefault(oldLogger) })
	return &logBuf
}

func TestAuthMiddleware_ValidTokenResolvesActor(t *testing.T) {
	for token, wantActor := range testTokens {
		handler, called, actor := mockHandler()
		middleware := AuthMiddleware(testTokens, false)(handler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		middleware.ServeHTTP(w, req)

		if !*called {
			t.Fatal("handler was not called for valid token")
		}
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if *actor != wantActor {
			t.Errorf("actor = %q, want %q", *actor, wantActor)
		}
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"invalid token", "Bearer wrong-token"},
		{"no bearer prefix", testAPIKey},
		{"empty token", "Bearer "},
		{"whitespace only token", "Bearer    "},
		{"basic auth", "Basic " + testAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called, _ := mockHandler()
			middleware := AuthMiddleware(testTokens, false)(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			middleware.ServeHTTP(w, req)

			if *called {
				t.Error("handler should not be called")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_DevModeFallsBackToDevActor(t *testing.T) {
	handler, called, actor := mockHandler()
	middleware := AuthMiddleware(nil, true)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	if !*called {
		t.Fatal("handler was not called in dev mode")
	}
	if *actor != DevActor {
		t.Errorf("actor = %q, want %q", *actor, DevActor)
	}
}

func TestAuthMiddleware_DevModeStillHonorsTokens(t *testing.T) {
	handler, _, actor := mockHandler()
	middleware := AuthMiddleware(testTokens, true)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	if *actor != "alice" {
		t.Errorf("actor = %q, want alice", *actor)
	}
}

func TestAuthMiddleware_ResponseFormat_RFC7807(t *testing.T) {
	handler, _, _ := mockHandler()
	middleware := AuthMiddleware(testTokens, false)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", contentType)
	}

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response as RFC 7807: %v", err)
	}

	if p.Type != "https://steward.dev/errors/unauthorized" {
		t.Errorf("type = %v, want https://steward.dev/errors/unauthorized", p.Type)
	}
	if p.Title != "Unauthorized" {
		t.Errorf("title = %v, want Unauthorized", p.Title)
	}
	if p.Status != 401 {
		t.Errorf("status = %d, want 401", p.Status)
	}
	if p.Detail != "Missing or invalid API token" {
		t.Errorf("detail = %v, want 'Missing or invalid API token'", p.Detail)
	}
	if p.Instance != "/api/v1/goals" {
		t.Errorf("instance = %v, want /api/v1/goals", p.Instance)
	}
}

func TestAuthMiddleware_NoKeyLeak(t *testing.T) {
	logBuf := captureLogs(t)
	handler, _, _ := mockHandler()
	middleware := AuthMiddleware(testTokens, false)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	for token := range testTokens {
		if strings.Contains(w.Body.String(), token) {
			t.Error("response body contains a configured token - security violation!")
		}
		if strings.Contains(logBuf.String(), token) {
			t.Error("log output contains a configured token - security violation!")
		}
	}
}

func TestLookupActor(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   string
		wantOK bool
	}{
		{"first actor", testAPIKey, "alice", true},
		{"second actor", "other-key-67890", "bob", true},
		{"unknown token", "nope", "", false},
		{"empty token", "", "", false},
		{"prefix of a token", testAPIKey[:5], "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lookupActor(testTokens, tt.token)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("lookupActor(%q) = (%q, %v), want (%q, %v)", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"valid token", "Bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"no bearer prefix", "abc123", ""},
		{"empty after bearer", "Bearer ", ""},
		{"whitespace after bearer", "Bearer    ", ""},
		{"lowercase bearer", "bearer abc123", ""},
		{"basic auth", "Basic abc123", ""},
		{"token with spaces trimmed", "Bearer  abc123 ", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got := extractBearerToken(req)
			if got != tt.expected {
				t.Errorf("extractBearerToken() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{"equal strings", "abc123", "abc123", true},
		{"different strings", "abc123", "xyz789", false},
		{"different lengths", "abc", "abcdef", false},
		{"empty strings", "", "", true},
		{"one empty", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := constantTimeEqual(tt.a, tt.b)
			if got != tt.expected {
				t.Errorf("constantTimeEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestLoggingMiddleware_NoAuthHeaderLeak(t *testing.T) {
	logBuf := captureLogs(t)

	innerHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	middleware := LoggingMiddleware(innerHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	logOutput := logBuf.String()
	if strings.Contains(logOutput, testAPIKey) {
		t.Error("log output contains the API key - security violation!")
	}
	if !strings.Contains(logOutput, `"msg":"request completed"`) {
		t.Errorf("expected 'request completed' in log output, got: %s", logOutput)
	}
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	logBuf := captureLogs(t)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(LoggingMiddleware)
	router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(logBuf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log as JSON: %v", err)
	}

	for _, field := range []string{"request_id", "method", "path", "status", "duration_ms", "remote_addr"} {
		if _, ok := logEntry[field]; !ok {
			t.Errorf("missing expected field: %s", field)
		}
	}
	if logEntry["request_id"] == "" {
		t.Error("request_id is empty")
	}
}

func TestLoggingMiddleware_LogLevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logBuf := captureLogs(t)

			middleware := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			middleware.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

			if want := `"level":"` + tt.level + `"`; !strings.Contains(logBuf.String(), want) {
				t.Errorf("expected %s level, got: %s", tt.level, logBuf.String())
			}
		})
	}
}

func TestLogLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{201, slog.LevelInfo},
		{101, slog.LevelInfo},
		{304, slog.LevelInfo},
		{400, slog.LevelWarn},
		{401, slog.LevelWarn},
		{429, slog.LevelWarn},
		{500, slog.LevelError},
		{503, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := logLevelForStatus(tt.status); got != tt.want {
				t.Errorf("logLevelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestGetRequestID_NoContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if reqID := GetRequestID(req.Context()); reqID != "" {
		t.Errorf("GetRequestID without context = %q, want empty string", reqID)
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}

	for _, path := range []string{"/api/v1/goals", "/api/v1/tasks", "/api/v1/expenses", "/api/v1/dashboard"} {
		rec := ts.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	middleware := RecoveryMiddleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want %q", w.Body.String(), "OK")
	}
}

func TestRecoveryMiddleware_PanicNoLeak(t *testing.T) {
	logBuf := captureLogs(t)

	secretMessage := "super-secret-database-password-12345"
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(secretMessage)
	})

	middleware := RecoveryMiddleware(panicHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), secretMessage) {
		t.Error("response body contains secret panic message - security violation!")
	}

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if p.Type != "https://steward.dev/errors/internal-error" {
		t.Errorf("type = %v, want https://steward.dev/errors/internal-error", p.Type)
	}
	if p.Detail != "Internal Server Error" {
		t.Errorf("detail = %q, want generic 'Internal Server Error'", p.Detail)
	}

	// Logs keep the panic value for debugging
	if !strings.Contains(logBuf.String(), secretMessage) {
		t.Error("expected secret in logs for debugging purposes")
	}
}

func TestRateLimiter_PerActorBuckets(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	if !rl.Allow("alice") || !rl.Allow("alice") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("alice") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("bob") {
		t.Error("bob should have a separate bucket")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler, _, _ := mockHandler()
	chain := AuthMiddleware(testTokens, false)(rl.Middleware(handler))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/parse", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		w := httptest.NewRecorder()
		chain.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}

	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}
	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if p.Type != "https://steward.dev/errors/rate-limit" {
		t.Errorf("type = %v, want https://steward.dev/errors/rate-limit", p.Type)
	}
}

func TestRouter_RateLimitsAssistantRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.router = NewRouter(ts.handler, RouterConfig{
		Tokens:  map[string]string{aliceToken: "alice"},
		Limiter: NewRateLimiter(0.001, 1),
	})

	first := ts.do(t, http.MethodPost, "/api/v1/assistant/sessions", aliceToken, "")
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", first.Code)
	}
	second := ts.do(t, http.MethodPost, "/api/v1/ai/parse", aliceToken, `{"input":"hi"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}

	// Record routes are not limited
	third := ts.do(t, http.MethodGet, "/api/v1/goals", aliceToken, "")
	if third.Code != http.StatusOK {
		t.Errorf("goals status = %d, want 200", third.Code)
	}
}
