package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
)

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/health", nil, nil)
	wantStatus(t, w, http.StatusOK)

	resp := decodeBody[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

func TestMetrics(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/metrics", nil, nil)
	wantStatus(t, w, http.StatusOK)

	m := decodeBody[metricsResponse](t, w)
	if m.Version != "test" {
		t.Errorf("Version = %q, want test", m.Version)
	}
	if m.Runtime.Goroutines == 0 {
		t.Error("expected goroutine count")
	}
	if m.Store == nil || m.Store.OpenConnections < 1 {
		t.Errorf("database = %+v, want pool stats", m.Store)
	}
	if m.Broker != nil {
		t.Errorf("mqtt = %+v, want omitted without a client", m.Broker)
	}
	if m.Remote != nil {
		t.Errorf("remote = %+v, want omitted without a session source", m.Remote)
	}
}

type fixedSessions struct{ active, max int }

func (f fixedSessions) ActiveSessions() int { return f.active }
func (f fixedSessions) MaxSessions() int    { return f.max }

type fixedBroker bool

func (f fixedBroker) IsConnected() bool { return bool(f) }

func TestMetrics_OptionalSections(t *testing.T) {
	env := testServer(t)
	env.srv.sessions = fixedSessions{active: 3, max: 64}
	env.srv.mqtt = fixedBroker(true)

	w := env.do(t, http.MethodGet, "/api/metrics", nil, nil)
	wantStatus(t, w, http.StatusOK)

	m := decodeBody[metricsResponse](t, w)
	if m.Remote == nil || m.Remote.ActiveSessions != 3 || m.Remote.MaxSessions != 64 {
		t.Errorf("remote = %+v, want 3 of 64", m.Remote)
	}
	if m.Broker == nil || !m.Broker.Connected {
		t.Errorf("mqtt = %+v, want connected", m.Broker)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/health", nil, nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"empty list allows any", nil, "http://localhost:3000", "http://localhost:3000"},
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", "http://localhost:5173"},
		{"unlisted origin", []string{"http://localhost:5173"}, "http://evil.example", ""},
		{"wildcard", []string{"*"}, "http://anything.example", "http://anything.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			env.srv.cfg.CORS.AllowedOrigins = tt.allowed

			req := httptest.NewRequest(http.MethodOptions, "/api/devices", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			env.handler.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("ACAO = %q, want %q", got, tt.want)
			}
			if tt.want != "" && w.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("expected credentials to be allowed")
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	env := testServer(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/nonexistent", nil, nil)
	wantStatus(t, w, http.StatusNotFound)
	if e := decodeBody[Error](t, w); e.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeNotFound)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := testServer(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/users/search?q=a"},
		{http.MethodGet, "/api/rooms"},
		{http.MethodGet, "/api/devices"},
		{http.MethodPost, "/api/devices/abc/toggle"},
		{http.MethodGet, "/api/logs/abc"},
		{http.MethodGet, "/api/ws"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := env.do(t, rt.method, rt.path, nil, nil)
			wantStatus(t, w, http.StatusUnauthorized)
		})
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	env := testServer(t)
	id := env.register(t, "bob", "bob@x.com", "pw")

	otherSecret, err := generateToken(id, "another-secret-that-is-also-32-chars-long")
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	tests := []struct {
		name  string
		value string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong signature", otherSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/users/me", nil, &http.Cookie{Name: sessionCookieName, Value: tt.value})
			wantStatus(t, w, http.StatusUnauthorized)
		})
	}
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	env := testServer(t)
	id := env.register(t, "bob", "bob@x.com", "pw")

	token, err := generateToken(id, testSecret)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	wantStatus(t, w, http.StatusOK)
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without services should fail")
	}
}

func TestServer_StartAndClose(t *testing.T) {
	env := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := env.srv.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := env.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := env.srv.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}

	base := "http://" + env.srv.Addr().String()
	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	client := &http.Client{Timeout: 500 * time.Millisecond}
	if _, err := client.Get(base + "/api/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	first := testServer(t)
	if err := first.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { first.srv.Close() }) //nolint:errcheck // test cleanup

	second := testServer(t)
	second.srv.cfg.Port = first.srv.Addr().(*net.TCPAddr).Port
	if err := second.srv.Start(context.Background()); err == nil {
		second.srv.Close() //nolint:errcheck // test cleanup
		t.Error("Start() on a bound port should fail")
	}
}
