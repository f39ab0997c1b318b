package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-core/internal/location"
	"github.com/nerrad567/smarthome-core/internal/maintenance"
	"github.com/nerrad567/smarthome-core/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// testEnv is a server wired to real services on a temp-file database.
type testEnv struct {
	srv     *Server
	handler http.Handler
	db      *database.DB
	users   *auth.Service
	devices *device.Service

	// rooms caches roomID results by session cookie and room name.
	rooms map[string]string
}

func testServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	rooms := location.NewService(location.NewSQLiteRepository(db.DB))
	devices := device.NewService(device.NewSQLiteRepository(db.DB), nil)
	devices.SetRooms(rooms)
	users := auth.NewService(auth.NewUserRepository(db.DB), devices)
	users.SetHashParams(auth.HashParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret, SessionTTL: 60},
		},
		Logger:  logging.Discard(),
		Users:   users,
		Rooms:   rooms,
		Devices: devices,
		Logs:    maintenance.NewService(maintenance.NewSQLiteRepository(db.DB)),
		DB:      db,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	go srv.hub.Run(ctx)
	t.Cleanup(cancel)

	return &testEnv{
		srv:     srv,
		handler: srv.buildRouter(),
		db:      db,
		users:   users,
		devices: devices,
		rooms:   make(map[string]string),
	}
}

// roomID returns the id of the caller's room called name, creating the
// room on first use.
func (e *testEnv) roomID(t *testing.T, cookie *http.Cookie, name string) string {
	t.Helper()
	key := cookie.Value + "|" + name
	if id, ok := e.rooms[key]; ok {
		return id
	}
	w := e.do(t, http.MethodPost, "/api/rooms", roomRequest{Name: name}, cookie)
	wantStatus(t, w, http.StatusCreated)
	id := decodeBody[struct {
		ID string `json:"id"`
	}](t, w).ID
	e.rooms[key] = id
	return id
}

// do sends a request through the router. body is JSON-encoded unless nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// register creates an account through the service and returns its ID.
func (e *testEnv) register(t *testing.T, username, email, password string) string {
	t.Helper()
	u, err := e.users.Register(context.Background(), username, email, password)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return u.ID
}

// login posts credentials and returns the session cookie.
func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/users/login", loginRequest{Email: email, Password: password}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

// registerAndLogin returns the new user's ID and session cookie.
func (e *testEnv) registerAndLogin(t *testing.T, username string) (string, *http.Cookie) {
	t.Helper()
	email := username + "@x.com"
	id := e.register(t, username, email, "pw-"+username)
	return id, e.login(t, email, "pw-"+username)
}

// generateToken signs a session token for id with secret.
func generateToken(id, secret string) (string, error) {
	return auth.GenerateSessionToken(&auth.User{ID: id, Username: "someone", Role: auth.RoleUser}, secret, time.Hour)
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
}
