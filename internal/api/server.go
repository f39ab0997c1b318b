package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-core/internal/location"
	"github.com/nerrad567/smarthome-core/internal/maintenance"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// UserService is the account surface. *auth.Service satisfies it.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
	Get(ctx context.Context, id string) (*auth.User, error)
	Search(ctx context.Context, phrase string) ([]auth.User, error)
	Update(ctx context.Context, id, username, password string) (*auth.User, error)
	Delete(ctx context.Context, id string) error
}

// RoomService is the room surface. *location.Service satisfies it.
type RoomService interface {
	AddRoom(ctx context.Context, userID, name string) (*location.Room, error)
	ListRooms(ctx context.Context, userID string) ([]location.Room, error)
	GetRoom(ctx context.Context, id, userID string) (*location.Room, error)
	RenameRoom(ctx context.Context, id, userID, name string) (*location.Room, error)
	DeleteRoom(ctx context.Context, id, userID string) error
}

// DeviceService is the device surface. *device.Service satisfies it.
type DeviceService interface {
	AddDevice(ctx context.Context, name, roomID, kind, userID string) (*device.Device, error)
	GetAllDevicesForUser(ctx context.Context, userID string) ([]device.Device, error)
	GetDeviceForUser(ctx context.Context, id, userID string) (*device.Device, error)
	TurnOn(ctx context.Context, id, userID string) (bool, error)
	TurnOff(ctx context.Context, id, userID string) (bool, error)
	Toggle(ctx context.Context, id, userID string) (bool, error)
	GetTemperature(ctx context.Context, id, userID string) (float64, error)
	SetTemperature(ctx context.Context, id, userID string, celsius float64) error
	DeleteDevice(ctx context.Context, id, userID string) (bool, error)
}

// LogService is the maintenance log surface. *maintenance.Service satisfies it.
type LogService interface {
	AddLog(ctx context.Context, userID, deviceID, title, description string) (*maintenance.Log, error)
	ListForDevice(ctx context.Context, deviceID, userID string, page maintenance.Page) (*maintenance.ListResult, error)
	UpdateLog(ctx context.Context, id, userID, title, description string) error
	DeleteLog(ctx context.Context, id, userID string) error
}

// ConnectionStatus reports broker connectivity. *mqtt.Client satisfies it.
type ConnectionStatus interface {
	IsConnected() bool
}

// SessionStats reports TCP command sessions. *remote.Server satisfies it.
type SessionStats interface {
	ActiveSessions() int
	MaxSessions() int
}

// DBStats exposes connection pool statistics. *database.DB satisfies it.
type DBStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Users   UserService
	Rooms   RoomService
	Devices DeviceService
	Logs    LogService

	// Optional, reported by /api/metrics when set.
	MQTT     ConnectionStatus
	DB       DBStats
	Sessions SessionStats

	// If set, the server uses this hub instead of creating its own.
	Hub     *Hub
	Version string
}

// Server is the HTTP API server for SmartHome Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	secCfg config.SecurityConfig
	logger *logging.Logger

	users   UserService
	rooms   RoomService
	devices DeviceService
	logs    LogService

	mqtt     ConnectionStatus
	db       DBStats
	sessions SessionStats

	version   string
	startTime time.Time

	hub         *Hub
	externalHub bool // true if hub was injected externally

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc // cancels the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil || deps.Rooms == nil || deps.Devices == nil || deps.Logs == nil {
		return nil, fmt.Errorf("user, room, device and log services are required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger.With("component", "api"),
		users:     deps.Users,
		rooms:     deps.Rooms,
		devices:   deps.Devices,
		logs:      deps.Logs,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		sessions:  deps.Sessions,
		version:   deps.Version,
		startTime: time.Now(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}

	return s, nil
}

// Hub returns the WebSocket hub, for wiring it as a notifier sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves HTTP in a background goroutine.
//
// The bind happens synchronously so a port already in use is reported
// here. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
