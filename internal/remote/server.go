package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
)

const (
	// busyWriteTimeout bounds the rejection notice to a client over the cap.
	busyWriteTimeout = time.Second

	// acceptRetryDelay is the pause after a timeout error from Accept.
	acceptRetryDelay = 50 * time.Millisecond
)

// Authenticator checks login credentials. *auth.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
}

// DeviceService is the device surface sessions use. *device.Service satisfies it.
type DeviceService interface {
	GetAllDevicesForUser(ctx context.Context, userID string) ([]device.Device, error)
	GetDeviceForUser(ctx context.Context, id, userID string) (*device.Device, error)
	TurnOn(ctx context.Context, id, userID string) (bool, error)
	TurnOff(ctx context.Context, id, userID string) (bool, error)
}

// Deps holds the services handed to every session.
type Deps struct {
	Auth    Authenticator
	Devices DeviceService
}

// Server accepts TCP connections and runs one Session per connection.
type Server struct {
	cfg    config.RemoteConfig
	deps   Deps
	logger *logging.Logger

	// sem caps concurrent sessions; nil when unlimited.
	sem *semaphore.Weighted

	mu       sync.Mutex
	listener net.Listener

	sessions sync.WaitGroup
	active   atomic.Int64
}

// NewServer creates a server. cfg.MaxSessions of zero means unlimited.
func NewServer(cfg config.RemoteConfig, deps Deps, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "remote"),
	}
	if cfg.MaxSessions > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxSessions))
	}
	return s
}

// ListenAndServe binds cfg.Host:cfg.Port and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
//
// Cancellation closes ln and every open session, waits for the sessions to
// finish and returns nil. Any other accept failure is returned after the
// same cleanup; timeouts are retried.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// Sessions outlive a failed accept loop only until this cancel.
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(ctx, func() {
		ln.Close() //nolint:errcheck // unblocks Accept
	})
	defer func() {
		stop()
		ln.Close() //nolint:errcheck // may already be closed
		cancel()
		s.sessions.Wait()
	}()

	s.logger.Info("remote interface listening", "address", ln.Addr().String(), "max_sessions", s.cfg.MaxSessions)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("remote interface stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept timeout, retrying", "error", err)
				select {
				case <-ctx.Done():
					s.logger.Info("remote interface stopped")
					return nil
				case <-time.After(acceptRetryDelay):
				}
				continue
			}
			s.logger.Error("accept failed", "error", err)
			return fmt.Errorf("accepting connection: %w", err)
		}

		if s.sem != nil && !s.sem.TryAcquire(1) {
			s.reject(conn)
			continue
		}

		s.sessions.Add(1)
		s.active.Add(1)
		go func() {
			defer s.sessions.Done()
			defer s.active.Add(-1)
			if s.sem != nil {
				defer s.sem.Release(1)
			}
			s.newSession(conn).Run(ctx)
		}()
	}
}

// ActiveSessions reports the number of connected sessions.
func (s *Server) ActiveSessions() int {
	return int(s.active.Load())
}

// MaxSessions reports the configured cap, 0 when unlimited.
func (s *Server) MaxSessions() int {
	return s.cfg.MaxSessions
}

// Addr returns the bound address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) newSession(conn net.Conn) *Session {
	return NewSession(conn, s.deps, SessionOptions{
		IdleTimeout:   s.cfg.ReadIdleTimeout(),
		MaxLineLength: s.cfg.MaxLineLength,
	}, s.logger)
}

// reject tells a client over the session cap to retry and closes it,
// without holding up the accept loop.
func (s *Server) reject(conn net.Conn) {
	s.logger.Warn("session limit reached, rejecting connection",
		"remote_addr", conn.RemoteAddr().String(), "max_sessions", s.cfg.MaxSessions)

	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		defer conn.Close() //nolint:errcheck // best effort
		conn.SetWriteDeadline(time.Now().Add(busyWriteTimeout)) //nolint:errcheck // best effort
		conn.Write([]byte(msgServerBusy + "\n"))                //nolint:errcheck // best effort
	}()
}
