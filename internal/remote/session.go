package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
)

// writeTimeout bounds each flush to the client.
const writeTimeout = 10 * time.Second

// defaultMaxLineLength applies when no limit is configured.
const defaultMaxLineLength = 4096

// SessionOptions tunes a single session.
type SessionOptions struct {
	// IdleTimeout is the read deadline per line. Zero disables it.
	IdleTimeout time.Duration

	// MaxLineLength is the longest accepted input line in bytes.
	MaxLineLength int
}

// Session is the server side of one client connection. It is owned by the
// goroutine that calls Run and must not be shared.
type Session struct {
	id     string
	conn   net.Conn
	deps   Deps
	opts   SessionOptions
	logger *logging.Logger

	w *bufio.Writer

	// userID is empty while the client is a guest and fixed once set.
	userID string
}

// NewSession creates a session for conn.
func NewSession(conn net.Conn, deps Deps, opts SessionOptions, logger *logging.Logger) *Session {
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = defaultMaxLineLength
	}
	if logger == nil {
		logger = logging.Discard()
	}
	id := uuid.NewString()[:8]
	return &Session{
		id:     id,
		conn:   conn,
		deps:   deps,
		opts:   opts,
		logger: logger.With("session", id, "remote_addr", conn.RemoteAddr().String()),
		w:      bufio.NewWriter(conn),
	}
}

// ID returns the short identifier used in log entries.
func (s *Session) ID() string { return s.id }

// Authenticated reports whether LOGIN has succeeded.
func (s *Session) Authenticated() bool { return s.userID != "" }

// Run drives the session until the client exits or disconnects, a
// transport error occurs or ctx is cancelled. The connection is always
// closed when Run returns.
func (s *Session) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close() //nolint:errcheck // unblocks the pending read
	})
	defer func() {
		stop()
		s.conn.Close() //nolint:errcheck // already closed on cancellation
		s.logger.Info("session closed", "user_id", s.userID)
	}()

	s.logger.Info("session opened")

	if err := s.writeLines(bannerWelcome, bannerLogin, bannerCommands); err != nil {
		s.logTransport(ctx, "writing banner", err)
		return
	}

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, min(s.opts.MaxLineLength, defaultMaxLineLength)), s.opts.MaxLineLength)

	for {
		if err := s.prompt(); err != nil {
			s.logTransport(ctx, "writing prompt", err)
			return
		}

		if s.opts.IdleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)) //nolint:errcheck // a failed deadline surfaces on read
		}
		if !scanner.Scan() {
			s.logTransport(ctx, "reading command", scanner.Err())
			return
		}
		if ctx.Err() != nil {
			return
		}

		cmd, ok := Parse(scanner.Text())
		if !ok {
			s.logger.Debug("blank line, ending session")
			return
		}

		reply := s.dispatch(ctx, cmd)
		if err := s.writeLines(reply); err != nil {
			s.logTransport(ctx, "writing reply", err)
			return
		}
		if cmd.Verb == VerbExit {
			return
		}
	}
}

func (s *Session) prompt() error {
	p := promptGuest
	if s.Authenticated() {
		p = promptUser
	}
	s.w.WriteString(p) //nolint:errcheck // bufio surfaces the error on Flush
	return s.flush()
}

func (s *Session) writeLines(lines ...string) error {
	for _, l := range lines {
		s.w.WriteString(l)  //nolint:errcheck // bufio surfaces the error on Flush
		s.w.WriteByte('\n') //nolint:errcheck // bufio surfaces the error on Flush
	}
	return s.flush()
}

func (s *Session) flush() error {
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck // a failed deadline surfaces on write
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flushing to client: %w", err)
	}
	return nil
}

// logTransport records why the stream ended. A nil err means the client
// closed the stream.
func (s *Session) logTransport(ctx context.Context, op string, err error) {
	switch {
	case ctx.Err() != nil:
		s.logger.Debug("session cancelled", "op", op)
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		s.logger.Debug("client disconnected", "op", op)
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.logger.Info("session idle timeout", "op", op)
	case errors.Is(err, bufio.ErrTooLong):
		s.logger.Warn("input line too long", "op", op, "max_bytes", s.opts.MaxLineLength)
	default:
		s.logger.Info("transport error", "op", op, "error", err)
	}
}
