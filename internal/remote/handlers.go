package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
)

// handlerFunc executes one command and returns the reply. A non-nil error
// is an unexpected failure; expected outcomes are expressed in the reply.
type handlerFunc func(s *Session, ctx context.Context, cmd Command) (string, error)

type route struct {
	handle      handlerFunc
	requireAuth bool
}

var routes = map[Verb]route{
	VerbLogin:  {handle: (*Session).handleLogin},
	VerbList:   {handle: (*Session).handleList, requireAuth: true},
	VerbToggle: {handle: (*Session).handleToggle, requireAuth: true},
	VerbExit:   {handle: (*Session).handleExit},
}

// dispatch routes cmd and converts unexpected failures, panics included,
// into a generic reply.
func (s *Session) dispatch(ctx context.Context, cmd Command) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("command panicked", "verb", string(cmd.Verb), "user_id", s.userID, "panic", rec)
			reply = msgInternalError
		}
	}()

	r, ok := routes[cmd.Verb]
	if !ok {
		s.logger.Debug("unknown command", "verb", cmd.Raw)
		return msgUnknownCommand
	}
	if r.requireAuth && !s.Authenticated() {
		return msgAccessDenied
	}

	reply, err := r.handle(s, ctx, cmd)
	if err != nil {
		s.logger.Error("command failed", "verb", string(cmd.Verb), "user_id", s.userID, "error", err)
		return msgInternalError
	}
	return reply
}

func (s *Session) handleLogin(ctx context.Context, cmd Command) (string, error) {
	if s.Authenticated() {
		return msgAlreadyLoggedIn, nil
	}
	if len(cmd.Args) < 2 {
		return msgLoginUsage, nil
	}

	user, err := s.deps.Auth.Authenticate(ctx, cmd.Arg(0), cmd.Arg(1))
	if errors.Is(err, auth.ErrInvalidCredentials) || (err == nil && user == nil) {
		s.logger.Info("login rejected")
		return msgInvalidCreds, nil
	}
	if err != nil {
		return "", fmt.Errorf("authenticating: %w", err)
	}

	s.userID = user.ID
	s.logger.Info("login succeeded", "user_id", user.ID)
	return fmt.Sprintf(msgLoggedInFormat, user.Username), nil
}

func (s *Session) handleList(ctx context.Context, _ Command) (string, error) {
	devices, err := s.deps.Devices.GetAllDevicesForUser(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("listing devices: %w", err)
	}
	return Listing(s.userID, devices), nil
}

// handleToggle reads the bulb and then switches it the other way. The
// read and the switch are separate calls, so concurrent toggles from
// different sessions can both act on the same observed state.
func (s *Session) handleToggle(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) == 0 {
		return msgProvideID, nil
	}
	id, err := uuid.Parse(cmd.Arg(0))
	if err != nil {
		return msgInvalidGUID, nil
	}

	d, err := s.deps.Devices.GetDeviceForUser(ctx, id.String(), s.userID)
	if errors.Is(err, device.ErrDeviceNotFound) {
		return msgDeviceNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading device %s: %w", id, err)
	}
	if !d.IsBulb() {
		return msgNotLightbulb, nil
	}

	next := !d.Bulb.On
	var ok bool
	if !next {
		ok, err = s.deps.Devices.TurnOff(ctx, d.ID, s.userID)
	} else {
		ok, err = s.deps.Devices.TurnOn(ctx, d.ID, s.userID)
	}
	if err != nil {
		return "", fmt.Errorf("switching device %s: %w", id, err)
	}
	if !ok {
		return msgDeviceNotFound, nil
	}

	s.logger.Info("device toggled", "device_id", d.ID, "user_id", s.userID, "on", next)
	return msgToggled, nil
}

func (s *Session) handleExit(context.Context, Command) (string, error) {
	return msgGoodbye, nil
}
