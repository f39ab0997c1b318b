package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// maxUsernameLength bounds usernames in bytes.
const maxUsernameLength = 64

// Logger is the logging surface the service needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// DeviceCleaner removes every device owned by a user.
type DeviceCleaner interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

// Service implements account registration, login and maintenance.
type Service struct {
	repo    UserRepository
	devices DeviceCleaner
	hash    HashParams
	logger  Logger
}

// NewService creates a user service. devices may be nil, in which case
// deleting a user relies on the schema's cascading delete alone.
func NewService(repo UserRepository, devices DeviceCleaner) *Service {
	return &Service{
		repo:    repo,
		devices: devices,
		hash:    DefaultHashParams,
		logger:  noopLogger{},
	}
}

// SetLogger sets the service logger.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetHashParams overrides the Argon2id cost, for tests and low-power hosts.
func (s *Service) SetHashParams(p HashParams) {
	s.hash = p
}

// Register creates an account and returns it.
//
// Returns:
//   - ErrInvalidInput when a field is blank or malformed
//   - ErrEmailTaken when the email is already registered
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if !validUsername(username) || !validEmail(email) || password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := s.hash.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Search returns users whose username or email contains phrase.
func (s *Service) Search(ctx context.Context, phrase string) ([]User, error) {
	return s.repo.Search(ctx, strings.TrimSpace(phrase))
}

// Update renames a user and, when password is non-empty, replaces the
// password.
func (s *Service) Update(ctx context.Context, id, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return nil, ErrInvalidInput
	}

	if err := s.repo.UpdateProfile(ctx, id, username); err != nil {
		return nil, err
	}

	if password != "" {
		hash, err := s.hash.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, id)
}

// Delete removes a user's devices and then the account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.devices != nil {
		if err := s.devices.DeleteAllForUser(ctx, id); err != nil {
			return fmt.Errorf("deleting devices of user %s: %w", id, err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func validUsername(username string) bool {
	return username != "" && len(username) <= maxUsernameLength && !strings.ContainsAny(username, " \t\r\n")
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
