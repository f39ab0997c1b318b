package maintenance

import (
	"context"
	"fmt"
	"strings"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 4000
)

// Service implements maintenance log operations.
type Service struct {
	repo Repository
}

// NewService creates a maintenance service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddLog records a maintenance entry against a device owned by userID.
func (s *Service) AddLog(ctx context.Context, userID, deviceID, title, description string) (*Log, error) {
	title, description, err := validate(title, description)
	if err != nil {
		return nil, err
	}
	log := &Log{DeviceID: deviceID, Title: title, Description: description}
	if err := s.repo.Create(ctx, userID, log); err != nil {
		return nil, err
	}
	return log, nil
}

// ListForDevice returns the device's logs, newest first.
func (s *Service) ListForDevice(ctx context.Context, deviceID, userID string, page Page) (*ListResult, error) {
	return s.repo.ListForDevice(ctx, deviceID, userID, page)
}

// UpdateLog replaces the title and description of a log.
func (s *Service) UpdateLog(ctx context.Context, id, userID, title, description string) error {
	title, description, err := validate(title, description)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, userID, title, description)
}

// DeleteLog removes a log.
func (s *Service) DeleteLog(ctx context.Context, id, userID string) error {
	return s.repo.Delete(ctx, id, userID)
}

func validate(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLength {
		return "", "", fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidTitle, maxTitleLength)
	}
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionLength {
		return "", "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDescription, maxDescriptionLength)
	}
	return title, description, nil
}
