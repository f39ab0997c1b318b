package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxNameLength = 100

// Service implements the owner-scoped room operations.
type Service struct {
	repo Repository
}

// NewService creates a room service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddRoom creates a room for userID.
func (s *Service) AddRoom(ctx context.Context, userID, name string) (*Room, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	room := &Room{UserID: userID, Name: name}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns the rooms owned by userID.
func (s *Service) ListRooms(ctx context.Context, userID string) ([]Room, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetRoom returns a room owned by userID.
func (s *Service) GetRoom(ctx context.Context, id, userID string) (*Room, error) {
	return s.repo.Get(ctx, id, userID)
}

// RoomExists reports whether userID owns the room id.
func (s *Service) RoomExists(ctx context.Context, id, userID string) (bool, error) {
	_, err := s.repo.Get(ctx, id, userID)
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RenameRoom changes the name of a room owned by userID.
func (s *Service) RenameRoom(ctx context.Context, id, userID, name string) (*Room, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, userID, name); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, userID)
}

// DeleteRoom removes a room owned by userID.
func (s *Service) DeleteRoom(ctx context.Context, id, userID string) error {
	return s.repo.Delete(ctx, id, userID)
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return name, nil
}
