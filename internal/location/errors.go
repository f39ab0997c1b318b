package location

import "errors"

var (
	// ErrRoomNotFound is returned when a room does not exist or belongs
	// to another user.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidName is returned for blank or oversized room names.
	ErrInvalidName = errors.New("invalid room name")
)
