package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // absent, or owned by someone else
//	}
var (
	// ErrDeviceNotFound is returned when a device does not exist or is not
	// owned by the caller.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidKind is returned when a device kind is not recognised.
	ErrInvalidKind = errors.New("device: invalid kind")

	// ErrInvalidRoom is returned when the room ID is empty or names a room
	// the owner does not have.
	ErrInvalidRoom = errors.New("device: invalid room")

	// ErrNotSensor is returned for temperature operations on a bulb.
	ErrNotSensor = errors.New("device: not a temperature sensor")

	// ErrNotBulb is returned for power operations on a sensor.
	ErrNotBulb = errors.New("device: not a light bulb")

	// ErrNoReading is returned when a sensor has never reported.
	ErrNoReading = errors.New("device: no reading")
)
