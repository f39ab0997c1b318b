package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxNameLength = 100

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier is told that device state changed. Implementations must not block.
type Notifier interface {
	NotifyDeviceChanged()
}

type noopNotifier struct{}

func (noopNotifier) NotifyDeviceChanged() {}

// RoomLookup checks room ownership. *location.Service satisfies it.
type RoomLookup interface {
	RoomExists(ctx context.Context, id, userID string) (bool, error)
}

// Metrics receives device state for time-series storage.
// *influxdb.Client satisfies it.
type Metrics interface {
	WritePowerState(deviceID string, on bool)
	WriteTemperature(deviceID string, celsius float64, at time.Time)
}

// Service implements device management on top of a Repository.
//
// Every mutation that reaches the repository triggers the Notifier;
// failed mutations never do. All methods are safe for concurrent use.
type Service struct {
	repo     Repository
	notifier Notifier
	metrics  Metrics
	rooms    RoomLookup
	logger   Logger
}

// NewService creates a device service. A nil notifier is replaced with
// one that does nothing.
func NewService(repo Repository, notifier Notifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics enables time-series writes of power state and manual
// temperature changes.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// SetRooms makes AddDevice reject rooms the owner does not have. Without
// it the room ID is stored as given.
func (s *Service) SetRooms(rooms RoomLookup) {
	s.rooms = rooms
}

// AddDevice creates a device of the named kind for userID.
//
// Parameters:
//   - name: Display name, trimmed, 1 to 100 bytes
//   - roomID: Room the device is filed under; must be owned by userID
//     when a RoomLookup is set
//   - kind: Kind name, e.g. "LightBulb" or "temperaturesensor"
//   - userID: Owner
//
// Returns:
//   - *Device: The stored device
//   - error: ErrInvalidName, ErrInvalidRoom, ErrInvalidKind or a storage error
func (s *Service) AddDevice(ctx context.Context, name, roomID, kind, userID string) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidName, maxNameLength)
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if s.rooms != nil {
		owned, err := s.rooms.RoomExists(ctx, roomID, userID)
		if err != nil {
			return nil, fmt.Errorf("checking room %s: %w", roomID, err)
		}
		if !owned {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRoom, roomID)
		}
	}

	d, err := New(k)
	if err != nil {
		return nil, err
	}
	d.Name, d.RoomID, d.UserID = name, roomID, userID

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("device added", "device_id", d.ID, "kind", string(k), "user_id", userID)
	s.notifier.NotifyDeviceChanged()
	return d, nil
}

// GetAllDevicesForUser returns every device owned by userID.
func (s *Service) GetAllDevicesForUser(ctx context.Context, userID string) ([]Device, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetDeviceForUser returns a device owned by userID, or ErrDeviceNotFound.
func (s *Service) GetDeviceForUser(ctx context.Context, id, userID string) (*Device, error) {
	return s.repo.Get(ctx, id, userID)
}

// TurnOn switches a bulb on. It reports false when the device is missing,
// owned by someone else or not a bulb.
func (s *Service) TurnOn(ctx context.Context, id, userID string) (bool, error) {
	return s.setPower(ctx, id, userID, true)
}

// TurnOff switches a bulb off. It reports false when the device is
// missing, owned by someone else or not a bulb.
func (s *Service) TurnOff(ctx context.Context, id, userID string) (bool, error) {
	return s.setPower(ctx, id, userID, false)
}

// Toggle flips a bulb and returns its new state.
//
// The read and the write are separate statements; two concurrent toggles
// of the same bulb may both observe the old state.
func (s *Service) Toggle(ctx context.Context, id, userID string) (bool, error) {
	d, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if !d.IsBulb() {
		return false, ErrNotBulb
	}
	next := !d.Bulb.On
	ok, err := s.setPower(ctx, id, userID, next)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrDeviceNotFound
	}
	return next, nil
}

func (s *Service) setPower(ctx context.Context, id, userID string, on bool) (bool, error) {
	err := s.repo.SetOn(ctx, id, userID, on)
	if errors.Is(err, ErrDeviceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Debug("power state changed", "device_id", id, "on", on)
	if s.metrics != nil {
		s.metrics.WritePowerState(id, on)
	}
	s.notifier.NotifyDeviceChanged()
	return true, nil
}

// GetTemperature returns a sensor's last reading.
//
// Returns:
//   - ErrDeviceNotFound when absent or not owned
//   - ErrNotSensor when the device is a bulb
//   - ErrNoReading when the sensor has not reported yet
func (s *Service) GetTemperature(ctx context.Context, id, userID string) (float64, error) {
	d, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if !d.IsSensor() {
		return 0, ErrNotSensor
	}
	if d.Sensor.Reading == nil {
		return 0, ErrNoReading
	}
	return *d.Sensor.Reading, nil
}

// SetTemperature overrides the reading of a sensor owned by userID.
func (s *Service) SetTemperature(ctx context.Context, id, userID string, celsius float64) error {
	d, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if !d.IsSensor() {
		return ErrNotSensor
	}
	if err := s.repo.SetReading(ctx, id, userID, celsius); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.WriteTemperature(id, celsius, time.Now())
	}
	s.notifier.NotifyDeviceChanged()
	return nil
}

// RecordReading stores a reading reported by the sensor itself, without
// an ownership check.
func (s *Service) RecordReading(ctx context.Context, id string, celsius float64) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !d.IsSensor() {
		return ErrNotSensor
	}
	if err := s.repo.SetReading(ctx, id, "", celsius); err != nil {
		return err
	}

	s.logger.Debug("reading recorded", "device_id", id, "celsius", celsius)
	s.notifier.NotifyDeviceChanged()
	return nil
}

// DeleteDevice removes a device owned by userID and reports whether it existed.
func (s *Service) DeleteDevice(ctx context.Context, id, userID string) (bool, error) {
	err := s.repo.Delete(ctx, id, userID)
	if errors.Is(err, ErrDeviceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Info("device deleted", "device_id", id, "user_id", userID)
	s.notifier.NotifyDeviceChanged()
	return true, nil
}

// DeleteAllForUser removes every device owned by userID.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) error {
	n, err := s.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("devices of user deleted", "user_id", userID, "count", n)
		s.notifier.NotifyDeviceChanged()
	}
	return nil
}
