package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines device persistence.
//
// Methods taking a userID only see devices owned by that user and report
// ErrDeviceNotFound otherwise.
type Repository interface {
	// Create inserts a device, assigning its ID and timestamps.
	Create(ctx context.Context, device *Device) error

	// Get returns a device owned by userID, with its room name resolved.
	Get(ctx context.Context, id, userID string) (*Device, error)

	// GetByID returns a device regardless of owner. Used by telemetry.
	GetByID(ctx context.Context, id string) (*Device, error)

	// ListByUser returns the user's devices in creation order.
	ListByUser(ctx context.Context, userID string) ([]Device, error)

	// SetOn stores a bulb's power state.
	SetOn(ctx context.Context, id, userID string, on bool) error

	// SetReading stores a sensor reading. An empty userID skips the
	// ownership check.
	SetReading(ctx context.Context, id, userID string, celsius float64) error

	// Delete removes a device owned by userID.
	Delete(ctx context.Context, id, userID string) error

	// DeleteAllByUser removes every device of userID and reports how many
	// were removed.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDevice = `
	SELECT d.id, d.name, d.room_id, COALESCE(r.name, ''), d.user_id, d.kind,
		d.is_on, d.reading, d.created_at, d.updated_at
	FROM devices d
	LEFT JOIN rooms r ON r.id = d.room_id AND r.user_id = d.user_id`

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	device.CreatedAt = now
	device.UpdatedAt = now
	ts := now.Format(time.RFC3339)

	var (
		isOn    bool
		reading *float64
	)
	switch {
	case device.Bulb != nil:
		isOn = device.Bulb.On
	case device.Sensor != nil:
		reading = device.Sensor.Reading
	default:
		return fmt.Errorf("inserting device: %w: no state for kind %q", ErrInvalidKind, string(device.Kind))
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, user_id, room_id, name, kind, is_on, reading, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.UserID, device.RoomID, device.Name, string(device.Kind),
		boolToInt(isOn), nullFloat(reading), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Get retrieves an owned device.
func (r *SQLiteRepository) Get(ctx context.Context, id, userID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+` WHERE d.id = ? AND d.user_id = ?`, id, userID)
	return scanDevice(row)
}

// GetByID retrieves a device by ID alone.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+` WHERE d.id = ?`, id)
	return scanDevice(row)
}

// ListByUser retrieves all devices owned by userID.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevice+` WHERE d.user_id = ? ORDER BY d.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// SetOn updates a bulb's power state.
func (r *SQLiteRepository) SetOn(ctx context.Context, id, userID string, on bool) error {
	return r.exec(ctx, "updating power state", `
		UPDATE devices SET is_on = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND kind = ?`,
		boolToInt(on), nowText(), id, userID, string(KindLightBulb),
	)
}

// SetReading updates a sensor's last reading.
func (r *SQLiteRepository) SetReading(ctx context.Context, id, userID string, celsius float64) error {
	query := `UPDATE devices SET reading = ?, updated_at = ? WHERE id = ? AND kind = ?`
	args := []any{celsius, nowText(), id, string(KindTemperatureSensor)}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	return r.exec(ctx, "updating reading", query, args...)
}

// Delete removes an owned device. Maintenance logs cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	return r.exec(ctx, "deleting device", `DELETE FROM devices WHERE id = ? AND user_id = ?`, id, userID)
}

// DeleteAllByUser removes every device owned by userID.
func (r *SQLiteRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting devices of user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting devices of user: %w", err)
	}
	return n, nil
}

// exec runs a single-row statement and maps zero affected rows to
// ErrDeviceNotFound.
func (r *SQLiteRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var (
		d                    Device
		kind                 string
		isOn                 int
		reading              sql.NullFloat64
		createdAt, updatedAt string
	)

	err := s.Scan(&d.ID, &d.Name, &d.RoomID, &d.RoomName, &d.UserID, &kind,
		&isOn, &reading, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.Kind = Kind(kind)
	switch d.Kind {
	case KindLightBulb:
		d.Bulb = &BulbState{On: isOn != 0}
	case KindTemperatureSensor:
		d.Sensor = &SensorState{}
		if reading.Valid {
			v := reading.Float64
			d.Sensor.Reading = &v
		}
	default:
		return nil, fmt.Errorf("scanning device %s: %w: %q", d.ID, ErrInvalidKind, kind)
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339)
}
