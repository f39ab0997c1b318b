// Package maintenance keeps the maintenance history of devices.
//
// A log entry belongs to a device and, through it, to the device owner.
// Every operation takes the caller's user ID and only touches logs of
// devices that user owns.
package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Log is a single maintenance entry.
type Log struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"deviceId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Page selects a window of a device's history.
type Page struct {
	Limit  int // default 50, max 200
	Offset int
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (p Page) clamp() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult contains one page of logs and the total count.
type ListResult struct {
	Logs   []Log `json:"logs"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// Repository defines maintenance log persistence.
type Repository interface {
	Create(ctx context.Context, userID string, log *Log) error
	ListForDevice(ctx context.Context, deviceID, userID string, page Page) (*ListResult, error)
	Update(ctx context.Context, id, userID, title, description string) error
	Delete(ctx context.Context, id, userID string) error
}

// SQLiteRepository stores maintenance logs in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new maintenance log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ownedLog restricts a statement on maintenance_logs to logs of devices
// owned by the bound user.
const ownedLog = `id = ? AND device_id IN (SELECT id FROM devices WHERE user_id = ?)`

// Create inserts a log for a device owned by userID. The ID and CreatedAt
// are generated if empty. Returns ErrDeviceNotFound when the device is
// absent or owned by someone else.
func (r *SQLiteRepository) Create(ctx context.Context, userID string, log *Log) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO maintenance_logs (id, device_id, title, description, created_at)
		 SELECT ?, id, ?, ?, ? FROM devices WHERE id = ? AND user_id = ?`,
		log.ID, log.Title, log.Description, log.CreatedAt.UTC().Format(timeLayout),
		log.DeviceID, userID,
	)
	if err != nil {
		return fmt.Errorf("inserting maintenance log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting maintenance log: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// ListForDevice returns a device's logs, most recent first.
func (r *SQLiteRepository) ListForDevice(ctx context.Context, deviceID, userID string, page Page) (*ListResult, error) {
	page = page.clamp()

	const where = `WHERE device_id = ? AND device_id IN (SELECT id FROM devices WHERE user_id = ?)`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_logs `+where, deviceID, userID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting maintenance logs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, title, description, created_at FROM maintenance_logs `+where+`
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		deviceID, userID, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying maintenance logs: %w", err)
	}
	defer rows.Close()

	logs := []Log{}
	for rows.Next() {
		var log Log
		var createdAt string
		if err := rows.Scan(&log.ID, &log.DeviceID, &log.Title, &log.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning maintenance log: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing maintenance log timestamp %q: %w", createdAt, err)
		}
		log.CreatedAt = t
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating maintenance logs: %w", err)
	}

	return &ListResult{Logs: logs, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// Update replaces a log's title and description.
func (r *SQLiteRepository) Update(ctx context.Context, id, userID, title, description string) error {
	return r.exec(ctx, "updating maintenance log",
		`UPDATE maintenance_logs SET title = ?, description = ? WHERE `+ownedLog,
		title, description, id, userID,
	)
}

// Delete removes a log.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	return r.exec(ctx, "deleting maintenance log",
		`DELETE FROM maintenance_logs WHERE `+ownedLog, id, userID)
}

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
		return ErrLogNotFound
	}
	return nil
}

var (
	// ErrLogNotFound is returned when a log does not exist or belongs to
	// another user's device.
	ErrLogNotFound = errors.New("maintenance: log not found")

	// ErrDeviceNotFound is returned when logging against a device the
	// caller does not own.
	ErrDeviceNotFound = errors.New("maintenance: device not found")

	// ErrInvalidTitle is returned for blank or oversized titles.
	ErrInvalidTitle = errors.New("maintenance: invalid title")

	// ErrInvalidDescription is returned for oversized descriptions.
	ErrInvalidDescription = errors.New("maintenance: invalid description")
)
