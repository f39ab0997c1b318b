package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines room persistence. Every lookup is owner scoped.
type Repository interface {
	Create(ctx context.Context, room *Room) error
	Get(ctx context.Context, id, userID string) (*Room, error)
	ListByUser(ctx context.Context, userID string) ([]Room, error)
	Rename(ctx context.Context, id, userID, name string) error
	Delete(ctx context.Context, id, userID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed room repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const roomColumns = "id, user_id, name, created_at, updated_at"

// Create inserts a room, generating the ID if empty.
func (r *SQLiteRepository) Create(ctx context.Context, room *Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	room.CreatedAt = now
	room.UpdatedAt = now
	ts := now.Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?)`,
		room.ID, room.UserID, room.Name, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}
	return nil
}

// Get returns the room with id if userID owns it.
func (r *SQLiteRepository) Get(ctx context.Context, id, userID string) (*Room, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ? AND user_id = ?`, id, userID)
	return scanRoom(row)
}

// ListByUser returns the user's rooms ordered by name.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE user_id = ? ORDER BY name COLLATE NOCASE, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// Rename changes a room's name.
func (r *SQLiteRepository) Rename(ctx context.Context, id, userID, name string) error {
	return r.exec(ctx, "renaming room",
		`UPDATE rooms SET name = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		name, time.Now().UTC().Format(time.RFC3339), id, userID,
	)
}

// Delete removes a room. Devices filed under it are kept.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	return r.exec(ctx, "deleting room", `DELETE FROM rooms WHERE id = ? AND user_id = ?`, id, userID)
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
		return ErrRoomNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(s scanner) (*Room, error) {
	var room Room
	var createdAt, updatedAt string
	if err := s.Scan(&room.ID, &room.UserID, &room.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	room.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	room.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &room, nil
}
