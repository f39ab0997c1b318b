package device

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-core/migrations"
)

// setupTestDB opens a migrated database with users alice and bob and a
// room "room-kitchen" owned by alice.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "devices.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	seed := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO users (id, username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, 'x', ?, ?)`,
			[]any{"alice", "alice", "alice@x.com", ts, ts}},
		{`INSERT INTO users (id, username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, 'x', ?, ?)`,
			[]any{"bob", "bob", "bob@x.com", ts, ts}},
		{`INSERT INTO rooms (id, user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			[]any{"room-kitchen", "alice", "Kitchen", ts, ts}},
	}
	for _, s := range seed {
		if _, err := db.ExecContext(ctx, s.query, s.args...); err != nil {
			t.Fatalf("seeding test database: %v", err)
		}
	}
	return db.DB
}

// countingNotifier records how often it was triggered.
type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) NotifyDeviceChanged() {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// recordingMetrics captures metric writes.
type recordingMetrics struct {
	mu    sync.Mutex
	power []bool
	temps []float64
}

func (m *recordingMetrics) WritePowerState(_ string, on bool) {
	m.mu.Lock()
	m.power = append(m.power, on)
	m.mu.Unlock()
}

func (m *recordingMetrics) WriteTemperature(_ string, celsius float64, _ time.Time) {
	m.mu.Lock()
	m.temps = append(m.temps, celsius)
	m.mu.Unlock()
}
