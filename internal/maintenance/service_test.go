package maintenance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AddLog(t *testing.T) {
	svc := NewService(NewSQLiteRepository(setupTestDB(t)))
	ctx := context.Background()

	log, err := svc.AddLog(ctx, "alice", "dev-1", "  filter changed ", " quarterly ")
	require.NoError(t, err)
	assert.Equal(t, "filter changed", log.Title)
	assert.Equal(t, "quarterly", log.Description)
	assert.False(t, log.CreatedAt.IsZero())

	_, err = svc.AddLog(ctx, "alice", "dev-1", " ", "")
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = svc.AddLog(ctx, "alice", "dev-1", "ok", strings.Repeat("x", maxDescriptionLength+1))
	assert.ErrorIs(t, err, ErrInvalidDescription)

	_, err = svc.AddLog(ctx, "alice", "dev-2", "not mine", "")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestService_UpdateDeleteLog(t *testing.T) {
	svc := NewService(NewSQLiteRepository(setupTestDB(t)))
	ctx := context.Background()

	log, err := svc.AddLog(ctx, "alice", "dev-1", "installed", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateLog(ctx, log.ID, "alice", "", "x"), ErrInvalidTitle)
	require.NoError(t, svc.UpdateLog(ctx, log.ID, "alice", "reinstalled", "moved"))

	result, err := svc.ListForDevice(ctx, "dev-1", "alice", Page{})
	require.NoError(t, err)
	require.Len(t, result.Logs, 1)
	assert.Equal(t, "reinstalled", result.Logs[0].Title)

	require.NoError(t, svc.DeleteLog(ctx, log.ID, "alice"))
	assert.ErrorIs(t, svc.DeleteLog(ctx, log.ID, "alice"), ErrLogNotFound)
}
