package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB implements registry.DB and captures Exec arguments.
type recordingDB struct {
	mu    sync.Mutex
	execs [][]any
	err   error
}

func (d *recordingDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.execs = append(d.execs, arguments)
	return pgconn.CommandTag{}, d.err
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (d *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestStoreWritesEntry(t *testing.T) {
	db := &recordingDB{}
	store := NewStore(db, zerolog.Nop())

	err := store.Log(context.Background(), "ws-1", "user-1", "service.deployed", "service", "svc-1", map[string]any{
		"status": "success",
	})
	require.NoError(t, err)
	store.Close()

	require.Len(t, db.execs, 1)
	args := db.execs[0]
	require.Len(t, args, 8)
	assert.NotEmpty(t, args[0], "generated id")
	assert.Equal(t, "ws-1", args[1])
	assert.Equal(t, "user-1", args[2])
	assert.Equal(t, "service.deployed", args[3])
	assert.Equal(t, "service", args[4])
	assert.Equal(t, "svc-1", args[5])
	assert.Equal(t, map[string]any{"status": "success"}, args[6])
}

func TestStoreDefaultsMetadata(t *testing.T) {
	db := &recordingDB{}
	store := NewStore(db, zerolog.Nop())

	require.NoError(t, store.Log(context.Background(), "ws-1", "", "bulk_deploy.started", "project", "proj-1", nil))
	store.Close()

	require.Len(t, db.execs, 1)
	assert.Equal(t, map[string]any{}, db.execs[0][6])
}

func TestStoreSurvivesWriteFailure(t *testing.T) {
	db := &recordingDB{err: context.DeadlineExceeded}
	store := NewStore(db, zerolog.Nop())

	require.NoError(t, store.Log(context.Background(), "ws-1", "", "a", "service", "svc-1", nil))
	require.NoError(t, store.Log(context.Background(), "ws-1", "", "b", "service", "svc-1", nil))
	store.Close()

	assert.Len(t, db.execs, 2, "a failed write does not stop the drain loop")
}
