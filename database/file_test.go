package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/board"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "u1", board.SeedBoards()))
	boards, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, board.SeedBoards(), boards)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileStore_KeysAreSanitized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "../escape", nil))
	_, err = os.Stat(filepath.Join(dir, ".._escape.json"))
	assert.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "", nil))
	_, err = os.Stat(filepath.Join(dir, "data.json"))
	assert.NoError(t, err)
}

// memoryStore is a DocumentStore for mirror tests.
type memoryStore struct {
	docs    map[string][]board.Board
	loadErr error
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string][]board.Board)}
}

func (m *memoryStore) Load(_ context.Context, uid string) ([]board.Board, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	boards, ok := m.docs[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return boards, nil
}

func (m *memoryStore) Save(_ context.Context, uid string, boards []board.Board) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[uid] = boards
	return nil
}

func TestMirror_SavesBoth(t *testing.T) {
	t.Parallel()

	primary, local := newMemoryStore(), newMemoryStore()
	m := &Mirror{Primary: primary, Local: local}

	require.NoError(t, m.Save(context.Background(), "u", board.SeedBoards()))
	assert.Equal(t, board.SeedBoards(), primary.docs["u"])
	assert.Equal(t, board.SeedBoards(), local.docs["u"])
}

func TestMirror_SaveJoinsErrors(t *testing.T) {
	t.Parallel()

	remoteDown := errors.New("remote down")
	primary, local := newMemoryStore(), newMemoryStore()
	primary.saveErr = remoteDown
	m := &Mirror{Primary: primary, Local: local}

	err := m.Save(context.Background(), "u", board.SeedBoards())
	assert.ErrorIs(t, err, remoteDown)
	assert.Equal(t, board.SeedBoards(), local.docs["u"], "local copy is still written")
}

func TestMirror_LoadFallsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	primary, local := newMemoryStore(), newMemoryStore()
	local.docs["u"] = board.SeedBoards()
	m := &Mirror{Primary: primary, Local: local}

	boards, err := m.Load(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, board.SeedBoards(), boards)

	primary.loadErr = errors.New("timeout")
	boards, err = m.Load(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, board.SeedBoards(), boards)

	_, err = m.Load(ctx, "other")
	assert.ErrorContains(t, err, "timeout")

	primary.loadErr = nil
	_, err = m.Load(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}
