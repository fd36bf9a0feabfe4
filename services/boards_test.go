package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/database"
)

// memoryDocs is an in-memory DocumentStore.
type memoryDocs struct {
	mu      sync.Mutex
	docs    map[string][]board.Board
	loadErr error
	saveErr error
	saves   int
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{docs: make(map[string][]board.Board)}
}

func (m *memoryDocs) Load(_ context.Context, uid string) ([]board.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	boards, ok := m.docs[uid]
	if !ok {
		return nil, database.ErrNotFound
	}
	return boards, nil
}

func (m *memoryDocs) Save(_ context.Context, uid string, boards []board.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[uid] = boards
	m.saves++
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string]int
}

func (n *recordingNotifier) Notify(uid string, _ []board.Board) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[string]int)
	}
	n.events[uid]++
}

func TestBoardService_OpenSeedsNewUser(t *testing.T) {
	t.Parallel()

	docs := newMemoryDocs()
	notifier := &recordingNotifier{}
	svc := NewBoardService(docs, notifier)

	store, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", store.User())
	assert.Equal(t, board.SeedBoards(), store.Boards())
	selected, ok := store.SelectedBoard()
	require.True(t, ok)
	assert.Equal(t, 1, selected.ID)

	assert.Equal(t, board.SeedBoards(), docs.docs["u1"], "seed data is persisted")
	assert.Equal(t, 1, notifier.events["u1"])
}

func TestBoardService_OpenHydratesExisting(t *testing.T) {
	t.Parallel()

	docs := newMemoryDocs()
	saved := []board.Board{{ID: 7, Name: "Saved", Columns: []board.Column{}}}
	docs.docs["u1"] = saved
	svc := NewBoardService(docs, nil)

	store, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, saved, store.Boards())
	assert.Zero(t, docs.saves, "hydrating does not write back")

	again, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, store, again)
}

func TestBoardService_OpenLoadError(t *testing.T) {
	t.Parallel()

	docs := newMemoryDocs()
	docs.loadErr = errors.New("disk on fire")
	svc := NewBoardService(docs, nil)

	_, err := svc.Open(context.Background(), "u1")
	assert.ErrorContains(t, err, "disk on fire")
}

func TestBoardService_MutationsPersistAndNotify(t *testing.T) {
	t.Parallel()

	docs := newMemoryDocs()
	notifier := &recordingNotifier{}
	svc := NewBoardService(docs, notifier)

	store, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)

	_, err = store.ToggleSubTask(1, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, store.Boards(), docs.docs["u1"])
	assert.Equal(t, 2, notifier.events["u1"])
	assert.Equal(t, board.StatusSaved, store.Status())
}

func TestBoardService_SaveFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	docs := newMemoryDocs()
	notifier := &recordingNotifier{}
	svc := NewBoardService(docs, notifier)

	store, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)

	docs.mu.Lock()
	docs.saveErr = errors.New("offline")
	docs.mu.Unlock()

	require.NoError(t, store.DeleteBoard(1))
	assert.Empty(t, store.Boards())
	assert.Equal(t, board.StatusFailed, store.Status())
	assert.Equal(t, 1, notifier.events["u1"], "failed saves are not announced")
}

func TestBoardService_CloseClearsStore(t *testing.T) {
	t.Parallel()

	docs := newMemoryDocs()
	svc := NewBoardService(docs, nil)

	store, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)
	svc.Close("u1")

	assert.Empty(t, store.User())
	assert.Empty(t, store.Boards())

	reopened, err := svc.Open(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotSame(t, store, reopened)
	assert.Equal(t, board.SeedBoards(), reopened.Boards())
}

func TestBoardService_SeedAndPersisted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewBoardService(newMemoryDocs(), nil)

	boards, err := svc.Persisted(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, boards)

	require.NoError(t, svc.Seed(ctx, "u1"))
	boards, err = svc.Persisted(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, board.SeedBoards(), boards)
}

// blockingDocs holds Load for one uid until release is closed.
type blockingDocs struct {
	*memoryDocs
	slowUID string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingDocs) Load(ctx context.Context, uid string) ([]board.Board, error) {
	if uid == b.slowUID {
		close(b.entered)
		<-b.release
	}
	return b.memoryDocs.Load(ctx, uid)
}

func TestBoardService_SlowLoadDoesNotBlockOtherUsers(t *testing.T) {
	t.Parallel()

	docs := &blockingDocs{
		memoryDocs: newMemoryDocs(),
		slowUID:    "slow",
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc := NewBoardService(docs, nil)

	slowDone := make(chan error, 1)
	go func() {
		_, err := svc.Open(context.Background(), "slow")
		slowDone <- err
	}()
	<-docs.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := svc.Open(context.Background(), "fast")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(docs.release)
		t.Fatal("opening one user waited on another user's load")
	}

	close(docs.release)
	require.NoError(t, <-slowDone)
}

func TestBoardService_ConcurrentOpenSharesStore(t *testing.T) {
	t.Parallel()

	svc := NewBoardService(newMemoryDocs(), nil)

	const n = 8
	stores := make([]*board.Store, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := svc.Open(context.Background(), "u1")
			assert.NoError(t, err)
			stores[i] = store
		}()
	}
	wg.Wait()

	for _, store := range stores[1:] {
		assert.Same(t, stores[0], store)
	}
}
