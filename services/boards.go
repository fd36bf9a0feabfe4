package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/database"
)

// Notifier publishes "document changed" events for a user.
type Notifier interface {
	Notify(uid string, boards []board.Board)
}

// BoardService keeps one hydrated store per signed-in user. Every store saves
// to the document store after each mutation and then notifies the user's
// other devices.
type BoardService struct {
	docs     database.DocumentStore
	notifier Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	stores map[string]*board.Store
}

// NewBoardService creates the service. notifier may be nil.
func NewBoardService(docs database.DocumentStore, notifier Notifier) *BoardService {
	return &BoardService{
		docs:     docs,
		notifier: notifier,
		logger:   slog.Default(),
		stores:   make(map[string]*board.Store),
	}
}

// Open returns the store for uid, loading it on first use. A user with no
// document gets the demo boards, which are saved immediately. Storage is only
// touched outside the service lock; when two requests race, the first store
// cached wins.
func (s *BoardService) Open(ctx context.Context, uid string) (*board.Store, error) {
	s.mu.Lock()
	store, ok := s.stores[uid]
	s.mu.Unlock()
	if ok {
		return store, nil
	}

	boards, err := s.docs.Load(ctx, uid)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.logger.Info("no saved boards, seeding demo data", "uid", uid)
		boards = board.SeedBoards()
		if err := s.docs.Save(ctx, uid, boards); err != nil {
			return nil, fmt.Errorf("failed to seed boards: %w", err)
		}
		if s.notifier != nil {
			s.notifier.Notify(uid, boards)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load boards: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[uid]; ok {
		return store, nil
	}

	store = board.NewStore(
		board.WithPersister(s.persister()),
		board.WithLogger(s.logger.With("uid", uid)),
	)
	store.SetUser(uid)
	if err := store.Hydrate(boards); err != nil {
		return nil, fmt.Errorf("failed to hydrate boards: %w", err)
	}

	s.stores[uid] = store
	return store, nil
}

// Close drops the user's store, as on logout.
func (s *BoardService) Close(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[uid]; ok {
		store.SetUser("")
		delete(s.stores, uid)
	}
}

// Seed writes the demo boards for a newly created account.
func (s *BoardService) Seed(ctx context.Context, uid string) error {
	if err := s.docs.Save(ctx, uid, board.SeedBoards()); err != nil {
		return fmt.Errorf("failed to seed boards: %w", err)
	}
	return nil
}

// Persisted returns the saved copy of uid's boards, bypassing the in-memory store.
func (s *BoardService) Persisted(ctx context.Context, uid string) ([]board.Board, error) {
	boards, err := s.docs.Load(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return []board.Board{}, nil
	}
	return boards, err
}

func (s *BoardService) persister() board.Persister {
	return board.PersisterFunc(func(ctx context.Context, uid string, boards []board.Board) error {
		// closed stores have no user left to save for
		if uid == "" {
			return nil
		}
		if err := s.docs.Save(ctx, uid, boards); err != nil {
			return err
		}
		if s.notifier != nil {
			s.notifier.Notify(uid, boards)
		}
		return nil
	})
}
