package database

import (
	"context"
	"errors"

	"github.com/CrowderSoup/kanban/board"
)

var (
	// ErrNotFound is returned by DocumentStore.Load when a user has no document yet.
	ErrNotFound = errors.New("board document not found")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// DocumentStore persists one board list per user.
type DocumentStore interface {
	Load(ctx context.Context, uid string) ([]board.Board, error)
	Save(ctx context.Context, uid string, boards []board.Board) error
}

var (
	_ DocumentStore = (*DataService)(nil)
	_ DocumentStore = (*S3Store)(nil)
	_ DocumentStore = (*FileStore)(nil)
	_ DocumentStore = (*Mirror)(nil)
)
