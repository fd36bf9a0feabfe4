package database

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CrowderSoup/kanban/board"
)

// Mirror writes every document to a remote primary and a local copy, and reads
// from the primary with the local copy as fallback.
type Mirror struct {
	Primary DocumentStore
	Local   DocumentStore
}

func (m *Mirror) Load(ctx context.Context, uid string) ([]board.Board, error) {
	boards, err := m.Primary.Load(ctx, uid)
	if err == nil {
		return boards, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slog.Warn("primary store unavailable, reading local copy", "uid", uid, "error", err)
	}

	local, localErr := m.Local.Load(ctx, uid)
	if localErr == nil {
		return local, nil
	}
	if errors.Is(localErr, ErrNotFound) {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return nil, errors.Join(err, localErr)
}

func (m *Mirror) Save(ctx context.Context, uid string, boards []board.Board) error {
	return errors.Join(m.Primary.Save(ctx, uid, boards), m.Local.Save(ctx, uid, boards))
}
