package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/CrowderSoup/kanban/board"
)

// anonymousKey names the document of a session with no signed-in user.
const anonymousKey = "data"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore is the local-storage adapter: one JSON file per user in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(uid string) string {
	if uid == "" {
		uid = anonymousKey
	}
	return filepath.Join(s.dir, unsafeKeyChars.ReplaceAllString(uid, "_")+".json")
}

func (s *FileStore) Load(_ context.Context, uid string) ([]board.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(uid))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read boards: %w", err)
	}

	var boards []board.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		return nil, fmt.Errorf("failed to decode boards: %w", err)
	}
	return boards, nil
}

// Save writes to a temp file and renames it so readers never see a partial document.
func (s *FileStore) Save(_ context.Context, uid string, boards []board.Board) error {
	if boards == nil {
		boards = []board.Board{}
	}
	data, err := json.Marshal(boards)
	if err != nil {
		return fmt.Errorf("failed to encode boards: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(uid)
	tmp, err := os.CreateTemp(s.dir, ".boards-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write boards: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace boards file: %w", err)
	}
	return nil
}
