package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/CrowderSoup/kanban/board"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	uid TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- one JSON array of boards per user
CREATE TABLE IF NOT EXISTS user_data (
	uid TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (uid) REFERENCES users(uid) ON DELETE CASCADE
);
`

// InitDB opens the sqlite database at path and creates the schema.
func InitDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one writer connection; also keeps :memory: databases to a single instance
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing db", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Info("database initialized", "path", path)
	return db, nil
}

// DataService handles users and their board documents in sqlite
type DataService struct {
	db *sql.DB
}

func NewDataService(db *sql.DB) *DataService {
	return &DataService{db: db}
}

// Load retrieves a user's boards
func (s *DataService) Load(ctx context.Context, uid string) ([]board.Board, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data FROM user_data WHERE uid = ?", uid)

	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user data: %w", err)
	}

	var boards []board.Board
	if err := json.Unmarshal([]byte(data), &boards); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user data: %w", err)
	}
	return boards, nil
}

// Save replaces a user's boards. The user row must exist.
func (s *DataService) Save(ctx context.Context, uid string, boards []board.Board) error {
	if boards == nil {
		boards = []board.Board{}
	}
	data, err := json.Marshal(boards)
	if err != nil {
		return fmt.Errorf("failed to marshal user data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_data (uid, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(uid) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, uid, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert user data: %w", err)
	}
	return nil
}

// CreateUser inserts a new account with a fresh uid.
func (s *DataService) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*User, error) {
	user := &User{
		UID:          uuid.NewString(),
		Email:        normalizeEmail(email),
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (uid, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.UID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *DataService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", normalizeEmail(email))
}

func (s *DataService) GetUser(ctx context.Context, uid string) (*User, error) {
	return s.getUser(ctx, "uid", uid)
}

func (s *DataService) getUser(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT uid, email, display_name, password_hash, created_at FROM users WHERE "+column+" = ?", value)

	var user User
	err := row.Scan(&user.UID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// FindOrCreateUser returns the account for email, creating a passwordless one
// on first use.
func (s *DataService) FindOrCreateUser(ctx context.Context, email string) (*User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user, err = s.CreateUser(ctx, email, "", "")
	if errors.Is(err, ErrUserExists) {
		return s.GetUserByEmail(ctx, email)
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
