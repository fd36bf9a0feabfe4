package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/config"
	"github.com/CrowderSoup/kanban/database"
)

func setupEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", backend)
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "kanban.db"))
	t.Setenv("LOCAL_STORAGE_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yml")))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCLI_SeedImportExport(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			dir := setupEnv(t, backend)

			var boards []board.Board
			require.NoError(t, json.Unmarshal([]byte(run(t, "export", "--user", "ada@example.com")), &boards))
			assert.Empty(t, boards)

			run(t, "seed", "--user", "ada@example.com")
			require.NoError(t, json.Unmarshal([]byte(run(t, "export", "--user", "ada@example.com")), &boards))
			assert.Equal(t, board.SeedBoards(), boards)

			// status is rewritten to the owning column on import
			file := filepath.Join(dir, "import.json")
			imported := []board.Board{{
				ID:   5,
				Name: "Imported",
				Columns: []board.Column{{
					ID: 1, Name: "Only", Color: "#000000",
					Tasks: []board.Task{{ID: 1, Status: 9, Name: "t", SubTasks: []board.SubTask{}}},
				}},
			}}
			data, err := json.Marshal(imported)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(file, data, 0o600))

			run(t, "import", "--user", "ada@example.com", "--file", file)
			require.NoError(t, json.Unmarshal([]byte(run(t, "export", "--user", "ada@example.com")), &boards))
			require.Len(t, boards, 1)
			assert.Equal(t, 1, boards[0].Columns[0].Tasks[0].Status)
		})
	}
}

func TestDocumentStore_Mirror(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := database.InitDB(ctx, filepath.Join(dir, "kanban.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	users := database.NewDataService(db)

	docs, err := documentStore(ctx, config.StorageConfig{
		Backend:     config.BackendSQLite,
		LocalDir:    filepath.Join(dir, "data"),
		LocalMirror: true,
	}, users)
	require.NoError(t, err)
	assert.IsType(t, &database.Mirror{}, docs)

	docs, err = documentStore(ctx, config.StorageConfig{Backend: "tape"}, users)
	assert.Error(t, err)
	assert.Nil(t, docs)
}

func TestServe_RefusesDefaultSecret(t *testing.T) {
	setupEnv(t, config.BackendFile)
	t.Setenv("JWT_SECRET", config.DefaultJWTSecret)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.yml")})
	assert.ErrorContains(t, cmd.Execute(), "default jwt secret")
}
