package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/config"
	"github.com/CrowderSoup/kanban/database"
	"github.com/CrowderSoup/kanban/handlers"
	"github.com/CrowderSoup/kanban/logging"
	"github.com/CrowderSoup/kanban/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg   *config.Config
	db    *sql.DB
	users *database.DataService
	docs  database.DocumentStore
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing db", "error", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "kanban",
		Short:        "Kanban board server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "path to config file")

	open := func(ctx context.Context) (*app, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logging.Init(os.Stderr, cfg.Log)
		return openApp(ctx, cfg)
	}

	rootCmd.AddCommand(
		newServeCmd(open),
		newExportCmd(open),
		newImportCmd(open),
		newSeedCmd(open),
	)
	return rootCmd
}

// openApp connects the user database and the configured document store.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.InitDB(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	users := database.NewDataService(db)

	docs, err := documentStore(ctx, cfg.Storage, users)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{cfg: cfg, db: db, users: users, docs: docs}, nil
}

func documentStore(ctx context.Context, cfg config.StorageConfig, users *database.DataService) (database.DocumentStore, error) {
	var primary database.DocumentStore
	switch cfg.Backend {
	case config.BackendSQLite:
		primary = users
	case config.BackendFile:
		return database.NewFileStore(cfg.LocalDir)
	case config.BackendS3:
		client, err := database.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		store := database.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		primary = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if !cfg.LocalMirror {
		return primary, nil
	}
	local, err := database.NewFileStore(cfg.LocalDir)
	if err != nil {
		return nil, err
	}
	slog.Info("mirroring boards to local storage", "dir", cfg.LocalDir)
	return &database.Mirror{Primary: primary, Local: local}, nil
}

func newServeCmd(open func(context.Context) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Auth.JWTSecret == config.DefaultJWTSecret {
				return errors.New("refusing to serve with the default jwt secret, set auth.jwt_secret or JWT_SECRET")
			}

			authService := services.NewAuthService(a.users, a.cfg.Auth, a.cfg.SMTP)

			hub := services.NewHub()
			go hub.Run(ctx)

			boardService := services.NewBoardService(a.docs, hub)

			server := &http.Server{
				Addr:         ":" + a.cfg.Server.Port,
				Handler:      handlers.NewRouter(a.cfg.Server, authService, boardService, hub),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("server starting", "port", a.cfg.Server.Port, "storage", a.cfg.Storage.Backend)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			return nil
		},
	}
}

// resolveUser finds the account for an email, creating it when absent.
func resolveUser(ctx context.Context, a *app, email string) (*database.User, error) {
	if email == "" {
		return nil, errors.New("--user is required")
	}
	return a.users.FindOrCreateUser(ctx, email)
}

func newExportCmd(open func(context.Context) (*app, error)) *cobra.Command {
	var email, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's boards as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(ctx, a, email)
			if err != nil {
				return err
			}
			boards, err := a.docs.Load(ctx, user.UID)
			if errors.Is(err, database.ErrNotFound) {
				boards = []board.Board{}
			} else if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(boards)
		},
	}
	cmd.Flags().StringVarP(&email, "user", "u", "", "email of the account to export")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newImportCmd(open func(context.Context) (*app, error)) *cobra.Command {
	var email, file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace a user's boards with a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var boards []board.Board
			if err := json.Unmarshal(data, &boards); err != nil {
				return fmt.Errorf("failed to decode %s: %w", file, err)
			}

			// loading through a store checks ids and fixes task status
			store := board.NewStore()
			if err := store.Hydrate(boards); err != nil {
				return fmt.Errorf("invalid boards: %w", err)
			}

			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(ctx, a, email)
			if err != nil {
				return err
			}
			if err := a.docs.Save(ctx, user.UID, store.Boards()); err != nil {
				return err
			}
			slog.Info("imported boards", "uid", user.UID, "boards", len(boards))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "user", "u", "", "email of the account to import into")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding an array of boards")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSeedCmd(open func(context.Context) (*app, error)) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset a user's boards to the demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(ctx, a, email)
			if err != nil {
				return err
			}
			if err := services.NewBoardService(a.docs, nil).Seed(ctx, user.UID); err != nil {
				return err
			}
			slog.Info("seeded boards", "uid", user.UID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "user", "u", "", "email of the account to seed")
	return cmd
}
