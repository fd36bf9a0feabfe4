package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/CrowderSoup/kanban/config"
	"github.com/CrowderSoup/kanban/services"
)

// NewRouter wires every endpoint and wraps the result in CORS handling.
func NewRouter(cfg config.ServerConfig, authService *services.AuthService, boardService *services.BoardService, hub *services.Hub) http.Handler {
	authHandler := NewAuthHandler(authService, boardService)
	boardHandler := NewBoardHandler(boardService)
	dataHandler := NewDataHandler(boardService, hub)
	authMiddleware := NewAuthMiddleware(authService)

	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/magic-link", authHandler.RequestMagicLink).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/magic-link", authHandler.HandleMagicLink).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/signup", authHandler.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Auth)

	api.HandleFunc("/auth/verify", authHandler.VerifyToken).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// Board routes
	api.HandleFunc("/boards", boardHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/boards", boardHandler.Initialize).Methods(http.MethodPut)
	api.HandleFunc("/boards", boardHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/boards/select", boardHandler.Select).Methods(http.MethodPost)
	api.HandleFunc("/boards/{id:[0-9]+}", boardHandler.Edit).Methods(http.MethodPut)
	api.HandleFunc("/boards/{id:[0-9]+}", boardHandler.Delete).Methods(http.MethodDelete)

	// Task routes act on the selected board
	api.HandleFunc("/tasks", boardHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId:[0-9]+}", boardHandler.EditTask).Methods(http.MethodPut)
	api.HandleFunc("/columns/{columnId:[0-9]+}/tasks/{taskId:[0-9]+}", boardHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/columns/{columnId:[0-9]+}/tasks/{taskId:[0-9]+}/move", boardHandler.MoveTask).Methods(http.MethodPost)
	api.HandleFunc("/columns/{columnId:[0-9]+}/tasks/{taskId:[0-9]+}/subtasks/{subTaskId:[0-9]+}/toggle", boardHandler.ToggleSubTask).Methods(http.MethodPost)

	// Whole-document routes
	api.HandleFunc("/data/get", dataHandler.GetData).Methods(http.MethodGet)
	api.HandleFunc("/data/sync", dataHandler.SyncData).Methods(http.MethodPost)

	// WebSocket route for real-time updates
	api.HandleFunc("/ws", dataHandler.HandleWebSocket)

	// Static file server for frontend
	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
