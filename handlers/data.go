package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/services"
)

// DataHandler serves the whole-document endpoints and the change feed
type DataHandler struct {
	boardService *services.BoardService
	hub          *services.Hub
	upgrader     websocket.Upgrader
}

func NewDataHandler(boardService *services.BoardService, hub *services.Hub) *DataHandler {
	return &DataHandler{
		boardService: boardService,
		hub:          hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced by the router; tokens gate the feed
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetData returns the persisted copy of the user's boards
func (h *DataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	identity, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	boards, err := h.boardService.Persisted(r.Context(), identity.UID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, boards)
}

// SyncData replaces the user's boards with the client's copy. Every connected
// device, the sender included, receives the result over the change feed.
func (h *DataHandler) SyncData(w http.ResponseWriter, r *http.Request) {
	identity, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	var boards []board.Board
	if err := decode(r, &boards); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	store, err := h.boardService.Open(r.Context(), identity.UID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := store.Initialize(boards); err != nil {
		writeFailure(w, r, err)
		return
	}

	slog.Debug("synced boards", "uid", identity.UID, "boards", len(boards))
	writeData(w, http.StatusOK, store.Boards())
}

// HandleWebSocket upgrades the HTTP connection to a WebSocket connection
func (h *DataHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("error upgrading to websocket", "uid", identity.UID, "error", err)
		return
	}

	client := h.hub.Attach(conn, identity.UID)
	slog.Info("websocket client registered", "uid", identity.UID, "client", client.ID)
}
