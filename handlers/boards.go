package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/services"
)

// BoardHandler exposes the board store of the signed-in user.
type BoardHandler struct {
	boardService *services.BoardService
}

func NewBoardHandler(boardService *services.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

type boardsView struct {
	Boards        []board.Board    `json:"boards"`
	SelectedBoard *board.Board     `json:"selectedBoard"`
	SyncStatus    board.SyncStatus `json:"syncStatus"`
}

func viewOf(store *board.Store) boardsView {
	view := boardsView{Boards: store.Boards(), SyncStatus: store.Status()}
	if selected, ok := store.SelectedBoard(); ok {
		view.SelectedBoard = &selected
	}
	return view
}

// storeFor opens the caller's store, writing the failure response itself.
func (h *BoardHandler) storeFor(w http.ResponseWriter, r *http.Request) (*board.Store, bool) {
	identity, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return nil, false
	}
	store, err := h.boardService.Open(r.Context(), identity.UID)
	if err != nil {
		writeFailure(w, r, err)
		return nil, false
	}
	return store, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// List returns the collection, the selected board and the sync status.
func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, viewOf(store))
}

// Initialize replaces the whole collection.
func (h *BoardHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	var boards []board.Board
	if err := decode(r, &boards); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	var errs []error
	for _, b := range boards {
		errs = append(errs, board.ValidateBoard(b))
	}
	if err := errors.Join(errs...); err != nil {
		writeFailure(w, r, err)
		return
	}

	if err := store.Initialize(boards); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(store))
}

func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	var b board.Board
	if err := decode(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if err := board.ValidateBoard(b); err != nil {
		writeFailure(w, r, err)
		return
	}

	created, err := store.CreateBoard(b)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (h *BoardHandler) Edit(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var b board.Board
	if err := decode(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	b.ID = id
	if err := board.ValidateBoard(b); err != nil {
		writeFailure(w, r, err)
		return
	}

	edited, err := store.EditBoard(b)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, edited)
}

// Delete removes a board. When the selected board goes, the first remaining
// board is selected.
func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := store.DeleteBoard(id); err != nil {
		writeFailure(w, r, err)
		return
	}
	if _, selected := store.SelectedBoard(); !selected {
		store.SelectFirst()
	}
	writeData(w, http.StatusOK, viewOf(store))
}

// Select moves the selection; a null id clears it.
func (h *BoardHandler) Select(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	var req struct {
		ID *int `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if req.ID == nil {
		store.ClearSelection()
	} else if err := store.SelectBoard(*req.ID); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(store))
}

func (h *BoardHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	var task board.Task
	if err := decode(r, &task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if err := board.ValidateTask(task); err != nil {
		writeFailure(w, r, err)
		return
	}

	created, err := store.CreateTask(task)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (h *BoardHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	var task board.Task
	if err := decode(r, &task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	task.ID = taskID
	if err := board.ValidateTask(task); err != nil {
		writeFailure(w, r, err)
		return
	}

	edited, err := store.EditTask(task)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, edited)
}

// MoveTask takes the task out of the column in the path and puts it into the
// column named by its status, at position when given.
func (h *BoardHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnId")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	var req struct {
		Task     board.Task `json:"task"`
		Position *int       `json:"position"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	req.Task.ID = taskID
	if err := board.ValidateTask(req.Task); err != nil {
		writeFailure(w, r, err)
		return
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	moved, err := store.MoveTask(columnID, req.Task, position)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, moved)
}

func (h *BoardHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnId")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}

	if err := store.DeleteTask(columnID, taskID); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) ToggleSubTask(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnId")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	subTaskID, ok := pathID(w, r, "subTaskId")
	if !ok {
		return
	}

	completed, err := store.ToggleSubTask(columnID, taskID, subTaskID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"completed": completed})
}
