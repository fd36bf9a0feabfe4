package board

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Persister writes a user's full board list. The store calls it after every
// mutation; a failure is logged and reflected in Status, never returned.
type Persister interface {
	Save(ctx context.Context, uid string, boards []Board) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, uid string, boards []Board) error

func (f PersisterFunc) Save(ctx context.Context, uid string, boards []Board) error {
	return f(ctx, uid, boards)
}

const defaultSaveTimeout = 10 * time.Second

// Store is the board collection of one user plus the selection cursor.
// It is safe for concurrent use; each operation is a single atomic transition.
type Store struct {
	mu       sync.RWMutex
	uid      string
	order    []int
	boards   map[int]*boardEntry
	selected int // 0 means no board selected
	status   SyncStatus
	version  uint64

	ids *Sequence

	saveMu       sync.Mutex
	savedVersion uint64
	persister    Persister
	saveTimeout  time.Duration
	logger       *slog.Logger
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithSaveTimeout(d time.Duration) Option {
	return func(s *Store) { s.saveTimeout = d }
}

// NewStore returns an empty store with no user and no selection.
func NewStore(opts ...Option) *Store {
	s := &Store{
		boards:      make(map[int]*boardEntry),
		status:      StatusIdle,
		ids:         &Sequence{},
		saveTimeout: defaultSaveTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate applies fn under the write lock and, when it succeeds, persists a
// snapshot of the resulting collection outside the lock.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	version, uid, snapshot := s.version, s.uid, s.boardsLocked()
	if s.persister != nil {
		s.status = StatusSaving
	}
	s.mu.Unlock()

	s.persist(uid, version, snapshot)
	return nil
}

// persist saves one snapshot. Saves are serialized, and a snapshot older than
// the last one written is dropped so the persisted copy never goes backwards.
func (s *Store) persist(uid string, version uint64, boards []Board) {
	if s.persister == nil {
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.savedVersion {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	err := s.persister.Save(ctx, uid, boards)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.logger.Error("failed to save boards", "uid", uid, "version", version, "error", err)
		return
	}
	s.savedVersion = version
	if version == s.version {
		s.status = StatusSaved
	}
}

func (s *Store) boardsLocked() []Board {
	out := make([]Board, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.boards[id].snapshot())
	}
	return out
}

func (s *Store) selectedLocked() (*boardEntry, error) {
	if s.selected == 0 {
		return nil, ErrNoBoardSelected
	}
	b, ok := s.boards[s.selected]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBoardNotFound, s.selected)
	}
	return b, nil
}

func (s *Store) columnLocked(columnID int) (*boardEntry, *columnEntry, error) {
	b, err := s.selectedLocked()
	if err != nil {
		return nil, nil, err
	}
	c, ok := b.columns[columnID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrColumnNotFound, columnID)
	}
	return b, c, nil
}

func (s *Store) taskLocked(columnID, taskID int) (*columnEntry, *taskEntry, error) {
	_, c, err := s.columnLocked(columnID)
	if err != nil {
		return nil, nil, err
	}
	t, ok := c.tasks[taskID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d in column %d", ErrTaskNotFound, taskID, columnID)
	}
	return c, t, nil
}

// CreateBoard appends b and selects it. Missing ids are assigned.
func (s *Store) CreateBoard(b Board) (Board, error) {
	var created Board
	err := s.mutate(func() error {
		if _, ok := s.boards[b.ID]; ok && b.ID != 0 {
			return fmt.Errorf("%w: %d", ErrDuplicateBoard, b.ID)
		}
		entry, err := newBoardEntry(s.ids, b)
		if err != nil {
			return err
		}
		s.boards[entry.id] = entry
		s.order = append(s.order, entry.id)
		s.selected = entry.id
		created = entry.snapshot()
		return nil
	})
	return created, err
}

// EditBoard replaces the board with b's id, keeping its position.
func (s *Store) EditBoard(b Board) (Board, error) {
	var edited Board
	err := s.mutate(func() error {
		if _, ok := s.boards[b.ID]; !ok || b.ID == 0 {
			return fmt.Errorf("%w: %d", ErrBoardNotFound, b.ID)
		}
		entry, err := newBoardEntry(s.ids, b)
		if err != nil {
			return err
		}
		s.boards[entry.id] = entry
		edited = entry.snapshot()
		return nil
	})
	return edited, err
}

// DeleteBoard removes the board and everything it owns. Deleting the selected
// board leaves no selection; the caller picks the next one.
func (s *Store) DeleteBoard(id int) error {
	return s.mutate(func() error {
		if _, ok := s.boards[id]; !ok {
			return fmt.Errorf("%w: %d", ErrBoardNotFound, id)
		}
		delete(s.boards, id)
		s.order = slices.DeleteFunc(s.order, func(v int) bool { return v == id })
		if s.selected == id {
			s.selected = 0
		}
		return nil
	})
}

// SelectBoard moves the cursor to board id. The selection is unchanged when id
// is unknown.
func (s *Store) SelectBoard(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[id]; !ok {
		return fmt.Errorf("%w: %d", ErrBoardNotFound, id)
	}
	s.selected = id
	return nil
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = 0
}

// SelectFirst selects the first board, or clears the selection when there is none.
func (s *Store) SelectFirst() (Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		s.selected = 0
		return Board{}, false
	}
	s.selected = s.order[0]
	return s.boards[s.selected].snapshot(), true
}

// CreateTask appends task to the column named by task.Status in the selected board.
func (s *Store) CreateTask(task Task) (Task, error) {
	var created Task
	err := s.mutate(func() error {
		b, c, err := s.columnLocked(task.Status)
		if err != nil {
			return err
		}
		if _, ok := b.columnOfTask(task.ID); ok && task.ID != 0 {
			return fmt.Errorf("%w: %d", ErrDuplicateTask, task.ID)
		}
		entry, err := newTaskEntry(s.ids, task)
		if err != nil {
			return err
		}
		c.insertTask(entry, -1)
		created = entry.snapshot(c.id)
		return nil
	})
	return created, err
}

func (s *Store) DeleteTask(columnID, taskID int) error {
	return s.mutate(func() error {
		c, _, err := s.taskLocked(columnID, taskID)
		if err != nil {
			return err
		}
		c.removeTask(taskID)
		return nil
	})
}

// EditTask replaces the task in the column named by task.Status.
func (s *Store) EditTask(task Task) (Task, error) {
	var edited Task
	err := s.mutate(func() error {
		c, _, err := s.taskLocked(task.Status, task.ID)
		if err != nil {
			return err
		}
		entry, err := newTaskEntry(s.ids, task)
		if err != nil {
			return err
		}
		c.tasks[entry.id] = entry
		edited = entry.snapshot(c.id)
		return nil
	})
	return edited, err
}

// MoveTask moves task out of fromColumnID into the column named by task.Status,
// at position (negative appends). When both columns are the same it is an edit
// that may also reorder the task.
func (s *Store) MoveTask(fromColumnID int, task Task, position int) (Task, error) {
	var moved Task
	err := s.mutate(func() error {
		from, _, err := s.taskLocked(fromColumnID, task.ID)
		if err != nil {
			return err
		}
		_, to, err := s.columnLocked(task.Status)
		if err != nil {
			return err
		}
		entry, err := newTaskEntry(s.ids, task)
		if err != nil {
			return err
		}

		if from.id == to.id && position < 0 {
			to.tasks[entry.id] = entry
		} else {
			from.removeTask(entry.id)
			to.insertTask(entry, position)
		}
		moved = entry.snapshot(to.id)
		return nil
	})
	return moved, err
}

// ToggleSubTask flips the completed flag of one subtask and returns the new value.
func (s *Store) ToggleSubTask(columnID, taskID, subTaskID int) (bool, error) {
	var completed bool
	err := s.mutate(func() error {
		_, t, err := s.taskLocked(columnID, taskID)
		if err != nil {
			return err
		}
		st, ok := t.subTasks[subTaskID]
		if !ok {
			return fmt.Errorf("%w: %d in task %d", ErrSubTaskNotFound, subTaskID, taskID)
		}
		st.Completed = !st.Completed
		t.subTasks[subTaskID] = st
		completed = st.Completed
		return nil
	})
	return completed, err
}

// Initialize replaces the whole collection, selects the first board and persists it.
func (s *Store) Initialize(boards []Board) error {
	return s.mutate(func() error {
		return s.replaceLocked(boards)
	})
}

// Hydrate replaces the whole collection with data that was just loaded from
// storage. Nothing is persisted.
func (s *Store) Hydrate(boards []Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.replaceLocked(boards); err != nil {
		return err
	}
	s.version++
	s.status = StatusSaved
	return nil
}

func (s *Store) replaceLocked(boards []Board) error {
	entries := make(map[int]*boardEntry, len(boards))
	order := make([]int, 0, len(boards))
	for _, b := range boards {
		if _, ok := entries[b.ID]; ok && b.ID != 0 {
			return fmt.Errorf("%w: %d", ErrDuplicateBoard, b.ID)
		}
		entry, err := newBoardEntry(s.ids, b)
		if err != nil {
			return fmt.Errorf("board %d: %w", b.ID, err)
		}
		entries[entry.id] = entry
		order = append(order, entry.id)
	}

	s.boards = entries
	s.order = order
	s.selected = 0
	if len(order) > 0 {
		s.selected = order[0]
	}
	return nil
}

// SetUser switches the store to uid and clears all board state.
func (s *Store) SetUser(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = uid
	s.boards = make(map[int]*boardEntry)
	s.order = nil
	s.selected = 0
	s.status = StatusIdle
}

// Boards returns a copy of the collection in order.
func (s *Store) Boards() []Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.boardsLocked()
}

func (s *Store) Board(id int) (Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return Board{}, fmt.Errorf("%w: %d", ErrBoardNotFound, id)
	}
	return b.snapshot(), nil
}

// SelectedBoard returns the board under the cursor, derived from the collection.
func (s *Store) SelectedBoard() (Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.selectedLocked()
	if err != nil {
		return Board{}, false
	}
	return b.snapshot(), true
}

func (s *Store) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid
}

func (s *Store) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Version counts applied transitions.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
