package board

import "errors"

// Lookup errors
var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubTaskNotFound = errors.New("subtask not found")
	ErrNoBoardSelected = errors.New("no board selected")
)

// Identity errors
var (
	ErrDuplicateBoard   = errors.New("board id already exists")
	ErrDuplicateColumn  = errors.New("column id already exists in board")
	ErrDuplicateTask    = errors.New("task id already exists in board")
	ErrDuplicateSubTask = errors.New("subtask id already exists in task")
)

// Validation errors
var (
	ErrEmptyBoardName   = errors.New("board name cannot be empty")
	ErrEmptyColumnName  = errors.New("column names cannot be empty")
	ErrEmptyTaskName    = errors.New("task name cannot be empty")
	ErrEmptySubTaskName = errors.New("subtasks cannot be empty")
	ErrMissingStatus    = errors.New("task status must be set")
)

// IsNotFound reports whether err is one of the lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBoardNotFound) ||
		errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrSubTaskNotFound)
}

// IsConflict reports whether err is an id collision or a missing selection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateBoard) ||
		errors.Is(err, ErrDuplicateColumn) ||
		errors.Is(err, ErrDuplicateTask) ||
		errors.Is(err, ErrDuplicateSubTask) ||
		errors.Is(err, ErrNoBoardSelected)
}

// IsValidation reports whether err came from ValidateBoard or ValidateTask.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBoardName) ||
		errors.Is(err, ErrEmptyColumnName) ||
		errors.Is(err, ErrEmptyTaskName) ||
		errors.Is(err, ErrEmptySubTaskName) ||
		errors.Is(err, ErrMissingStatus)
}
