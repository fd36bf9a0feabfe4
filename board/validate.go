package board

import (
	"errors"
	"strings"
)

// ValidateBoard checks the fields a board form requires. The store does not call
// it; request handlers do before invoking a store operation.
func ValidateBoard(b Board) error {
	var errs []error
	if strings.TrimSpace(b.Name) == "" {
		errs = append(errs, ErrEmptyBoardName)
	}
	for _, c := range b.Columns {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, ErrEmptyColumnName)
			break
		}
	}
	return errors.Join(errs...)
}

// ValidateTask checks the fields a task form requires.
func ValidateTask(t Task) error {
	var errs []error
	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, ErrEmptyTaskName)
	}
	for _, st := range t.SubTasks {
		if strings.TrimSpace(st.Name) == "" {
			errs = append(errs, ErrEmptySubTaskName)
			break
		}
	}
	if t.Status == 0 {
		errs = append(errs, ErrMissingStatus)
	}
	return errors.Join(errs...)
}
