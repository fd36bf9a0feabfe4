// Package board holds the kanban state store: boards, columns, tasks and subtasks,
// the selection cursor and the persistence hook that runs after every mutation.
package board

// Board is one kanban project. It is the unit persisted in a user's document.
type Board struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column is a colored lane; its id is the status of every task it holds.
type Column struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Tasks []Task `json:"tasks"`
}

type Task struct {
	ID          int       `json:"id"`
	Status      int       `json:"status"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SubTasks    []SubTask `json:"subTasks"`
}

type SubTask struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// SyncStatus reports the outcome of the last persistence attempt.
type SyncStatus string

const (
	StatusIdle   SyncStatus = "idle"
	StatusSaving SyncStatus = "saving"
	StatusSaved  SyncStatus = "saved"
	StatusFailed SyncStatus = "failed"
)

// Column returns the column with the given id.
func (b Board) Column(id int) (Column, bool) {
	for _, c := range b.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Task returns the task with the given id.
func (c Column) Task(id int) (Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// SubTask returns the subtask with the given id.
func (t Task) SubTask(id int) (SubTask, bool) {
	for _, st := range t.SubTasks {
		if st.ID == id {
			return st, true
		}
	}
	return SubTask{}, false
}
