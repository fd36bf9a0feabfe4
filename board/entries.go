package board

import (
	"fmt"
	"slices"
)

// The store keeps every level as an id-keyed map plus an order slice. A task's
// status is not stored: it is the id of the column that owns the entry.

type boardEntry struct {
	id          int
	name        string
	columnOrder []int
	columns     map[int]*columnEntry
}

type columnEntry struct {
	id        int
	name      string
	color     string
	taskOrder []int
	tasks     map[int]*taskEntry
}

type taskEntry struct {
	id           int
	name         string
	description  string
	subTaskOrder []int
	subTasks     map[int]SubTask
}

func (b *boardEntry) snapshot() Board {
	out := Board{ID: b.id, Name: b.name, Columns: make([]Column, 0, len(b.columnOrder))}
	for _, id := range b.columnOrder {
		out.Columns = append(out.Columns, b.columns[id].snapshot())
	}
	return out
}

func (c *columnEntry) snapshot() Column {
	out := Column{ID: c.id, Name: c.name, Color: c.color, Tasks: make([]Task, 0, len(c.taskOrder))}
	for _, id := range c.taskOrder {
		out.Tasks = append(out.Tasks, c.tasks[id].snapshot(c.id))
	}
	return out
}

func (t *taskEntry) snapshot(status int) Task {
	out := Task{
		ID:          t.id,
		Status:      status,
		Name:        t.name,
		Description: t.description,
		SubTasks:    make([]SubTask, 0, len(t.subTaskOrder)),
	}
	for _, id := range t.subTaskOrder {
		out.SubTasks = append(out.SubTasks, t.subTasks[id])
	}
	return out
}

// columnOfTask returns the column holding task id anywhere in the board.
func (b *boardEntry) columnOfTask(id int) (*columnEntry, bool) {
	for _, c := range b.columns {
		if _, ok := c.tasks[id]; ok {
			return c, true
		}
	}
	return nil, false
}

func (c *columnEntry) removeTask(id int) {
	delete(c.tasks, id)
	c.taskOrder = slices.DeleteFunc(c.taskOrder, func(v int) bool { return v == id })
}

// insertTask places t at position, appending when position is negative or past the end.
func (c *columnEntry) insertTask(t *taskEntry, position int) {
	c.tasks[t.id] = t
	if position < 0 || position >= len(c.taskOrder) {
		c.taskOrder = append(c.taskOrder, t.id)
		return
	}
	c.taskOrder = slices.Insert(c.taskOrder, position, t.id)
}

// observeBoard reports every caller supplied id to seq before any id is assigned,
// so generated ids never collide with supplied ones.
func observeBoard(seq *Sequence, b Board) {
	seq.Observe(b.ID)
	for _, c := range b.Columns {
		seq.Observe(c.ID)
		for _, t := range c.Tasks {
			observeTask(seq, t)
		}
	}
}

func observeTask(seq *Sequence, t Task) {
	seq.Observe(t.ID)
	for _, st := range t.SubTasks {
		seq.Observe(st.ID)
	}
}

func newBoardEntry(seq *Sequence, b Board) (*boardEntry, error) {
	observeBoard(seq, b)

	entry := &boardEntry{
		id:          b.ID,
		name:        b.Name,
		columnOrder: make([]int, 0, len(b.Columns)),
		columns:     make(map[int]*columnEntry, len(b.Columns)),
	}
	if entry.id == 0 {
		entry.id = seq.Next()
	}

	taskIDs := make(map[int]struct{})
	for _, c := range b.Columns {
		col := &columnEntry{
			id:        c.ID,
			name:      c.Name,
			color:     c.Color,
			taskOrder: make([]int, 0, len(c.Tasks)),
			tasks:     make(map[int]*taskEntry, len(c.Tasks)),
		}
		if col.id == 0 {
			col.id = seq.Next()
		}
		if _, ok := entry.columns[col.id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateColumn, col.id)
		}
		if col.color == "" {
			col.color = RandomColor()
		}

		for _, t := range c.Tasks {
			task, err := newTaskEntry(seq, t)
			if err != nil {
				return nil, err
			}
			if _, ok := taskIDs[task.id]; ok {
				return nil, fmt.Errorf("%w: %d", ErrDuplicateTask, task.id)
			}
			taskIDs[task.id] = struct{}{}
			col.insertTask(task, -1)
		}

		entry.columns[col.id] = col
		entry.columnOrder = append(entry.columnOrder, col.id)
	}
	return entry, nil
}

func newTaskEntry(seq *Sequence, t Task) (*taskEntry, error) {
	observeTask(seq, t)

	entry := &taskEntry{
		id:           t.ID,
		name:         t.Name,
		description:  t.Description,
		subTaskOrder: make([]int, 0, len(t.SubTasks)),
		subTasks:     make(map[int]SubTask, len(t.SubTasks)),
	}
	if entry.id == 0 {
		entry.id = seq.Next()
	}
	for _, st := range t.SubTasks {
		if st.ID == 0 {
			st.ID = seq.Next()
		}
		if _, ok := entry.subTasks[st.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSubTask, st.ID)
		}
		entry.subTasks[st.ID] = st
		entry.subTaskOrder = append(entry.subTaskOrder, st.ID)
	}
	return entry, nil
}
