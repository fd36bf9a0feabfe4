package board

// SeedBoards returns the demo collection used when a user has no saved document.
func SeedBoards() []Board {
	return []Board{
		{
			ID:   1,
			Name: "Project X",
			Columns: []Column{
				{
					ID:    1,
					Name:  "To Do",
					Color: "#FF5733",
					Tasks: []Task{
						{
							ID:          1,
							Status:      1,
							Name:        "Task 1",
							Description: "Implement feature A",
							SubTasks: []SubTask{
								{ID: 1, Name: "Subtask 1", Completed: false},
								{ID: 2, Name: "Subtask 2", Completed: true},
							},
						},
						{ID: 2, Status: 1, Name: "Task 2", Description: "Fix bug in module B", SubTasks: []SubTask{}},
					},
				},
				{
					ID:    2,
					Name:  "In Progress",
					Color: "#33FF57",
					Tasks: []Task{
						{
							ID:          3,
							Status:      2,
							Name:        "Task 3",
							Description: "Refactor codebase",
							SubTasks:    []SubTask{{ID: 3, Name: "Subtask 1", Completed: false}},
						},
					},
				},
				{
					ID:    3,
					Name:  "Done",
					Color: "#5733FF",
					Tasks: []Task{
						{ID: 4, Status: 3, Name: "Task 4", Description: "Write documentation", SubTasks: []SubTask{}},
					},
				},
			},
		},
	}
}
