package service

import "errors"

var (
	// ErrEmptyName rejects tasks whose name is empty after trimming.
	ErrEmptyName = errors.New("task name is required")

	// ErrInvalidReminderConfig rejects reminders missing an hour or minute,
	// carrying an out-of-range time, or attached to a non-priority task.
	ErrInvalidReminderConfig = errors.New("reminder requires a priority task with both hour and minute")

	// ErrTaskNotFound signals a user command referencing a task that no
	// longer exists.
	ErrTaskNotFound = errors.New("task not found")
)
