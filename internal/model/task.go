package model

import "time"

// Task is a single tracked item. Priority tasks recur every reset period and
// may carry a daily reminder; normal tasks are completed at most once.
type Task struct {
	ID              uint `gorm:"primaryKey"`
	Name            string
	IsPriority      bool       `gorm:"default:false"`
	IsCompleted     bool       `gorm:"default:false"`
	CompletedAt     *time.Time // nil while not completed
	ReminderEnabled bool       `gorm:"default:false"`
	ReminderHour    *int
	ReminderMinute  *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasReminder reports whether the task carries a fully configured reminder.
// Invariant: ReminderEnabled implies IsPriority and both time fields set.
func (t Task) HasReminder() bool {
	return t.IsPriority && t.ReminderEnabled && t.ReminderHour != nil && t.ReminderMinute != nil
}
