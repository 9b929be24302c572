package model

import "time"

// CompletionRecord logs one priority-task completion within one reset
// period. TaskName is denormalized so history stays readable after renames.
// TaskID + PeriodKey carry a unique index: toggling within the same period
// deletes and re-creates the row instead of stacking duplicates.
type CompletionRecord struct {
	ID        uint      `gorm:"primaryKey"`
	TaskID    uint      `gorm:"index;index:idx_completion_task_period,unique"`
	TaskName  string
	PeriodKey time.Time `gorm:"index:idx_completion_task_period,unique"`
	CreatedAt time.Time
}

// TableName keeps the unique index scoped to a stable table name.
func (CompletionRecord) TableName() string {
	return "completion_records"
}
