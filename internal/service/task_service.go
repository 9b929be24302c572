package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"one-percent/internal/model"
	"one-percent/internal/period"
	"one-percent/internal/repository"
)

// TaskService implements the user-facing commands. Store failures from these
// commands propagate to the caller; reminder arming failures do not, they
// are logged and recovered by the next startup re-arm.
type TaskService struct {
	store     *repository.Store
	feed      *FeedService
	reminders *ReminderScheduler
	boundary  period.Boundary
	now       func() time.Time
}

func NewTaskService(store *repository.Store, feed *FeedService, reminders *ReminderScheduler, boundary period.Boundary) *TaskService {
	return &TaskService{
		store:     store,
		feed:      feed,
		reminders: reminders,
		boundary:  boundary,
		now:       time.Now,
	}
}

// AddTask creates a task. Passing both reminder fields on a priority task
// enables its daily reminder; passing only one, an out-of-range time, or a
// reminder on a normal task is rejected before anything is persisted.
func (s *TaskService) AddTask(ctx context.Context, name string, isPriority bool, reminderHour, reminderMinute *int) (*model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if err := validateReminder(isPriority, reminderHour, reminderMinute); err != nil {
		return nil, err
	}

	task := model.Task{
		Name:            name,
		IsPriority:      isPriority,
		ReminderEnabled: reminderHour != nil && reminderMinute != nil,
		ReminderHour:    reminderHour,
		ReminderMinute:  reminderMinute,
	}
	if err := s.store.Tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	if task.HasReminder() {
		if err := s.reminders.Arm(&task); err != nil {
			log.Printf("[warn] arm reminder for task %d: %v", task.ID, err)
		}
	}

	s.feed.Publish(ctx)
	return &task, nil
}

// UpdateTask persists an edited task and re-arms or cancels its reminder to
// match the new configuration.
func (s *TaskService) UpdateTask(ctx context.Context, task *model.Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return ErrEmptyName
	}
	if task.ReminderEnabled {
		if err := validateReminder(task.IsPriority, task.ReminderHour, task.ReminderMinute); err != nil {
			return err
		}
	}

	if err := s.store.Tasks.Update(ctx, task); err != nil {
		return err
	}

	if task.HasReminder() {
		if err := s.reminders.Arm(task); err != nil {
			log.Printf("[warn] arm reminder for task %d: %v", task.ID, err)
		}
	} else {
		s.reminders.Cancel(task.ID)
	}

	s.feed.Publish(ctx)
	return nil
}

// ToggleCompletion flips a task's completion state. The priority path keeps
// the per-period completion log in step with the flag inside one
// transaction; the normal path only touches the task row.
func (s *TaskService) ToggleCompletion(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	if !task.IsPriority {
		if task.IsCompleted {
			task.IsCompleted = false
			task.CompletedAt = nil
		} else {
			now := s.now()
			task.IsCompleted = true
			task.CompletedAt = &now
		}
		if err := s.store.Tasks.Update(ctx, task); err != nil {
			return nil, err
		}
		s.feed.Publish(ctx)
		return task, nil
	}

	key := s.boundary.KeyFor(s.now())
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if task.IsCompleted {
			if err := tx.Completions.DeleteForPeriod(ctx, task.ID, key); err != nil {
				return err
			}
			task.IsCompleted = false
			task.CompletedAt = nil
		} else {
			// A record for this period may already exist, e.g. after a
			// forced reset cleared the flag but kept the history.
			existing, err := tx.Completions.FindForPeriod(ctx, task.ID, key)
			if err != nil {
				return err
			}
			if existing == nil {
				if err := tx.Completions.Insert(ctx, &model.CompletionRecord{
					TaskID:    task.ID,
					TaskName:  task.Name,
					PeriodKey: key,
				}); err != nil {
					return err
				}
			}
			now := s.now()
			task.IsCompleted = true
			task.CompletedAt = &now
		}
		return tx.Tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.feed.Publish(ctx)
	return task, nil
}

// DeleteTask cancels the task's reminder, then removes the task and its
// completion history in one transaction.
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint) error {
	s.reminders.Cancel(taskID)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Completions.DeleteForTask(ctx, taskID); err != nil {
			return err
		}
		return tx.Tasks.Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}

	s.feed.Publish(ctx)
	return nil
}

// DeleteAllTasks removes every task and cancels their reminders. Completion
// history is kept; ClearCompletionHistory wipes it separately.
func (s *TaskService) DeleteAllTasks(ctx context.Context) error {
	tasks, err := s.store.Tasks.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		s.reminders.Cancel(task.ID)
	}

	if err := s.store.Tasks.DeleteAll(ctx); err != nil {
		return err
	}

	s.feed.Publish(ctx)
	return nil
}

// ClearCompletionHistory wipes the heatmap data.
func (s *TaskService) ClearCompletionHistory(ctx context.Context) error {
	if err := s.store.Completions.Clear(ctx); err != nil {
		return err
	}
	s.feed.Publish(ctx)
	return nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func validateReminder(isPriority bool, hour, minute *int) error {
	if hour == nil && minute == nil {
		return nil
	}
	if hour == nil || minute == nil || !isPriority {
		return ErrInvalidReminderConfig
	}
	if *hour < 0 || *hour > 23 || *minute < 0 || *minute > 59 {
		return ErrInvalidReminderConfig
	}
	return nil
}
