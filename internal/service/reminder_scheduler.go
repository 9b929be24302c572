package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"one-percent/internal/model"
	"one-percent/internal/notify"
	"one-percent/internal/period"
	"one-percent/internal/repository"
)

const fireTimeout = 30 * time.Second

// ReminderScheduler keeps at most one pending daily reminder job per task,
// keyed "task_reminder_{taskId}". Each firing re-reads the task fresh from
// the store: a vanished or disabled task terminates its own chain, a failed
// delivery is logged and the chain stays armed for tomorrow.
type ReminderScheduler struct {
	store     *repository.Store
	notifier  notify.Notifier
	scheduler *SchedulerService
	now       func() time.Time
}

func NewReminderScheduler(store *repository.Store, notifier notify.Notifier, scheduler *SchedulerService) *ReminderScheduler {
	return &ReminderScheduler{
		store:     store,
		notifier:  notifier,
		scheduler: scheduler,
		now:       time.Now,
	}
}

func jobKey(taskID uint) string {
	return fmt.Sprintf("task_reminder_%d", taskID)
}

// Arm schedules (or replaces) the task's daily reminder job.
func (s *ReminderScheduler) Arm(task *model.Task) error {
	if !task.HasReminder() {
		return ErrInvalidReminderConfig
	}
	hour, minute := *task.ReminderHour, *task.ReminderMinute
	taskID := task.ID

	if err := s.scheduler.ScheduleDaily(jobKey(taskID), hour, minute, func() {
		s.fire(taskID)
	}); err != nil {
		return err
	}

	log.Printf("[info] armed reminder for task %d (%s) at %02d:%02d, first firing in %s",
		taskID, task.Name, hour, minute, period.DelayUntil(s.now(), hour, minute).Round(time.Second))
	return nil
}

// Cancel drops the task's pending job and withdraws any visible
// notification.
func (s *ReminderScheduler) Cancel(taskID uint) {
	s.scheduler.Remove(jobKey(taskID))
	s.notifier.Withdraw(taskID)
}

// Armed reports whether the task has a pending reminder job.
func (s *ReminderScheduler) Armed(taskID uint) bool {
	return s.scheduler.Has(jobKey(taskID))
}

// RearmAll re-arms every reminder-enabled task from fresh store state.
// Called at startup: keyed scheduling makes it idempotent, so it doubles as
// a backstop against jobs lost to process death.
func (s *ReminderScheduler) RearmAll(ctx context.Context) error {
	tasks, err := s.store.Tasks.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("rearm reminders: %w", err)
	}
	armed := 0
	for i := range tasks {
		if !tasks[i].HasReminder() {
			continue
		}
		if err := s.Arm(&tasks[i]); err != nil {
			log.Printf("[warn] rearm task %d: %v", tasks[i].ID, err)
			continue
		}
		armed++
	}
	log.Printf("[info] rearmed %d reminder(s)", armed)
	return nil
}

// fire runs at the task's reminder time on the cron goroutine.
func (s *ReminderScheduler) fire(taskID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	task, err := s.store.Tasks.FindByID(ctx, taskID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Printf("[info] task %d gone, stopping reminder chain", taskID)
		s.Cancel(taskID)
		return
	case err != nil:
		// Transient read failure: keep the chain armed for tomorrow.
		log.Printf("[warn] reminder lookup for task %d: %v", taskID, err)
		return
	}

	if !task.HasReminder() {
		log.Printf("[info] reminder disabled for task %d, stopping chain", taskID)
		s.Cancel(taskID)
		return
	}

	if err := s.notifier.Notify(ctx, task.ID, task.Name); err != nil {
		// A lost notification must not break tomorrow's reminder.
		log.Printf("[warn] reminder delivery for task %d: %v", taskID, err)
	}
}
