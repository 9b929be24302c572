// Package notify delivers user-visible reminders for priority tasks.
package notify

import (
	"context"
	"log"
)

// Notifier shows and withdraws per-task reminder notifications. Delivery
// failures are the caller's to log and swallow; a lost notification must not
// break the reminder chain.
type Notifier interface {
	Notify(ctx context.Context, taskID uint, taskName string) error
	Withdraw(taskID uint)
}

// LogNotifier writes reminders to the process log. Used when no delivery
// channel is wired, and in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, taskID uint, taskName string) error {
	log.Printf("[info] reminder due for task %d: %s", taskID, taskName)
	return nil
}

func (LogNotifier) Withdraw(uint) {}
