package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"one-percent/internal/period"
	"one-percent/internal/repository"
)

// fakeNotifier records deliveries and withdrawals for assertions.
type fakeNotifier struct {
	mu        sync.Mutex
	fail      bool
	notified  []uint
	withdrawn []uint
}

func (n *fakeNotifier) Notify(_ context.Context, taskID uint, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("delivery rejected")
	}
	n.notified = append(n.notified, taskID)
	return nil
}

func (n *fakeNotifier) Withdraw(taskID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdrawn = append(n.withdrawn, taskID)
}

func (n *fakeNotifier) notifiedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notified)
}

type testEnv struct {
	store     *repository.Store
	feed      *FeedService
	scheduler *SchedulerService
	notifier  *fakeNotifier
	reminders *ReminderScheduler
	tasks     *TaskService
	reset     *ResetService
	history   *HistoryService
}

func newTestEnv(t *testing.T, boundary period.Boundary) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(dsn)
	require.NoError(t, err)

	store := repository.NewStore(db)
	feed := NewFeedService(store)
	scheduler := NewSchedulerService(time.UTC)
	notifier := &fakeNotifier{}
	reminders := NewReminderScheduler(store, notifier, scheduler)

	return &testEnv{
		store:     store,
		feed:      feed,
		scheduler: scheduler,
		notifier:  notifier,
		reminders: reminders,
		tasks:     NewTaskService(store, feed, reminders, boundary),
		reset:     NewResetService(store, feed, boundary),
		history:   NewHistoryService(store, boundary),
	}
}

// at pins a service clock to a fixed instant.
func at(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func intPtr(v int) *int { return &v }
