package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"one-percent/internal/period"
	"one-percent/internal/repository"
)

// ResetService un-marks completed priority tasks when a new reset period
// begins, leaving the completion history intact. The last observed period
// key starts unknown on every process start, so the first check always
// normalizes.
type ResetService struct {
	store    *repository.Store
	feed     *FeedService
	boundary period.Boundary
	now      func() time.Time

	mu      sync.Mutex
	lastKey time.Time
}

func NewResetService(store *repository.Store, feed *FeedService, boundary period.Boundary) *ResetService {
	return &ResetService{
		store:    store,
		feed:     feed,
		boundary: boundary,
		now:      time.Now,
	}
}

// CheckAndNormalize compares the current period key against the last
// observed one and, on a period change, clears completion flags whose
// completion belongs to an earlier period. Idempotent within a period; the
// periodic timer and the startup check may race, so a concurrent call just
// skips.
func (s *ResetService) CheckAndNormalize(ctx context.Context) error {
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	current := s.boundary.KeyFor(s.now())
	if current.Equal(s.lastKey) {
		return nil
	}

	changed, err := s.normalize(ctx, current)
	if err != nil {
		// lastKey stays unchanged so the next periodic check retries a
		// partially applied reset.
		return err
	}
	s.lastKey = current
	if changed > 0 {
		log.Printf("[info] period %s: reset %d priority task(s)", current.Format("2006-01-02 15:04"), changed)
		s.feed.Publish(ctx)
	}
	return nil
}

// normalize clears IsCompleted/CompletedAt on every completed priority task
// whose completion predates the current period. History rows are never
// touched here.
func (s *ResetService) normalize(ctx context.Context, current time.Time) (int, error) {
	tasks, err := s.store.Tasks.ListCompletedPriority(ctx)
	if err != nil {
		return 0, fmt.Errorf("list completed priority tasks: %w", err)
	}

	changed := 0
	for i := range tasks {
		task := &tasks[i]
		if task.CompletedAt != nil && !s.boundary.KeyFor(*task.CompletedAt).Before(current) {
			continue
		}
		task.IsCompleted = false
		task.CompletedAt = nil
		if err := s.store.Tasks.Update(ctx, task); err != nil {
			return changed, fmt.Errorf("reset task %d: %w", task.ID, err)
		}
		changed++
	}
	return changed, nil
}

// ForceReset un-marks every completed priority task regardless of period,
// for the user-triggered "reset now".
func (s *ResetService) ForceReset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.store.Tasks.ListCompletedPriority(ctx)
	if err != nil {
		return fmt.Errorf("list completed priority tasks: %w", err)
	}

	for i := range tasks {
		task := &tasks[i]
		task.IsCompleted = false
		task.CompletedAt = nil
		if err := s.store.Tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("reset task %d: %w", task.ID, err)
		}
	}

	if len(tasks) > 0 {
		s.feed.Publish(ctx)
	}
	return nil
}

// Register wires the engine's two triggers onto the scheduler: the frequent
// guard check and the keyed boundary job that fires right as a new period
// opens. Both run the same idempotent check.
func (s *ResetService) Register(scheduler *SchedulerService, interval time.Duration) error {
	check := func() {
		ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
		defer cancel()
		if err := s.CheckAndNormalize(ctx); err != nil {
			log.Printf("[warn] periodic reset check: %v", err)
		}
	}

	if err := scheduler.ScheduleInterval("daily_reset_check", interval, check); err != nil {
		return err
	}
	return scheduler.ScheduleDaily("daily_reset", s.boundary.Hour, s.boundary.Minute, check)
}
