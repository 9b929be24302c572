package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs. Keyed entries have REPLACE
// semantics: scheduling under an existing key drops the old entry first, so
// re-arming is idempotent and each key holds at most one pending job.
type SchedulerService struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		entries: make(map[string]cron.EntryID),
	}
}

// ScheduleDaily registers a daily job at hour:minute under the given key,
// replacing any previous job for that key.
func (s *SchedulerService) ScheduleDaily(key string, hour, minute int, job func()) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}
	// cron format: second minute hour dom month dow
	spec := fmt.Sprintf("0 %d %d * * *", minute, hour)
	return s.schedule(key, spec, job)
}

// ScheduleInterval registers a periodic job under the given key, running
// every interval.
func (s *SchedulerService) ScheduleInterval(key string, interval time.Duration, job func()) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.schedule(key, fmt.Sprintf("@every %ds", seconds), job)
}

func (s *SchedulerService) schedule(key, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.cron.Remove(old)
	}
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		delete(s.entries, key)
		return fmt.Errorf("schedule %q: %w", key, err)
	}
	s.entries[key] = id
	return nil
}

// Remove cancels the pending job for key, if any.
func (s *SchedulerService) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[key]; ok {
		s.cron.Remove(id)
		delete(s.entries, key)
	}
}

// Has reports whether a job is pending under key.
func (s *SchedulerService) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
