package service

import (
	"context"
	"strings"
	"time"

	"one-percent/internal/model"
	"one-percent/internal/period"
	"one-percent/internal/repository"
)

const (
	heatmapFilled = "🟩"
	heatmapEmpty  = "⬜"
)

// HistoryService reads the completion log and derives the streak/heatmap
// figures shown to the user.
type HistoryService struct {
	store    *repository.Store
	boundary period.Boundary
	now      func() time.Time
}

func NewHistoryService(store *repository.Store, boundary period.Boundary) *HistoryService {
	return &HistoryService{
		store:    store,
		boundary: boundary,
		now:      time.Now,
	}
}

// History returns all completion records, newest first.
func (s *HistoryService) History(ctx context.Context) ([]model.CompletionRecord, error) {
	return s.store.Completions.ListAll(ctx)
}

// CurrentStreak counts consecutive periods with at least one completion,
// walking back from the current period. A not-yet-completed today does not
// break a streak that ran through yesterday.
func (s *HistoryService) CurrentStreak(records []model.CompletionRecord) int {
	done := periodSet(records)
	day := s.boundary.KeyFor(s.now())

	if _, ok := done[day.Unix()]; !ok {
		day = previousPeriod(day, s.boundary)
	}

	streak := 0
	for {
		if _, ok := done[day.Unix()]; !ok {
			return streak
		}
		streak++
		day = previousPeriod(day, s.boundary)
	}
}

// HeatmapRow renders the last days periods, oldest first, as filled or empty
// cells.
func (s *HistoryService) HeatmapRow(records []model.CompletionRecord, days int) string {
	done := periodSet(records)

	keys := make([]int64, 0, days)
	day := s.boundary.KeyFor(s.now())
	for i := 0; i < days; i++ {
		keys = append(keys, day.Unix())
		day = previousPeriod(day, s.boundary)
	}

	var sb strings.Builder
	for i := len(keys) - 1; i >= 0; i-- {
		if _, ok := done[keys[i]]; ok {
			sb.WriteString(heatmapFilled)
		} else {
			sb.WriteString(heatmapEmpty)
		}
	}
	return sb.String()
}

// PendingDays returns how many whole periods have passed since the task was
// created, floored at zero.
func (s *HistoryService) PendingDays(createdAt time.Time) int {
	start := s.boundary.KeyFor(createdAt)
	now := s.boundary.KeyFor(s.now())

	days := 0
	for start.Before(now) {
		start = nextPeriod(start, s.boundary)
		days++
	}
	if days < 0 {
		return 0
	}
	return days
}

func periodSet(records []model.CompletionRecord) map[int64]struct{} {
	set := make(map[int64]struct{}, len(records))
	for _, record := range records {
		set[record.PeriodKey.Unix()] = struct{}{}
	}
	return set
}

// previousPeriod steps one boundary back via the calendar, staying correct
// across DST days that are not 24h long.
func previousPeriod(key time.Time, b period.Boundary) time.Time {
	year, month, day := key.Date()
	return time.Date(year, month, day-1, b.Hour, b.Minute, 0, 0, key.Location())
}

func nextPeriod(key time.Time, b period.Boundary) time.Time {
	year, month, day := key.Date()
	return time.Date(year, month, day+1, b.Hour, b.Minute, 0, 0, key.Location())
}
