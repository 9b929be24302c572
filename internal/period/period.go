// Package period converts wall-clock instants into canonical reset-period
// keys. A period starts at a configurable HH:MM boundary (default midnight)
// and every instant maps to the boundary instant that opened its period.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Boundary is the time of day at which a new period begins.
type Boundary struct {
	Hour   int
	Minute int
}

// Midnight is the default boundary, making period == calendar day.
var Midnight = Boundary{}

// ParseBoundary parses an "HH:MM" string into a Boundary.
func ParseBoundary(raw string) (Boundary, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return Boundary{}, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Boundary{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Boundary{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return Boundary{Hour: hour, Minute: minute}, nil
}

func (b Boundary) String() string {
	return fmt.Sprintf("%02d:%02d", b.Hour, b.Minute)
}

// KeyFor returns the period key for t: the boundary instant of t's calendar
// date, or the previous date's boundary when t falls before it. Keys are
// recomputed from the calendar on every call, so a zone offset change never
// moves an instant into a different period retroactively.
func (b Boundary) KeyFor(t time.Time) time.Time {
	year, month, day := t.Date()
	key := time.Date(year, month, day, b.Hour, b.Minute, 0, 0, t.Location())
	if t.Before(key) {
		key = time.Date(year, month, day-1, b.Hour, b.Minute, 0, 0, t.Location())
	}
	return key
}

// Next returns the first boundary instant strictly after t.
func (b Boundary) Next(t time.Time) time.Time {
	year, month, day := t.Date()
	next := time.Date(year, month, day, b.Hour, b.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = time.Date(year, month, day+1, b.Hour, b.Minute, 0, 0, t.Location())
	}
	return next
}

// NextOccurrence returns the next wall-clock occurrence of hour:minute after
// now: today if that time of day is still ahead, otherwise tomorrow. The
// target is rebuilt from the calendar rather than by adding 24h, so it stays
// correct across DST transitions.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	year, month, day := now.Date()
	target := time.Date(year, month, day, hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = time.Date(year, month, day+1, hour, minute, 0, 0, now.Location())
	}
	return target
}

// DelayUntil returns how long from now until the next occurrence of
// hour:minute.
func DelayUntil(now time.Time, hour, minute int) time.Duration {
	return NextOccurrence(now, hour, minute).Sub(now)
}
