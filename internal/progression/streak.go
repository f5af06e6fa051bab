package progression

import "time"

// StreakPolicy decides what a new activity day does to the streak.
type StreakPolicy string

const (
	// StreakAnyNewDay increments on every new activity day, gaps included.
	StreakAnyNewDay StreakPolicy = "any_new_day"
	// StreakConsecutive increments only on the day after the last activity
	// and resets to 1 after a gap.
	StreakConsecutive StreakPolicy = "consecutive"
)

// StreakResult is the streak after recording activity on a given day.
type StreakResult struct {
	Streak   int  `json:"streak"`
	IsNewDay bool `json:"is_new_day"`
	Reset    bool `json:"reset"`
}

// StreakTracker advances activity streaks. Dates are calendar dates as built
// by clock.DateOf, never raw instants.
type StreakTracker struct {
	policy StreakPolicy
}

// NewStreakTracker creates a tracker; an empty policy means StreakAnyNewDay.
func NewStreakTracker(policy StreakPolicy) *StreakTracker {
	if policy == "" {
		policy = StreakAnyNewDay
	}
	return &StreakTracker{policy: policy}
}

// Next records activity on today given the current streak and the last
// active date (nil when the user has never been active).
func (t *StreakTracker) Next(current int, lastActive *time.Time, today time.Time) StreakResult {
	if lastActive == nil {
		return StreakResult{Streak: 1, IsNewDay: true}
	}
	if current < 0 {
		current = 0
	}

	last := dateOnly(*lastActive)
	day := dateOnly(today)

	// Same day, or a clock that moved backwards.
	if !day.After(last) {
		return StreakResult{Streak: current, IsNewDay: false}
	}

	if t.policy == StreakConsecutive && !day.Equal(last.AddDate(0, 0, 1)) {
		return StreakResult{Streak: 1, IsNewDay: true, Reset: true}
	}
	return StreakResult{Streak: current + 1, IsNewDay: true}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
