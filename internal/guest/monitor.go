// Package guest computes the state of time-boxed guest trial sessions.
package guest

import (
	"time"

	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// Status is a point-in-time view of a guest session.
type Status struct {
	Remaining        time.Duration `json:"-"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	PercentRemaining float64       `json:"percent_remaining"`
	PercentElapsed   float64       `json:"percent_elapsed"`
	Expired          bool          `json:"expired"`
	Converted        bool          `json:"converted"`
	Active           bool          `json:"active"`
}

// Evaluate reports the session window [startedAt, expiresAt] as seen at now.
func Evaluate(startedAt, expiresAt, now time.Time) (Status, error) {
	total := expiresAt.Sub(startedAt)
	if total <= 0 {
		return Status{}, pkgerrors.Validation("guest session must expire after it starts")
	}

	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	// Clamp for a now that lies before startedAt.
	if remaining > total {
		remaining = total
	}

	percent := float64(remaining) / float64(total) * 100
	st := Status{
		Remaining:        remaining,
		RemainingSeconds: int64(remaining / time.Second),
		PercentRemaining: percent,
		PercentElapsed:   100 - percent,
		Expired:          remaining <= 0,
	}
	st.Active = !st.Expired
	return st, nil
}

// EvaluateSession is Evaluate plus conversion: a converted session is never
// active again whatever the clock says.
func EvaluateSession(startedAt, expiresAt time.Time, convertedAt *time.Time, now time.Time) (Status, error) {
	st, err := Evaluate(startedAt, expiresAt, now)
	if err != nil {
		return Status{}, err
	}
	if convertedAt != nil {
		st.Converted = true
		st.Active = false
	}
	return st, nil
}
