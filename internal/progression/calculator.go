// Package progression turns completed exercises into XP, levels, streaks and
// achievements. Everything here is pure; persistence lives in the service layer.
package progression

import (
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// Scoring constants.
const (
	DefaultLevelThreshold  = 300
	PointsPerCorrectAnswer = 10
	CompletionBonus        = 50

	AchievementPerfectScore = "Perfect Score!"
)

// BonusPolicy decides when CompletionBonus is paid.
type BonusPolicy string

const (
	// BonusAnyAttempt pays the bonus whenever at least one answer was given.
	BonusAnyAttempt BonusPolicy = "any_attempt"
	// BonusFullCompletion pays the bonus only when every answer is correct.
	BonusFullCompletion BonusPolicy = "full_completion"
)

// Result is the outcome of one completed exercise.
type Result struct {
	BaseXP        int      `json:"base_xp"`
	BonusXP       int      `json:"bonus_xp"`
	XPGained      int      `json:"xp_gained"`
	PreviousXP    int      `json:"previous_xp"`
	NewXP         int      `json:"new_xp"`
	PreviousLevel int      `json:"previous_level"`
	NewLevel      int      `json:"new_level"`
	LeveledUp     bool     `json:"leveled_up"`
	Achievements  []string `json:"achievements"`
}

// Perfect reports whether the result earned the perfect-score achievement.
func (r Result) Perfect() bool {
	for _, a := range r.Achievements {
		if a == AchievementPerfectScore {
			return true
		}
	}
	return false
}

// LevelBreakdown describes where an XP total sits inside its level.
type LevelBreakdown struct {
	Level                int     `json:"level"`
	XPIntoLevel          int     `json:"xp_into_level"`
	XPToNextLevel        int     `json:"xp_to_next_level"`
	LevelProgressPercent float64 `json:"level_progress_percent"`
}

// Calculator computes XP gains and levels.
type Calculator struct {
	threshold int
	bonus     BonusPolicy
}

// NewCalculator creates a Calculator. A non-positive threshold falls back to
// DefaultLevelThreshold and an empty policy to BonusAnyAttempt.
func NewCalculator(threshold int, bonus BonusPolicy) *Calculator {
	if threshold <= 0 {
		threshold = DefaultLevelThreshold
	}
	if bonus == "" {
		bonus = BonusAnyAttempt
	}
	return &Calculator{threshold: threshold, bonus: bonus}
}

// Threshold returns the XP needed per level.
func (c *Calculator) Threshold() int { return c.threshold }

// Calculate applies one completion of correct/total answers to currentXP.
func (c *Calculator) Calculate(currentXP, correct, total int) (Result, error) {
	if currentXP < 0 {
		return Result{}, pkgerrors.Validation("current XP must not be negative")
	}
	if correct < 0 || total < 0 {
		return Result{}, pkgerrors.Validation("answer counts must not be negative")
	}
	if correct > total {
		return Result{}, pkgerrors.Validation("correct answers (%d) exceed total answers (%d)", correct, total)
	}

	res := Result{
		PreviousXP:    currentXP,
		PreviousLevel: c.LevelFor(currentXP),
		Achievements:  []string{},
	}

	// Nothing attempted, nothing earned.
	if total == 0 {
		res.NewXP = currentXP
		res.NewLevel = res.PreviousLevel
		return res, nil
	}

	res.BaseXP = correct * PointsPerCorrectAnswer
	if c.bonus == BonusAnyAttempt || correct == total {
		res.BonusXP = CompletionBonus
	}
	res.XPGained = res.BaseXP + res.BonusXP
	res.NewXP = currentXP + res.XPGained
	res.NewLevel = c.LevelFor(res.NewXP)
	res.LeveledUp = res.NewLevel > res.PreviousLevel

	if correct == total {
		res.Achievements = append(res.Achievements, AchievementPerfectScore)
	}

	return res, nil
}

// LevelFor derives the level of an XP total.
func (c *Calculator) LevelFor(xp int) int {
	if xp <= 0 {
		return 0
	}
	return xp / c.threshold
}

// Breakdown reports progress through the current level.
func (c *Calculator) Breakdown(xp int) LevelBreakdown {
	if xp < 0 {
		xp = 0
	}
	into := xp % c.threshold
	return LevelBreakdown{
		Level:                c.LevelFor(xp),
		XPIntoLevel:          into,
		XPToNextLevel:        c.threshold - into,
		LevelProgressPercent: float64(into) / float64(c.threshold) * 100,
	}
}
