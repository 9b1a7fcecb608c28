// Package metrics computes read-only statistics over the user state.
// Every function here is pure: given the same state and clock it returns the
// same result, and nothing is cached or mutated. Views recompute on demand.
package metrics

import (
	"fmt"
	"time"

	"github.com/becoming/becoming/internal/core"
)

// XP awarded per event. Wins weigh more than practice marks.
const (
	XPPerWin      = 10
	XPPerPractice = 5
)

// levelBreakpoints is the cumulative-XP floor of each level. Level N is the
// index (1-based) of the highest breakpoint <= XP.
var levelBreakpoints = []int{0, 100, 300, 600, 1000, 1500, 2100}

// dayKey formats a timestamp as its local calendar date.
func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// WeekKey formats a timestamp as its ISO-8601 week identifier, e.g.
// "2024-W01". The ISO year can differ from the calendar year around the
// new-year boundary; a date belongs to the year containing its week's
// Thursday.
func WeekKey(t time.Time) string {
	year, week := t.Local().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// UniqueCheckInDays counts the distinct local calendar dates touched by
// either wins or practice logs.
func UniqueCheckInDays(state *core.UserState) int {
	days := make(map[string]struct{})
	for _, log := range state.PracticeLogs {
		days[dayKey(log.Timestamp)] = struct{}{}
	}
	for _, win := range state.Wins {
		days[dayKey(win.Timestamp)] = struct{}{}
	}
	return len(days)
}

// TotalPracticed counts practice logs whose level is not "not_today".
func TotalPracticed(state *core.UserState) int {
	count := 0
	for _, log := range state.PracticeLogs {
		if log.Level.Practiced() {
			count++
		}
	}
	return count
}

// ReturningWeeks counts the distinct ISO weeks touched by either log
// collection.
func ReturningWeeks(state *core.UserState) int {
	weeks := make(map[string]struct{})
	for _, log := range state.PracticeLogs {
		weeks[WeekKey(log.Timestamp)] = struct{}{}
	}
	for _, win := range state.Wins {
		weeks[WeekKey(win.Timestamp)] = struct{}{}
	}
	return len(weeks)
}

// CurrentStreak counts consecutive active local days ending today or, if
// today has no activity yet, ending yesterday. An active day is one with at
// least one win or practice log.
func CurrentStreak(state *core.UserState, now time.Time) int {
	days := make(map[string]struct{})
	for _, log := range state.PracticeLogs {
		days[dayKey(log.Timestamp)] = struct{}{}
	}
	for _, win := range state.Wins {
		days[dayKey(win.Timestamp)] = struct{}{}
	}
	return streakEnding(days, now)
}

// streakEnding walks backward from now (or yesterday, when today is not in
// the set) counting consecutive days present in the set.
func streakEnding(days map[string]struct{}, now time.Time) int {
	if len(days) == 0 {
		return 0
	}

	cursor := now
	if _, ok := days[dayKey(cursor)]; !ok {
		// Today untouched so far; a streak through yesterday still counts.
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := days[dayKey(cursor)]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// IdentityScore is the bounded weighted sum shown on the identity card:
// min(100, daysActive*5 + practicesCompleted*2 + streak*3).
func IdentityScore(daysActive, practicesCompleted, streak int) int {
	score := daysActive*5 + practicesCompleted*2 + streak*3
	if score > 100 {
		return 100
	}
	return score
}

// ScoreFor computes the identity-card score for one identity from the logs
// touching its practices. An identity with no practices scores zero.
func ScoreFor(state *core.UserState, ident core.IdentityDefinition, now time.Time) int {
	practices := make(map[string]struct{}, len(ident.Practices))
	for _, p := range ident.Practices {
		practices[p] = struct{}{}
	}

	days := make(map[string]struct{})
	completed := 0
	for _, log := range state.PracticeLogs {
		if _, ok := practices[log.Practice]; !ok {
			continue
		}
		days[dayKey(log.Timestamp)] = struct{}{}
		if log.Level.Practiced() {
			completed++
		}
	}
	return IdentityScore(len(days), completed, streakEnding(days, now))
}

// TotalXP accrues XP over the whole history: each win and each practiced log
// contributes a fixed amount.
func TotalXP(state *core.UserState) int {
	return len(state.Wins)*XPPerWin + TotalPracticed(state)*XPPerPractice
}

// LevelForXP returns the 1-based level for a cumulative XP amount: the index
// of the highest breakpoint not exceeding xp. XP below zero clamps to level 1.
func LevelForXP(xp int) int {
	level := 1
	for i, floor := range levelBreakpoints {
		if xp >= floor {
			level = i + 1
		}
	}
	return level
}

// LevelProgress returns the fraction [0,1) of the way from the current level
// floor to the next. At or beyond the top breakpoint it returns 1.
func LevelProgress(xp int) float64 {
	level := LevelForXP(xp)
	if level >= len(levelBreakpoints) {
		return 1
	}
	floor := levelBreakpoints[level-1]
	ceil := levelBreakpoints[level]
	return float64(xp-floor) / float64(ceil-floor)
}

// ThisWeekWins filters wins to those at or after the focus cycle's week
// start. Without an active cycle it returns nil.
func ThisWeekWins(state *core.UserState) []core.Win {
	if state.CurrentFocusCycle == nil {
		return nil
	}
	start := state.CurrentFocusCycle.WeekStartDate
	var out []core.Win
	for _, win := range state.Wins {
		if !win.Timestamp.Before(start) {
			out = append(out, win)
		}
	}
	return out
}

// ThisWeekPracticed counts practiced (non-"not_today") logs at or after the
// focus cycle's week start.
func ThisWeekPracticed(state *core.UserState) int {
	if state.CurrentFocusCycle == nil {
		return 0
	}
	start := state.CurrentFocusCycle.WeekStartDate
	count := 0
	for _, log := range state.PracticeLogs {
		if log.Level.Practiced() && !log.Timestamp.Before(start) {
			count++
		}
	}
	return count
}

// PracticedToday reports whether the named practice has at least one
// practiced mark on the local date of now. Logging is never deduplicated;
// this is the derived "already done today" view.
func PracticedToday(state *core.UserState, practice string, now time.Time) bool {
	today := dayKey(now)
	for _, log := range state.PracticeLogs {
		if log.Practice == practice && log.Level.Practiced() && dayKey(log.Timestamp) == today {
			return true
		}
	}
	return false
}

// Summary bundles the derived statistics the UI renders on the progress
// screen.
type Summary struct {
	CheckInDays    int     `json:"check_in_days"`
	TotalPracticed int     `json:"total_practiced"`
	ReturningWeeks int     `json:"returning_weeks"`
	CurrentStreak  int     `json:"current_streak"`
	TotalXP        int     `json:"total_xp"`
	Level          int     `json:"level"`
	LevelProgress  float64 `json:"level_progress"`
	WeekWins       int     `json:"week_wins"`
	WeekPracticed  int     `json:"week_practiced"`
}

// Summarize computes the full summary in one pass over the state.
func Summarize(state *core.UserState, now time.Time) Summary {
	xp := TotalXP(state)
	return Summary{
		CheckInDays:    UniqueCheckInDays(state),
		TotalPracticed: TotalPracticed(state),
		ReturningWeeks: ReturningWeeks(state),
		CurrentStreak:  CurrentStreak(state, now),
		TotalXP:        xp,
		Level:          LevelForXP(xp),
		LevelProgress:  LevelProgress(xp),
		WeekWins:       len(ThisWeekWins(state)),
		WeekPracticed:  ThisWeekPracticed(state),
	}
}
