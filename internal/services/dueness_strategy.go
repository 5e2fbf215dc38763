package services

import (
	"fmt"
	"time"

	"conti/internal/core"
)

// DuenessChecker decides whether a recurring expense should fire, given when
// it last fired and its anchor start date.
type DuenessChecker interface {
	IsDue(lastExecution, now time.Time, startDate core.Date) bool
}

type DailyChecker struct{}

// IsDue reports true once per calendar day.
func (DailyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return lastExecution.Format("2006-01-02") != now.Format("2006-01-02")
}

type WeeklyChecker struct{}

// IsDue reports true when 7 or more days have passed since the last run.
func (WeeklyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution).Hours()/24 >= 7
}

type MonthlyChecker struct{}

// IsDue reports true in a new month once the anchor day is reached. Anchor
// days past the end of a short month clamp to its last day.
func (MonthlyChecker) IsDue(lastExecution, now time.Time, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() && lastExecution.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Day(), now)
}

type YearlyChecker struct{}

// IsDue reports true in a new year once the anchor month and day are reached.
func (YearlyChecker) IsDue(lastExecution, now time.Time, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}

	switch {
	case int(now.Month()) < startDate.Month():
		return false
	case int(now.Month()) == startDate.Month():
		return now.Day() >= clampDay(startDate.Day(), now)
	default:
		return true
	}
}

// clampDay limits an anchor day to the last day of now's month.
func clampDay(day int, now time.Time) int {
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

var duenessStrategies = map[core.RepetitionTypes]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a repetition type.
func GetDuenessChecker(frequency core.RepetitionTypes) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}
