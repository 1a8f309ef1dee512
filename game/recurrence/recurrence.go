// Package recurrence decides on which calendar days a quest is due.
// All decisions are pure functions of the quest and a UTC calendar day;
// time of day never matters.
package recurrence

import (
	"iter"
	"time"

	"github.com/questlogrpg/questlog/server/model"
)

// Day truncates t to its UTC calendar-day boundary.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days yields every calendar day from start to end inclusive, one day at
// a time. Inputs are normalized to UTC day boundaries first. The sequence
// is finite and restartable; an end before start yields nothing.
func Days(start, end time.Time) iter.Seq[time.Time] {
	first, last := Day(start), Day(end)
	return func(yield func(time.Time) bool) {
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// IsActiveOn reports whether the quest is due on the given calendar day.
// Only HABIT quests recur. WEEKLY matches the due date's UTC weekday,
// MONTHLY its UTC day of month, YEARLY its UTC month and day of month.
// Unknown frequencies never match. This function never fails.
func IsActiveOn(q *model.Quest, day time.Time) bool {
	if q.Type != model.QuestTypeHabit {
		return false
	}
	if q.Frequency == model.FrequencyDaily {
		return true
	}
	if q.DueDate == nil {
		return false
	}

	d := Day(day)
	ref := Day(*q.DueDate)

	switch q.Frequency {
	case model.FrequencyWeekly:
		return d.Weekday() == ref.Weekday()
	case model.FrequencyMonthly:
		return d.Day() == ref.Day()
	case model.FrequencyYearly:
		return d.Month() == ref.Month() && d.Day() == ref.Day()
	default:
		return false
	}
}
