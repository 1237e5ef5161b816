package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
	"Sunday":    time.Sunday,
}

// nextSlotOccurrence converts a day name ("Monday") and a time slot
// ("14:00 - 15:00 UTC") into the next UTC occurrence of the slot's start.
// A slot whose start already passed today rolls over to next week.
func nextSlotOccurrence(now time.Time, dayName, timeSlot string) (time.Time, error) {
	start := timeSlot
	if idx := strings.Index(timeSlot, " - "); idx >= 0 {
		start = timeSlot[:idx]
	}
	start = strings.TrimSpace(start)

	parts := strings.Split(start, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time slot %q", timeSlot)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid time slot %q", timeSlot)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time slot %q", timeSlot)
	}

	target, ok := weekdays[dayName]
	if !ok {
		return time.Time{}, fmt.Errorf("invalid day %q", dayName)
	}

	now = now.UTC()
	daysAhead := (int(target) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC).
		AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate, nil
}
