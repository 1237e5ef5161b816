package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, 10:00 UTC.
var scheduleNow = time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)

func TestNextSlotOccurrenceSameDayLater(t *testing.T) {
	got, err := nextSlotOccurrence(scheduleNow, "Wednesday", "14:00 - 15:00 UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 7, 14, 0, 0, 0, time.UTC), got)
}

func TestNextSlotOccurrenceSameDayPassedRollsOver(t *testing.T) {
	got, err := nextSlotOccurrence(scheduleNow, "Wednesday", "09:00 - 10:00 UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC), got)
}

func TestNextSlotOccurrenceLaterInWeek(t *testing.T) {
	got, err := nextSlotOccurrence(scheduleNow, "Friday", "18:30 - 19:30 UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 9, 18, 30, 0, 0, time.UTC), got)
}

func TestNextSlotOccurrenceEarlierWeekdayWrapsToNextWeek(t *testing.T) {
	got, err := nextSlotOccurrence(scheduleNow, "Monday", "08:00 - 09:00 UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC), got)
}

func TestNextSlotOccurrenceBareStartTime(t *testing.T) {
	got, err := nextSlotOccurrence(scheduleNow, "Thursday", "12:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC), got)
}

func TestNextSlotOccurrenceInvalidInput(t *testing.T) {
	_, err := nextSlotOccurrence(scheduleNow, "Wednesday", "not a slot")
	assert.Error(t, err)

	_, err = nextSlotOccurrence(scheduleNow, "Someday", "14:00 - 15:00 UTC")
	assert.Error(t, err)

	_, err = nextSlotOccurrence(scheduleNow, "Wednesday", "25:00 - 26:00 UTC")
	assert.Error(t, err)
}
