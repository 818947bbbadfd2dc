package shared_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

func TestNextDailyOccurrence_SameDay(t *testing.T) {
	// 10:00 UTC, target 14:30 the same day
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	next := shared.NextDailyOccurrence(now, 14, 30, time.UTC, nil)

	assert.Equal(t, time.Date(2026, 8, 24, 14, 30, 0, 0, time.UTC), next)
}

func TestNextDailyOccurrence_RollsToNextDay(t *testing.T) {
	// Already past the target time today.
	now := time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)

	next := shared.NextDailyOccurrence(now, 14, 30, time.UTC, nil)

	assert.Equal(t, time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC), next)
}

func TestNextDailyOccurrence_ExactInstantRolls(t *testing.T) {
	// The occurrence must be strictly after now.
	now := time.Date(2026, 8, 24, 4, 0, 0, 0, time.UTC)

	next := shared.NextDailyOccurrence(now, 4, 0, time.UTC, nil)

	assert.Equal(t, time.Date(2026, 8, 25, 4, 0, 0, 0, time.UTC), next)
}

func TestNextDailyOccurrence_WeekdayMask(t *testing.T) {
	// 2026-08-24 is a Monday; only Friday is allowed.
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	next := shared.NextDailyOccurrence(now, 2, 0, time.UTC, []time.Weekday{time.Friday})

	assert.Equal(t, time.Friday, next.Weekday())
	assert.Equal(t, time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC), next)
}

func TestNextDailyOccurrence_Timezone(t *testing.T) {
	// 2:00 in Mexico City (UTC-6) is 8:00 UTC.
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	now := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	next := shared.NextDailyOccurrence(now, 2, 0, loc, nil)

	assert.Equal(t, time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC), next)
}

func TestMockClock_SleepAdvancesTime(t *testing.T) {
	start := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := shared.NewMockClock(start)

	clock.Sleep(time.Minute)

	assert.Equal(t, start.Add(time.Minute), clock.Now())
}
