package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNonStopAlwaysInSession(t *testing.T) {
	var s NonStop
	require.True(t, s.IsSessionTime(time.Now()))
	require.False(t, s.IsNewSession(time.Now(), time.Now().Add(24*time.Hour)))
}

func TestDailyWindow(t *testing.T) {
	d := Daily{
		Location:  time.UTC,
		StartTime: 9 * time.Hour,
		EndTime:   17 * time.Hour,
	}
	inWindow := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	beforeWindow := time.Date(2026, 7, 31, 6, 0, 0, 0, time.UTC)
	require.True(t, d.IsSessionTime(inWindow))
	require.False(t, d.IsSessionTime(beforeWindow))
}

func TestDailyWindowWrapsMidnight(t *testing.T) {
	d := Daily{
		Location:  time.UTC,
		StartTime: 22 * time.Hour,
		EndTime:   6 * time.Hour,
	}
	lateNight := time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 8, 1, 2, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.True(t, d.IsSessionTime(lateNight))
	require.True(t, d.IsSessionTime(earlyMorning))
	require.False(t, d.IsSessionTime(midday))
}

func TestDailyNewSessionCrossesDayBoundary(t *testing.T) {
	d := Daily{Location: time.UTC, StartTime: 0, EndTime: 24 * time.Hour}
	day1 := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.True(t, d.IsNewSession(day1, day2))
	require.False(t, d.IsNewSession(day1, day1.Add(time.Hour)))
}

func TestWeeklyWindow(t *testing.T) {
	w := Weekly{
		Location:  time.UTC,
		StartDay:  time.Monday,
		StartTime: 0,
		EndDay:    time.Friday,
		EndTime:   17 * time.Hour,
	}
	wednesday := time.Date(2026, 8, 5, 10, 0, 0, 0, time.UTC) // Wednesday
	saturday := time.Date(2026, 8, 8, 10, 0, 0, 0, time.UTC)  // Saturday
	require.True(t, w.IsSessionTime(wednesday))
	require.False(t, w.IsSessionTime(saturday))
}
