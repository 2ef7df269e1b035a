// Package schedule implements §4.9's session schedule variants: whether
// a given instant falls inside a session's configured trading window,
// and whether two instants straddle a session-boundary crossing.
package schedule

import "time"

// Schedule decides session-time membership and boundary crossings.
type Schedule interface {
	// IsSessionTime reports whether instant t falls within the
	// configured session window.
	IsSessionTime(t time.Time) bool
	// IsNewSession reports whether prevCreation and now lie in
	// different session windows, i.e. a reset boundary was crossed.
	IsNewSession(prevCreation, now time.Time) bool
}

// NonStop is always in session and never reports a new-session
// boundary crossing (§4.9).
type NonStop struct{}

func (NonStop) IsSessionTime(time.Time) bool                { return true }
func (NonStop) IsNewSession(prevCreation, now time.Time) bool { return false }

// Daily is a start/end time-of-day window, in a fixed timezone,
// optionally evaluated against local wall-clock time rather than UTC.
type Daily struct {
	Location  *time.Location
	StartTime time.Duration // time-of-day offset from midnight
	EndTime   time.Duration
}

// IsSessionTime reports whether t's time-of-day (in d.Location) falls
// in [StartTime, EndTime). A window that wraps past midnight
// (EndTime < StartTime) is treated as spanning the day boundary.
func (d Daily) IsSessionTime(t time.Time) bool {
	tod := timeOfDay(t.In(d.Location))
	if d.StartTime <= d.EndTime {
		return tod >= d.StartTime && tod < d.EndTime
	}
	return tod >= d.StartTime || tod < d.EndTime
}

// IsNewSession reports whether the most recent session-start boundary
// at or before now is later than the one at or before prevCreation —
// i.e. a daily roll-over happened between the two instants.
func (d Daily) IsNewSession(prevCreation, now time.Time) bool {
	return !d.lastBoundary(prevCreation).Equal(d.lastBoundary(now))
}

func (d Daily) lastBoundary(t time.Time) time.Time {
	local := t.In(d.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, d.Location)
	boundary := midnight.Add(d.StartTime)
	if boundary.After(local) {
		boundary = boundary.AddDate(0, 0, -1)
	}
	return boundary
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// Weekly is a start/end day-of-week + time-of-day window.
type Weekly struct {
	Location  *time.Location
	StartDay  time.Weekday
	StartTime time.Duration
	EndDay    time.Weekday
	EndTime   time.Duration
}

// IsSessionTime reports whether t falls within the weekly window,
// comparing (weekday, time-of-day) pairs on a 7-day cycle.
func (w Weekly) IsSessionTime(t time.Time) bool {
	local := t.In(w.Location)
	pos := weekOffset(local.Weekday(), timeOfDay(local))
	start := weekOffset(w.StartDay, w.StartTime)
	end := weekOffset(w.EndDay, w.EndTime)
	if start <= end {
		return pos >= start && pos < end
	}
	return pos >= start || pos < end
}

// IsNewSession reports whether the last weekly-start boundary differs
// between prevCreation and now.
func (w Weekly) IsNewSession(prevCreation, now time.Time) bool {
	return !w.lastBoundary(prevCreation).Equal(w.lastBoundary(now))
}

func (w Weekly) lastBoundary(t time.Time) time.Time {
	local := t.In(w.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.Location)
	daysSinceStart := (int(local.Weekday()) - int(w.StartDay) + 7) % 7
	boundary := midnight.AddDate(0, 0, -daysSinceStart).Add(w.StartTime)
	if boundary.After(local) {
		boundary = boundary.AddDate(0, 0, -7)
	}
	return boundary
}

// weekOffset maps a (weekday, time-of-day) pair onto a single duration
// offset from the start of a Sunday-anchored week, for window-wrap
// comparisons.
func weekOffset(day time.Weekday, tod time.Duration) time.Duration {
	return time.Duration(day)*24*time.Hour + tod
}
