package fixcfg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gravwell/fixengine/schedule"
)

// BuildSchedule turns a SessionConfig's NonStopSession/StartDay/EndDay/
// StartTime/EndTime/TimeZone/UseLocalTime fields into a
// schedule.Schedule (§4.9).
func BuildSchedule(c *SessionConfig) (schedule.Schedule, error) {
	nonStop, err := c.NonStopSession.Bool()
	if err != nil {
		return nil, err
	}
	if nonStop {
		return schedule.NonStop{}, nil
	}

	loc, err := c.location()
	if err != nil {
		return nil, err
	}

	start, err := parseTimeOfDay(c.StartTime)
	if err != nil {
		return nil, fmt.Errorf("StartTime: %w", err)
	}
	end, err := parseTimeOfDay(c.EndTime)
	if err != nil {
		return nil, fmt.Errorf("EndTime: %w", err)
	}

	if c.StartDay == "" && c.EndDay == "" {
		return schedule.Daily{Location: loc, StartTime: start, EndTime: end}, nil
	}

	startDay, err := parseWeekday(c.StartDay)
	if err != nil {
		return nil, fmt.Errorf("StartDay: %w", err)
	}
	endDay, err := parseWeekday(c.EndDay)
	if err != nil {
		return nil, fmt.Errorf("EndDay: %w", err)
	}
	return schedule.Weekly{
		Location:  loc,
		StartDay:  startDay,
		StartTime: start,
		EndDay:    endDay,
		EndTime:   end,
	}, nil
}

func (c *SessionConfig) location() (*time.Location, error) {
	useLocal, err := c.UseLocalTime.Bool()
	if err != nil {
		return nil, err
	}
	if c.TimeZone != "" {
		return time.LoadLocation(c.TimeZone)
	}
	if useLocal {
		return time.Local, nil
	}
	return time.UTC, nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time-of-day %q", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	var ss int
	if len(parts) == 3 {
		if ss, err = strconv.Atoi(parts[2]); err != nil {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second, nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	if d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unrecognized weekday %q", s)
}
