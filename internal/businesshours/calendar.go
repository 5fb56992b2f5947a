// Package businesshours decides whether agents may go available at the current time.
package businesshours

import (
	"context"
	"fmt"
	"strings"
	"time"

	"livechat-backend/internal/env"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

type Config struct {
	Enabled  bool
	Timezone string
	// Start and End are "HH:MM" in Timezone.
	Start    string
	End      string
	Workdays []time.Weekday
	// Holidays names a holiday set; "us" and "" (none) are supported.
	Holidays string
}

func ConfigFromEnv() (Config, error) {
	workdays, err := ParseWorkdays(env.GetList(env.BusinessHoursWorkdays))
	if err != nil {
		return Config{}, err
	}
	return Config{
		Enabled:  env.GetBool(env.BusinessHoursEnabled),
		Timezone: env.Get(env.BusinessHoursTimezone),
		Start:    env.Get(env.BusinessHoursStart),
		End:      env.Get(env.BusinessHoursEnd),
		Workdays: workdays,
		Holidays: env.Get(env.BusinessHoursHolidays),
	}, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWorkdays reads day names such as "mon" or "Monday". An empty list keeps the
// calendar's Monday to Friday default.
func ParseWorkdays(names []string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdays[key]
		if !ok {
			return nil, fmt.Errorf("business hours workday %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}

// Calendar is a weekly working window minus holidays. A disabled calendar allows every change.
type Calendar struct {
	enabled bool
	loc     *time.Location
	cal     *cal.BusinessCalendar
	now     func() time.Time
}

func New(cfg Config) (*Calendar, error) {
	c := &Calendar{enabled: cfg.Enabled, now: time.Now}
	if !cfg.Enabled {
		return c, nil
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("business hours timezone %q: %w", tz, err)
	}
	start, err := parseClock(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("business hours start: %w", err)
	}
	end, err := parseClock(cfg.End)
	if err != nil {
		return nil, fmt.Errorf("business hours end: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("business hours end %s must be after start %s", cfg.End, cfg.Start)
	}

	bc := cal.NewBusinessCalendar()
	bc.SetWorkHours(start, end)
	if len(cfg.Workdays) > 0 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			bc.SetWorkday(d, false)
		}
		for _, d := range cfg.Workdays {
			bc.SetWorkday(d, true)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Holidays)) {
	case "us":
		bc.AddHoliday(us.Holidays...)
	case "", "none":
	default:
		return nil, fmt.Errorf("unsupported holiday set %q", cfg.Holidays)
	}

	c.loc = loc
	c.cal = bc
	return c, nil
}

// IsOpen reports whether t falls inside working hours.
func (c *Calendar) IsOpen(t time.Time) bool {
	if !c.enabled {
		return true
	}
	return c.cal.IsWorkTime(t.In(c.loc))
}

// AllowAgentChangeServiceStatus applies to every agent alike.
func (c *Calendar) AllowAgentChangeServiceStatus(ctx context.Context, agentID string) (bool, error) {
	return c.IsOpen(c.now()), nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
