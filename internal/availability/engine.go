// Package availability decides which dates and times a service can be booked
// for. Every function is pure and fails closed on a nil rule.
package availability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// LookaheadDays bounds how far ahead the earliest date scan looks.
	LookaheadDays = 14
	// DefaultStepMinutes is the slot grid used by the reservation form.
	DefaultStepMinutes = 30

	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var allWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// ServiceRule is the booking constraint of one service. It is replaced
// wholesale whenever services are fetched again and never mutated.
type ServiceRule struct {
	ID          int64
	Code        string
	Name        string
	Description string
	AllowedDays []time.Weekday
	StartTime   string
	EndTime     string
}

// NewServiceRule builds a rule from backend fields. A nil allowedDays means
// the backend did not restrict the service, so every weekday is allowed.
func NewServiceRule(id int64, code, name, description string, allowedDays *string, startTime, endTime string) *ServiceRule {
	days := allWeekdays
	if allowedDays != nil {
		days = ParseAllowedDays(*allowedDays)
	}
	return &ServiceRule{
		ID:          id,
		Code:        code,
		Name:        name,
		Description: description,
		AllowedDays: days,
		StartTime:   NormalizeClock(startTime),
		EndTime:     NormalizeClock(endTime),
	}
}

// ParseAllowedDays splits a comma-separated list of weekday names such as
// "MONDAY, friday". Unknown names are ignored and the result is ordered
// Monday first.
func ParseAllowedDays(raw string) []time.Weekday {
	seen := make(map[time.Weekday]bool, 7)
	for _, part := range strings.Split(raw, ",") {
		day, ok := weekdayFromName(part)
		if ok {
			seen[day] = true
		}
	}

	days := make([]time.Weekday, 0, len(seen))
	for _, day := range allWeekdays {
		if seen[day] {
			days = append(days, day)
		}
	}
	return days
}

// Allows reports whether the weekday is bookable under the rule.
func (r *ServiceRule) Allows(day time.Weekday) bool {
	if r == nil {
		return false
	}
	for _, allowed := range r.AllowedDays {
		if allowed == day {
			return true
		}
	}
	return false
}

// AllowedDayNames returns the allowed weekdays as upper-case names.
func (r *ServiceRule) AllowedDayNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.AllowedDays))
	for _, day := range r.AllowedDays {
		names = append(names, WeekdayName(day))
	}
	return names
}

// WeekdayName renders a weekday the way the backend spells it, e.g. "MONDAY".
func WeekdayName(day time.Weekday) string {
	return strings.ToUpper(day.String())
}

func weekdayFromName(name string) (time.Weekday, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, day := range allWeekdays {
		if WeekdayName(day) == name {
			return day, true
		}
	}
	return 0, false
}

// CalendarDay anchors t at noon on its own calendar day in loc. Noon keeps
// day arithmetic away from midnight, where DST shifts would otherwise move
// the date.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, loc)
}

// ParseDate reads a bare YYYY-MM-DD as a calendar date in loc, anchored at
// noon. It never treats the string as a UTC instant.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in YYYY-MM-DD format")
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 12, 0, 0, 0, loc), nil
}

// DayName returns the weekday name of a YYYY-MM-DD string, or "" when the
// string is not a date.
func DayName(raw string) string {
	date, err := ParseDate(raw, time.Local)
	if err != nil {
		return ""
	}
	return WeekdayName(date.Weekday())
}

// NormalizeClock trims a backend time such as "09:00:00" to "09:00". Values
// that are not clock times come back empty.
func NormalizeClock(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{ClockLayout, "15:04:05", "15:04:05.000"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(ClockLayout)
		}
	}
	return ""
}

// EarliestAllowedDate scans forward from today for up to LookaheadDays days
// and returns the first allowed date. When nothing in the window is allowed it
// returns today+LookaheadDays with ok=false; that fallback date is not
// necessarily bookable and callers must not offer it as one.
func EarliestAllowedDate(rule *ServiceRule, today time.Time) (date time.Time, ok bool) {
	if rule == nil {
		return time.Time{}, false
	}
	day := CalendarDay(today, today.Location())
	for i := 0; i < LookaheadDays; i++ {
		if rule.Allows(day.Weekday()) {
			return day, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return day, false
}

// SelectableDates lists every allowed date in the look-ahead window,
// starting today.
func SelectableDates(rule *ServiceRule, today time.Time, days int) []time.Time {
	if rule == nil || days <= 0 {
		return nil
	}
	day := CalendarDay(today, today.Location())
	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		if rule.Allows(day.Weekday()) {
			dates = append(dates, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// IsDateInWindow reports whether the YYYY-MM-DD date lies in the days-long
// booking window that starts on today's calendar day. days <= 0 means
// LookaheadDays.
func IsDateInWindow(date string, today time.Time, days int) bool {
	if days <= 0 {
		days = LookaheadDays
	}
	loc := today.Location()
	day, err := ParseDate(date, loc)
	if err != nil {
		return false
	}
	first := CalendarDay(today, loc)
	last := first.AddDate(0, 0, days-1)
	return !day.Before(first) && !day.After(last)
}

// IsDateAllowed reports whether the YYYY-MM-DD date falls on an allowed weekday.
func IsDateAllowed(date string, rule *ServiceRule) bool {
	return isDateAllowedIn(date, rule, time.Local)
}

func isDateAllowedIn(date string, rule *ServiceRule, loc *time.Location) bool {
	if rule == nil {
		return false
	}
	parsed, err := ParseDate(date, loc)
	if err != nil {
		return false
	}
	return rule.Allows(parsed.Weekday())
}

// IsTimeAllowed reports whether HH:MM lies in [StartTime, EndTime]. Both
// bounds are zero-padded, so string order is clock order.
func IsTimeAllowed(clock string, rule *ServiceRule) bool {
	if rule == nil || rule.StartTime == "" || rule.EndTime == "" {
		return false
	}
	clock = NormalizeClock(clock)
	if clock == "" {
		return false
	}
	return rule.StartTime <= clock && clock <= rule.EndTime
}

// IsOnGrid reports whether an allowed time is also a whole number of steps
// after StartTime.
func IsOnGrid(clock string, rule *ServiceRule, stepMinutes int) bool {
	if !IsTimeAllowed(clock, rule) {
		return false
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	start, _ := minutesOf(rule.StartTime)
	value, ok := minutesOf(NormalizeClock(clock))
	if !ok {
		return false
	}
	return (value-start)%stepMinutes == 0
}

// EnumerateTimeSlots lists every HH:MM from StartTime to EndTime inclusive,
// stepping by stepMinutes. Missing bounds yield no slots.
func EnumerateTimeSlots(rule *ServiceRule, stepMinutes int) []string {
	if rule == nil {
		return nil
	}
	return enumerate(rule.StartTime, rule.EndTime, stepMinutes)
}

func enumerate(startTime, endTime string, stepMinutes int) []string {
	start, okStart := minutesOf(startTime)
	end, okEnd := minutesOf(endTime)
	if !okStart || !okEnd || start > end {
		return []string{}
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}

	slots := make([]string, 0, (end-start)/stepMinutes+1)
	for m := start; m <= end; m += stepMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

func minutesOf(clock string) (int, bool) {
	if clock == "" {
		return 0, false
	}
	parsed, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}

// FindRule returns the rule with the given id, or nil.
func FindRule(rules []*ServiceRule, id int64) *ServiceRule {
	for _, rule := range rules {
		if rule != nil && rule.ID == id {
			return rule
		}
	}
	return nil
}
