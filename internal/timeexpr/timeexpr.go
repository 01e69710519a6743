// Package timeexpr resolves spoken time expressions such as "7 AM tomorrow"
// or "2:30 pm on friday" into absolute instants on the local clock.
package timeexpr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoTime is returned when the text carries no recognizable time of day.
	ErrNoTime = errors.New("no time of day found")
	// ErrOutOfRange is returned when a time token does not fit a 24-hour clock.
	ErrOutOfRange = errors.New("time of day out of range")
)

// Alternative (a) is H[:MM][ am|pm], alternative (b) is bare "H am|pm".
// Go's regexp picks the leftmost match and prefers (a) at the same position.
var timePattern = regexp.MustCompile(`(?i)(\d{1,2}):?(\d{2})?\s*(am|pm)?|(\d{1,2})\s*(am|pm)`)

var dayPattern = regexp.MustCompile(`(?i)(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// TimeToken is a time of day on a 24-hour clock.
type TimeToken struct {
	Hour   int
	Minute int
}

func (t TimeToken) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on date's calendar day, in
// date's location.
func (t TimeToken) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

type DayKind int

const (
	Today DayKind = iota
	Tomorrow
	Weekday
)

// DayToken names the day an expression refers to. Weekday is only meaningful
// when Kind is Weekday.
type DayToken struct {
	Kind    DayKind
	Weekday time.Weekday
}

func (d DayToken) String() string {
	switch d.Kind {
	case Tomorrow:
		return "tomorrow"
	case Weekday:
		return strings.ToLower(d.Weekday.String())
	default:
		return "today"
	}
}

// ParseTime extracts the first time of day from text and converts it to a
// 24-hour clock. Without an am/pm suffix the hour is taken as-is.
func ParseTime(text string) (TimeToken, error) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return TimeToken{}, ErrNoTime
	}

	var hourStr, minStr, period string
	if m[4] != "" {
		hourStr, period = m[4], m[5]
	} else {
		hourStr, minStr, period = m[1], m[2], m[3]
	}

	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return TimeToken{}, fmt.Errorf("parse hour %q: %w", hourStr, ErrNoTime)
	}
	minute := 0
	if minStr != "" {
		if minute, err = strconv.Atoi(minStr); err != nil {
			return TimeToken{}, fmt.Errorf("parse minute %q: %w", minStr, ErrNoTime)
		}
	}

	switch strings.ToLower(period) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeToken{}, fmt.Errorf("%q: %w", strings.TrimSpace(m[0]), ErrOutOfRange)
	}
	return TimeToken{Hour: hour, Minute: minute}, nil
}

// ParseDay extracts the first day keyword from text. It defaults to Today.
func ParseDay(text string) DayToken {
	m := dayPattern.FindStringSubmatch(text)
	if m == nil {
		return DayToken{Kind: Today}
	}
	word := strings.ToLower(m[1])
	switch word {
	case "today":
		return DayToken{Kind: Today}
	case "tomorrow":
		return DayToken{Kind: Tomorrow}
	}
	return DayToken{Kind: Weekday, Weekday: weekdays[word]}
}

// ResolveDay returns the calendar day the token refers to, relative to now.
// A named weekday is always in the future: naming today's weekday means the
// same day next week.
func ResolveDay(day DayToken, now time.Time) time.Time {
	switch day.Kind {
	case Tomorrow:
		return now.AddDate(0, 0, 1)
	case Weekday:
		ahead := (int(day.Weekday) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead)
	default:
		return now
	}
}

// Resolve turns text into an absolute instant: the first time of day in the
// text, on the day named in the text (today when absent), relative to now.
func Resolve(text string, now time.Time) (time.Time, error) {
	tok, err := ParseTime(text)
	if err != nil {
		return time.Time{}, err
	}
	return tok.On(ResolveDay(ParseDay(text), now)), nil
}
