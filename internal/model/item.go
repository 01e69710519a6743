package model

import "time"

// Kind is the category of an item. It also decides which collection the item
// lives in: alarms hold KindAlarm, schedules hold everything else.
type Kind string

const (
	KindAlarm    Kind = "alarm"
	KindMeeting  Kind = "meeting"
	KindReminder Kind = "reminder"
)

// Collection names the in-memory list an item belongs to.
type Collection string

const (
	CollectionAlarms    Collection = "alarms"
	CollectionSchedules Collection = "schedules"
)

// Default titles used when a title cannot be extracted from a command.
const (
	DefaultAlarmTitle    = "Alarm"
	DefaultReminderTitle = "Reminder"
	DefaultScheduleTitle = "Schedule Item"
)

type Item struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Time   time.Time `json:"time"`
	Kind   Kind      `json:"kind"`
	Active bool      `json:"active"`
}

// ParseKind validates a kind string from manual entry.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindAlarm, KindMeeting, KindReminder:
		return k, true
	}
	return "", false
}

// CollectionOf returns the collection an item of kind k is stored in.
func CollectionOf(k Kind) Collection {
	if k == KindAlarm {
		return CollectionAlarms
	}
	return CollectionSchedules
}

// DefaultTitle returns the placeholder title for kind k.
func DefaultTitle(k Kind) string {
	switch k {
	case KindAlarm:
		return DefaultAlarmTitle
	case KindReminder:
		return DefaultReminderTitle
	default:
		return DefaultScheduleTitle
	}
}

// Due reports whether the item is active and within tolerance of now.
func (i Item) Due(now time.Time, tolerance time.Duration) bool {
	if !i.Active {
		return false
	}
	d := i.Time.Sub(now)
	if d < 0 {
		d = -d
	}
	return d < tolerance
}
