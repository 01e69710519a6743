// Package intent classifies a raw command into the action it asks for.
package intent

import "strings"

type Intent string

const (
	CreateAlarm    Intent = "create_alarm"
	CreateSchedule Intent = "create_schedule"
	CreateReminder Intent = "create_reminder"
	Show           Intent = "show"
	Delete         Intent = "delete"
	Unrecognized   Intent = "unrecognized"
)

// Rule maps a predicate over the lower-cased command to an intent.
type Rule struct {
	Intent Intent
	Match  func(text string) bool
}

var (
	alarmKeywords    = []string{"alarm"}
	scheduleKeywords = []string{"schedule", "meeting", "appointment"}
	remindKeywords   = []string{"remind"}
	showKeywords     = []string{"show", "list"}
	deleteKeywords   = []string{"delete", "remove", "cancel"}
)

// Rules is evaluated top to bottom and the first match wins. Alarm keywords
// outrank schedule keywords, so "schedule an alarm" is an alarm.
//
// The create rules step aside when the command leads with a show or delete
// verb; otherwise "delete alarm for 7 AM" and "show today's schedule" could
// never reach their handlers.
var Rules = []Rule{
	{CreateAlarm, creating(alarmKeywords)},
	{CreateSchedule, creating(scheduleKeywords)},
	{CreateReminder, creating(remindKeywords)},
	{Show, containsAny(showKeywords)},
	{Delete, containsAny(deleteKeywords)},
}

// Classify returns the intent of text. It never fails: commands that match
// no rule are Unrecognized.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range Rules {
		if r.Match(lower) {
			return r.Intent
		}
	}
	return Unrecognized
}

func containsAny(keywords []string) func(string) bool {
	return func(text string) bool {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

func creating(keywords []string) func(string) bool {
	match := containsAny(keywords)
	return func(text string) bool {
		return match(text) && !leadsWith(text, showKeywords) && !leadsWith(text, deleteKeywords)
	}
}

// leadsWith reports whether the first word of text is one of verbs.
func leadsWith(text string, verbs []string) bool {
	words := strings.FieldsFunc(text, isSeparator)
	if len(words) == 0 {
		return false
	}
	for _, v := range verbs {
		if words[0] == v {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
}
