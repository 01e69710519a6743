// Package command turns a classified utterance into a change to the item
// store and a status line for the user.
package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dukerupert/routine/internal/intent"
	"github.com/dukerupert/routine/internal/model"
	"github.com/dukerupert/routine/internal/timeexpr"
)

var (
	// ErrParse is returned when a command's time or target cannot be understood.
	ErrParse = errors.New("could not parse command")
	// ErrNotFound is returned when a delete matches no item.
	ErrNotFound = errors.New("no matching item")
	// ErrUnrecognized is returned when no intent matches the command.
	ErrUnrecognized = errors.New("command not recognized")
)

const (
	dateLayout = "Mon Jan 2, 2006"
	timeLayout = "3:04 PM"
)

// Session is the state a command acts on.
type Session interface {
	Now() time.Time
	CreateItem(ctx context.Context, title string, at time.Time, kind model.Kind) (model.Item, error)
	DeleteAlarmAt(ctx context.Context, hour, minute int) (model.Item, bool, error)
	ActiveAlarms() []model.Item
	SchedulesOn(day time.Time) []model.Item
}

// Result describes the outcome of one command. Status is always set.
type Result struct {
	Intent intent.Intent `json:"intent"`
	Status string        `json:"status"`
	Item   *model.Item   `json:"item,omitempty"`
	Items  []model.Item  `json:"items,omitempty"`
	Err    error         `json:"-"`
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

type handlerFunc func(ctx context.Context, sess Session, text string) Result

var handlers = map[intent.Intent]handlerFunc{
	intent.CreateAlarm:    handleAlarm,
	intent.CreateSchedule: handleSchedule,
	intent.CreateReminder: handleReminder,
	intent.Show:           handleShow,
	intent.Delete:         handleDelete,
	intent.Unrecognized:   handleUnrecognized,
}

// Execute classifies text and runs the matching handler.
func Execute(ctx context.Context, sess Session, text string) Result {
	text = strings.TrimSpace(text)
	in := intent.Classify(text)
	res := handlers[in](ctx, sess, text)
	res.Intent = in
	return res
}

var (
	scheduleTitlePattern = regexp.MustCompile(`(?i)schedule\s+(.+?)\s+at|meeting\s+(.+?)\s+at|(.+?)\s+meeting`)
	reminderTitlePattern = regexp.MustCompile(`(?i)remind me to (.+?)(?:\s+at|\s+tomorrow|\s+today|$)`)
)

// ScheduleTitle extracts a title from a schedule command, falling back to a
// title derived from the keyword used.
func ScheduleTitle(text string) string {
	lower := strings.ToLower(text)
	title := model.DefaultTitle(model.KindMeeting)
	switch {
	case strings.Contains(lower, "meeting"):
		title = "Meeting"
	case strings.Contains(lower, "appointment"):
		title = "Appointment"
	}

	if m := scheduleTitlePattern.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				return g
			}
		}
	}
	return title
}

// ReminderTitle extracts the task from a "remind me to" command.
func ReminderTitle(text string) string {
	if m := reminderTitlePattern.FindStringSubmatch(text); m != nil {
		if g := strings.TrimSpace(m[1]); g != "" {
			return g
		}
	}
	return model.DefaultTitle(model.KindReminder)
}

func handleAlarm(ctx context.Context, sess Session, text string) Result {
	return create(ctx, sess, text, model.DefaultTitle(model.KindAlarm), model.KindAlarm,
		`Could not understand the time. Try "set alarm for 7 AM tomorrow"`,
		func(item model.Item) string {
			return fmt.Sprintf("Alarm set for %s at %s", item.Time.Format(dateLayout), item.Time.Format(timeLayout))
		})
}

func handleSchedule(ctx context.Context, sess Session, text string) Result {
	return create(ctx, sess, text, ScheduleTitle(text), model.KindMeeting,
		`Could not understand the time. Try "schedule meeting at 3 PM today"`,
		func(item model.Item) string {
			return fmt.Sprintf("Scheduled %q for %s at %s", item.Title, item.Time.Format(dateLayout), item.Time.Format(timeLayout))
		})
}

func handleReminder(ctx context.Context, sess Session, text string) Result {
	return create(ctx, sess, text, ReminderTitle(text), model.KindReminder,
		`Could not understand the time. Try "remind me to call John at 2:30 PM"`,
		func(item model.Item) string {
			return fmt.Sprintf("Reminder set: %q for %s at %s", item.Title, item.Time.Format(dateLayout), item.Time.Format(timeLayout))
		})
}

func create(ctx context.Context, sess Session, text, title string, kind model.Kind, hint string, done func(model.Item) string) Result {
	at, err := timeexpr.Resolve(text, sess.Now())
	if err != nil {
		return Result{Status: hint, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}

	item, err := sess.CreateItem(ctx, title, at, kind)
	if err != nil {
		return failure(err)
	}
	return Result{Status: done(item), Item: &item}
}

func handleShow(_ context.Context, sess Session, text string) Result {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "alarm") && !strings.Contains(lower, "schedule") && !strings.Contains(lower, "today") {
		alarms := sess.ActiveAlarms()
		if len(alarms) == 0 {
			return Result{Status: "No active alarms", Items: alarms}
		}
		times := make([]string, len(alarms))
		for i, a := range alarms {
			times[i] = a.Time.Format(timeLayout)
		}
		return Result{Status: "Active alarms: " + strings.Join(times, ", "), Items: alarms}
	}

	items := sess.SchedulesOn(sess.Now())
	if len(items) == 0 {
		return Result{Status: "No schedule items for today", Items: items}
	}
	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = fmt.Sprintf("%s at %s", s.Title, s.Time.Format(timeLayout))
	}
	return Result{Status: "Today's schedule: " + strings.Join(parts, ", "), Items: items}
}

func handleDelete(ctx context.Context, sess Session, text string) Result {
	const hint = `Could not understand what to delete. Try "delete alarm for 7 AM"`

	if !strings.Contains(strings.ToLower(text), "alarm") {
		return Result{Status: hint, Err: fmt.Errorf("%w: only alarms can be deleted by voice", ErrParse)}
	}
	tok, err := timeexpr.ParseTime(text)
	if err != nil {
		return Result{Status: hint, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}

	item, ok, err := sess.DeleteAlarmAt(ctx, tok.Hour, tok.Minute)
	if err != nil {
		return failure(err)
	}
	if !ok {
		return Result{Status: "Could not find alarm for that time", Err: fmt.Errorf("alarm at %s: %w", tok, ErrNotFound)}
	}
	return Result{Status: fmt.Sprintf("Alarm for %s deleted", item.Time.Format(timeLayout)), Item: &item}
}

func handleUnrecognized(context.Context, Session, string) Result {
	return Result{
		Status: `Command not recognized. Try "set alarm for 7 AM" or "schedule meeting at 3 PM"`,
		Err:    ErrUnrecognized,
	}
}

func failure(err error) Result {
	return Result{Status: "Error processing command. Please try again.", Err: err}
}
