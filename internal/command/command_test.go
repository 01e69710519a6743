package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/routine/internal/intent"
	"github.com/dukerupert/routine/internal/model"
	"github.com/dukerupert/routine/internal/timeexpr"
)

// 2024-01-01 is a Monday.
var refNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)

type fakeSession struct {
	now       time.Time
	alarms    []model.Item
	schedules []model.Item
	next      int
	fail      error
}

func newFakeSession() *fakeSession {
	return &fakeSession{now: refNow}
}

func (f *fakeSession) Now() time.Time { return f.now }

func (f *fakeSession) CreateItem(_ context.Context, title string, at time.Time, kind model.Kind) (model.Item, error) {
	if f.fail != nil {
		return model.Item{}, f.fail
	}
	f.next++
	item := model.Item{ID: fmt.Sprintf("item-%d", f.next), Title: title, Time: at, Kind: kind, Active: true}
	if kind == model.KindAlarm {
		f.alarms = append(f.alarms, item)
	} else {
		f.schedules = append(f.schedules, item)
	}
	return item, nil
}

func (f *fakeSession) DeleteAlarmAt(_ context.Context, hour, minute int) (model.Item, bool, error) {
	if f.fail != nil {
		return model.Item{}, false, f.fail
	}
	for i, a := range f.alarms {
		if a.Time.Hour() == hour && a.Time.Minute() == minute {
			f.alarms = append(f.alarms[:i], f.alarms[i+1:]...)
			return a, true, nil
		}
	}
	return model.Item{}, false, nil
}

func (f *fakeSession) ActiveAlarms() []model.Item {
	var out []model.Item
	for _, a := range f.alarms {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeSession) SchedulesOn(day time.Time) []model.Item {
	var out []model.Item
	for _, s := range f.schedules {
		if s.Time.YearDay() == day.YearDay() && s.Time.Year() == day.Year() {
			out = append(out, s)
		}
	}
	return out
}

func TestAlarmScenario(t *testing.T) {
	sess := newFakeSession()
	res := Execute(context.Background(), sess, "set alarm for 7 AM tomorrow")

	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Intent != intent.CreateAlarm {
		t.Errorf("intent = %s, want %s", res.Intent, intent.CreateAlarm)
	}
	want := time.Date(2024, 1, 2, 7, 0, 0, 0, time.Local)
	if res.Item == nil || !res.Item.Time.Equal(want) {
		t.Fatalf("item = %+v, want time %v", res.Item, want)
	}
	if res.Item.Title != "Alarm" || res.Item.Kind != model.KindAlarm || !res.Item.Active {
		t.Errorf("item = %+v", res.Item)
	}
	if len(sess.alarms) != 1 {
		t.Errorf("alarms = %d, want 1", len(sess.alarms))
	}
	if !strings.Contains(res.Status, "7:00 AM") {
		t.Errorf("status %q missing time", res.Status)
	}
}

func TestScheduleScenario(t *testing.T) {
	sess := newFakeSession()
	res := Execute(context.Background(), sess, "schedule team sync at 3 PM today")

	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	want := time.Date(2024, 1, 1, 15, 0, 0, 0, time.Local)
	if res.Item == nil || !res.Item.Time.Equal(want) {
		t.Fatalf("item = %+v, want time %v", res.Item, want)
	}
	if res.Item.Kind != model.KindMeeting {
		t.Errorf("kind = %s, want meeting", res.Item.Kind)
	}
	if res.Item.Title != "team sync" {
		t.Errorf("title = %q, want %q", res.Item.Title, "team sync")
	}
	if len(sess.schedules) != 1 {
		t.Errorf("schedules = %d, want 1", len(sess.schedules))
	}
}

func TestReminderScenario(t *testing.T) {
	sess := newFakeSession()
	res := Execute(context.Background(), sess, "remind me to call mom at 2:30 pm")

	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	want := time.Date(2024, 1, 1, 14, 30, 0, 0, time.Local)
	if res.Item == nil || !res.Item.Time.Equal(want) {
		t.Fatalf("item = %+v, want time %v", res.Item, want)
	}
	if res.Item.Title != "call mom" || res.Item.Kind != model.KindReminder {
		t.Errorf("item = %+v", res.Item)
	}
	if len(sess.schedules) != 1 {
		t.Errorf("reminders go to schedules; got %d", len(sess.schedules))
	}
}

func TestCreateWithVerbInTitle(t *testing.T) {
	tests := []struct {
		text  string
		kind  model.Kind
		title string
	}{
		{"remind me to cancel the gym membership at 5 pm", model.KindReminder, "cancel the gym membership"},
		{"remind me to list the car for sale at 5 pm", model.KindReminder, "list the car for sale"},
		{"set alarm for 7 am to show up at work", model.KindAlarm, model.DefaultAlarmTitle},
	}
	for _, tt := range tests {
		sess := newFakeSession()
		res := Execute(context.Background(), sess, tt.text)
		if !res.OK() || res.Item == nil {
			t.Errorf("Execute(%q): intent %s, status %q", tt.text, res.Intent, res.Status)
			continue
		}
		if res.Item.Kind != tt.kind || res.Item.Title != tt.title {
			t.Errorf("Execute(%q) = %s %q, want %s %q", tt.text, res.Item.Kind, res.Item.Title, tt.kind, tt.title)
		}
	}
}

func TestDeleteScenario(t *testing.T) {
	sess := newFakeSession()
	ctx := context.Background()
	sess.CreateItem(ctx, "Alarm", time.Date(2024, 1, 5, 7, 0, 0, 0, time.Local), model.KindAlarm)
	sess.CreateItem(ctx, "Alarm", time.Date(2024, 1, 2, 8, 0, 0, 0, time.Local), model.KindAlarm)

	res := Execute(ctx, sess, "delete alarm for 7 AM")
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Intent != intent.Delete {
		t.Errorf("intent = %s, want delete", res.Intent)
	}
	if len(sess.alarms) != 1 || sess.alarms[0].Time.Hour() != 8 {
		t.Errorf("alarms after delete = %+v", sess.alarms)
	}

	res = Execute(ctx, sess, "delete alarm for 7 AM")
	if !errors.Is(res.Err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", res.Err)
	}
	if res.Status != "Could not find alarm for that time" {
		t.Errorf("status = %q", res.Status)
	}
	if len(sess.alarms) != 1 {
		t.Errorf("store changed on failed delete: %d alarms", len(sess.alarms))
	}
}

func TestDeleteParseFailures(t *testing.T) {
	tests := []string{
		"delete alarm",
		"delete the meeting at 3 pm",
		"cancel everything",
	}
	for _, text := range tests {
		sess := newFakeSession()
		sess.CreateItem(context.Background(), "Alarm", refNow.Add(time.Hour), model.KindAlarm)

		res := Execute(context.Background(), sess, text)
		if !errors.Is(res.Err, ErrParse) {
			t.Errorf("%q: err = %v, want ErrParse", text, res.Err)
		}
		if len(sess.alarms) != 1 {
			t.Errorf("%q: store changed", text)
		}
	}
}

func TestCreateParseFailure(t *testing.T) {
	tests := []struct {
		text    string
		wantErr error
	}{
		{"set alarm for later", timeexpr.ErrNoTime},
		{"schedule meeting soon", timeexpr.ErrNoTime},
		{"remind me to water plants", timeexpr.ErrNoTime},
		{"set alarm for 25:00", timeexpr.ErrOutOfRange},
	}
	for _, tt := range tests {
		sess := newFakeSession()
		res := Execute(context.Background(), sess, tt.text)
		if !errors.Is(res.Err, ErrParse) || !errors.Is(res.Err, tt.wantErr) {
			t.Errorf("%q: err = %v, want ErrParse wrapping %v", tt.text, res.Err, tt.wantErr)
		}
		if res.Item != nil || len(sess.alarms)+len(sess.schedules) != 0 {
			t.Errorf("%q: item created on parse failure", tt.text)
		}
		if !strings.HasPrefix(res.Status, "Could not understand the time") {
			t.Errorf("%q: status = %q", tt.text, res.Status)
		}
	}
}

func TestCreateStoreFailure(t *testing.T) {
	sess := newFakeSession()
	sess.fail = errors.New("disk full")

	res := Execute(context.Background(), sess, "set alarm for 7 AM")
	if res.Err == nil || res.Item != nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.Status != "Error processing command. Please try again." {
		t.Errorf("status = %q", res.Status)
	}
}

func TestShow(t *testing.T) {
	ctx := context.Background()
	sess := newFakeSession()

	if res := Execute(ctx, sess, "show today's schedule"); res.Status != "No schedule items for today" {
		t.Errorf("empty schedule status = %q", res.Status)
	}
	if res := Execute(ctx, sess, "show alarms"); res.Status != "No active alarms" {
		t.Errorf("empty alarms status = %q", res.Status)
	}

	sess.CreateItem(ctx, "Lunch", time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local), model.KindMeeting)
	sess.CreateItem(ctx, "Later", time.Date(2024, 1, 3, 9, 0, 0, 0, time.Local), model.KindMeeting)
	sess.CreateItem(ctx, "Alarm", time.Date(2024, 1, 2, 6, 30, 0, 0, time.Local), model.KindAlarm)

	res := Execute(ctx, sess, "show today's schedule")
	if res.Intent != intent.Show {
		t.Errorf("intent = %s, want show", res.Intent)
	}
	if res.Status != "Today's schedule: Lunch at 12:00 PM" || len(res.Items) != 1 {
		t.Errorf("status = %q items = %d", res.Status, len(res.Items))
	}

	res = Execute(ctx, sess, "list alarms")
	if res.Status != "Active alarms: 6:30 AM" {
		t.Errorf("status = %q", res.Status)
	}

	res = Execute(ctx, sess, "show")
	if !strings.HasPrefix(res.Status, "Today's schedule") {
		t.Errorf("bare show should list today's schedule, got %q", res.Status)
	}
}

func TestUnrecognized(t *testing.T) {
	res := Execute(context.Background(), newFakeSession(), "what's the weather")
	if res.Intent != intent.Unrecognized || !errors.Is(res.Err, ErrUnrecognized) {
		t.Errorf("res = %+v", res)
	}
	if !strings.HasPrefix(res.Status, "Command not recognized") {
		t.Errorf("status = %q", res.Status)
	}
}

func TestScheduleTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"schedule team sync at 3 PM", "team sync"},
		{"Schedule Dentist Visit at 9 am", "Dentist Visit"},
		{"meeting with Bob at 4 pm", "with Bob"},
		{"set up client meeting tomorrow 10am", "set up client"},
		{"appointment tomorrow 3pm", "Appointment"},
		{"schedule 3pm", "Schedule Item"},
	}
	for _, tt := range tests {
		if got := ScheduleTitle(tt.text); got != tt.want {
			t.Errorf("ScheduleTitle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestReminderTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"remind me to call mom at 2:30 pm", "call mom"},
		{"Remind me to Buy Milk tomorrow 9am", "Buy Milk"},
		{"remind me to stretch", "stretch"},
		{"reminder at 5pm", "Reminder"},
	}
	for _, tt := range tests {
		if got := ReminderTitle(tt.text); got != tt.want {
			t.Errorf("ReminderTitle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
