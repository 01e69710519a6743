// Package session wires the item store, notification timers and status
// output into the object every entry point drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/routine/internal/command"
	"github.com/dukerupert/routine/internal/intent"
	"github.com/dukerupert/routine/internal/model"
	"github.com/dukerupert/routine/internal/notify"
	"github.com/dukerupert/routine/internal/store"
)

// ErrUnsupportedCapability is returned by OnUtterance when voice input is
// disabled on this host.
var ErrUnsupportedCapability = errors.New("voice input not supported")

// StatusSink receives the human-readable line produced by every command.
type StatusSink interface {
	Status(msg string)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(msg string)

func (f StatusFunc) Status(msg string) { f(msg) }

// WriterSink writes each status line to W.
type WriterSink struct {
	W io.Writer
}

func (w WriterSink) Status(msg string) {
	fmt.Fprintln(w.W, msg)
}

type Session struct {
	store   *store.ItemStore
	timers  *notify.Dispatcher
	gateway notify.Gateway
	status  StatusSink
	now     func() time.Time
	voice   bool
	logger  *slog.Logger
}

type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithStatus sets where status lines go. Without it they are only logged.
func WithStatus(sink StatusSink) Option {
	return func(s *Session) {
		s.status = sink
	}
}

// WithVoice enables or disables the utterance entry point.
func WithVoice(enabled bool) Option {
	return func(s *Session) {
		s.voice = enabled
	}
}

func New(st *store.ItemStore, gateway notify.Gateway, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		store:   st,
		gateway: gateway,
		now:     time.Now,
		voice:   true,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timers = notify.NewDispatcher(func(ctx context.Context, id string) {
		s.Fire(ctx, id)
	}, s.now, logger)

	if !s.voice {
		logger.Warn("voice input unavailable; utterances will be rejected")
	}
	return s
}

// Now returns the session clock's current time.
func (s *Session) Now() time.Time {
	return s.now()
}

// VoiceEnabled reports whether OnUtterance accepts commands.
func (s *Session) VoiceEnabled() bool {
	return s.voice
}

// Restore loads persisted items and arms timers for the active ones still
// in the future. It returns the number of timers armed.
func (s *Session) Restore(ctx context.Context) (int, error) {
	if err := s.store.Load(ctx); err != nil {
		return 0, err
	}

	var armed int
	for _, item := range append(s.store.Alarms(), s.store.Schedules()...) {
		if !item.Active {
			continue
		}
		token, ok := s.store.Token(item.ID)
		if ok && s.timers.Schedule(item, token) {
			armed++
		}
	}
	s.logger.Info("items restored", "alarms", len(s.store.Alarms()), "schedules", len(s.store.Schedules()), "armed", armed)
	return armed, nil
}

// OnUtterance runs a spoken or typed command and reports its status.
func (s *Session) OnUtterance(ctx context.Context, text string) command.Result {
	if !s.voice {
		return command.Result{
			Intent: intent.Unrecognized,
			Status: "Voice commands are not supported on this device",
			Err:    ErrUnsupportedCapability,
		}
	}

	res := command.Execute(ctx, s, text)
	switch {
	case res.Err == nil:
		s.logger.Info("command", "intent", res.Intent, "text", text)
	case errors.Is(res.Err, command.ErrParse), errors.Is(res.Err, command.ErrNotFound), errors.Is(res.Err, command.ErrUnrecognized):
		s.logger.Debug("command rejected", "intent", res.Intent, "text", text, "error", res.Err)
	default:
		s.logger.Error("command failed", "intent", res.Intent, "text", text, "error", res.Err)
	}
	s.Status(res.Status)
	return res
}

// CreateItem adds an item without going through the classifier and arms its
// notification timer. An empty title takes the kind's default.
func (s *Session) CreateItem(ctx context.Context, title string, at time.Time, kind model.Kind) (model.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultTitle(kind)
	}
	item := model.Item{
		ID:     uuid.NewString(),
		Title:  title,
		Time:   at,
		Kind:   kind,
		Active: true,
	}

	token, err := s.store.Add(ctx, item)
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	s.timers.Schedule(item, token)
	s.logger.Debug("item created", "id", item.ID, "kind", string(kind), "time", at)
	return item, nil
}

// DeleteItem removes the item with the given ID. Its timer, if any, is
// cancelled with it.
func (s *Session) DeleteItem(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return ok, nil
}

func (s *Session) DeleteAlarmAt(ctx context.Context, hour, minute int) (model.Item, bool, error) {
	return s.store.DeleteAlarmAt(ctx, hour, minute)
}

func (s *Session) ActiveAlarms() []model.Item {
	return s.store.ActiveAlarms()
}

func (s *Session) SchedulesOn(day time.Time) []model.Item {
	return s.store.SchedulesOn(day)
}

func (s *Session) Alarms() []model.Item {
	return s.store.Alarms()
}

func (s *Session) Schedules() []model.Item {
	return s.store.Schedules()
}

func (s *Session) Due(now time.Time, tolerance time.Duration) []model.Item {
	return s.store.Due(now, tolerance)
}

// Fire moves an item from active to fired and notifies. Only the first call
// for an item notifies; it reports whether this call did.
func (s *Session) Fire(ctx context.Context, id string) bool {
	item, ok, err := s.store.MarkFired(ctx, id)
	if err != nil {
		s.logger.Error("mark item fired", "id", id, "error", err)
		return false
	}
	if !ok {
		return false
	}

	if err := s.gateway.Notify(ctx, item); err != nil {
		s.logger.Warn("notify", "id", id, "error", err)
	}
	return true
}

// Status forwards msg to the status sink.
func (s *Session) Status(msg string) {
	if s.status != nil {
		s.status.Status(msg)
	}
}

// Pending returns the number of armed notification timers.
func (s *Session) Pending() int {
	return s.timers.Pending()
}

// Close disarms every notification timer.
func (s *Session) Close() {
	s.timers.Stop()
}
