package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/routine/internal/model"
)

// ErrDuplicateID is returned when an item with the same ID already exists.
var ErrDuplicateID = errors.New("duplicate item id")

type token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ItemStore holds the alarm and schedule collections in memory and writes
// the touched collection through to the repository after every mutation.
// A mutation whose write fails is rolled back.
//
// Each item carries a cancellation token for the lifetime of its membership;
// deleting the item cancels the token.
type ItemStore struct {
	mu        sync.Mutex
	repo      ItemRepository
	alarms    []model.Item
	schedules []model.Item
	tokens    map[string]token
}

func NewItemStore(repo ItemRepository) *ItemStore {
	return &ItemStore{
		repo:   repo,
		tokens: make(map[string]token),
	}
}

// Load replaces the in-memory collections with the persisted ones.
func (s *ItemStore) Load(ctx context.Context) error {
	alarms, err := s.repo.Load(ctx, model.CollectionAlarms)
	if err != nil {
		return fmt.Errorf("load alarms: %w", err)
	}
	schedules, err := s.repo.Load(ctx, model.CollectionSchedules)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		t.cancel()
	}
	s.tokens = make(map[string]token)
	s.alarms = alarms
	s.schedules = schedules
	for _, item := range alarms {
		s.register(item.ID)
	}
	for _, item := range schedules {
		s.register(item.ID)
	}
	return nil
}

// Add appends item to the collection its kind belongs to and returns the
// item's cancellation token.
func (s *ItemStore) Add(ctx context.Context, item model.Item) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[item.ID]; ok {
		return nil, fmt.Errorf("add item %s: %w", item.ID, ErrDuplicateID)
	}

	c := model.CollectionOf(item.Kind)
	list := s.list(c)
	prev := *list
	*list = append(append([]model.Item(nil), prev...), item)
	if err := s.repo.Save(ctx, c, *list); err != nil {
		*list = prev
		return nil, fmt.Errorf("save %s: %w", c, err)
	}
	return s.register(item.ID), nil
}

// Get returns the item with the given ID.
func (s *ItemStore) Get(id string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, i := s.find(id); i >= 0 {
		return (*s.list(c))[i], true
	}
	return model.Item{}, false
}

// Token returns the cancellation token of the item with the given ID.
func (s *ItemStore) Token(id string) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	return t.ctx, ok
}

// Delete removes the item with the given ID from whichever collection holds it.
func (s *ItemStore) Delete(ctx context.Context, id string) (model.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, i := s.find(id)
	if i < 0 {
		return model.Item{}, false, nil
	}
	return s.removeAt(ctx, c, i)
}

// DeleteAlarmAt removes the first alarm, in collection order, whose time of
// day is hour:minute. The date is not compared.
func (s *ItemStore) DeleteAlarmAt(ctx context.Context, hour, minute int) (model.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alarms {
		if a.Time.Hour() == hour && a.Time.Minute() == minute {
			return s.removeAt(ctx, model.CollectionAlarms, i)
		}
	}
	return model.Item{}, false, nil
}

// MarkFired flips an active item to inactive. It reports false when the item
// is unknown or already fired, which makes firing exactly-once.
func (s *ItemStore) MarkFired(ctx context.Context, id string) (model.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, i := s.find(id)
	if i < 0 {
		return model.Item{}, false, nil
	}
	list := s.list(c)
	if !(*list)[i].Active {
		return (*list)[i], false, nil
	}

	prev := *list
	next := append([]model.Item(nil), prev...)
	next[i].Active = false
	*list = next
	if err := s.repo.Save(ctx, c, next); err != nil {
		*list = prev
		return model.Item{}, false, fmt.Errorf("save %s: %w", c, err)
	}
	return next[i], true, nil
}

// Alarms returns a copy of the alarm collection in store order.
func (s *ItemStore) Alarms() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Item(nil), s.alarms...)
}

// Schedules returns a copy of the schedule collection in store order.
func (s *ItemStore) Schedules() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Item(nil), s.schedules...)
}

// ActiveAlarms returns the alarms that have not fired, earliest first.
func (s *ItemStore) ActiveAlarms() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Item
	for _, a := range s.alarms {
		if a.Active {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out
}

// SchedulesOn returns the schedule items whose date, in day's location,
// equals day's date, earliest first.
func (s *ItemStore) SchedulesOn(day time.Time) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Item
	for _, item := range s.schedules {
		if sameDate(item.Time.In(day.Location()), day) {
			out = append(out, item)
		}
	}
	sortByTime(out)
	return out
}

// Due returns the active items within tolerance of now, alarms first.
func (s *ItemStore) Due(now time.Time, tolerance time.Duration) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Item
	for _, list := range [][]model.Item{s.alarms, s.schedules} {
		for _, item := range list {
			if item.Due(now, tolerance) {
				out = append(out, item)
			}
		}
	}
	return out
}

func (s *ItemStore) list(c model.Collection) *[]model.Item {
	if c == model.CollectionAlarms {
		return &s.alarms
	}
	return &s.schedules
}

func (s *ItemStore) find(id string) (model.Collection, int) {
	for i, item := range s.alarms {
		if item.ID == id {
			return model.CollectionAlarms, i
		}
	}
	for i, item := range s.schedules {
		if item.ID == id {
			return model.CollectionSchedules, i
		}
	}
	return "", -1
}

func (s *ItemStore) removeAt(ctx context.Context, c model.Collection, i int) (model.Item, bool, error) {
	list := s.list(c)
	prev := *list
	removed := prev[i]

	next := make([]model.Item, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	*list = next
	if err := s.repo.Save(ctx, c, next); err != nil {
		*list = prev
		return model.Item{}, false, fmt.Errorf("save %s: %w", c, err)
	}

	if t, ok := s.tokens[removed.ID]; ok {
		t.cancel()
		delete(s.tokens, removed.ID)
	}
	return removed, true, nil
}

func (s *ItemStore) register(id string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	s.tokens[id] = token{ctx: ctx, cancel: cancel}
	return ctx
}

func sortByTime(items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Time.Before(items[j].Time)
	})
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
