package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/routine/internal/model"
)

// FireFunc is called when an item's timer expires and its token is still live.
type FireFunc func(ctx context.Context, id string)

// Dispatcher keeps one timer per scheduled item. A timer whose item token has
// been cancelled is stopped and never fires.
type Dispatcher struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	fire   FireFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewDispatcher returns a Dispatcher that measures delays against now, or
// time.Now when now is nil.
func NewDispatcher(fire FireFunc, now func() time.Time, logger *slog.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		timers: make(map[string]*time.Timer),
		fire:   fire,
		now:    now,
		logger: logger,
	}
}

// Schedule arms a timer for item at item.Time. Items that are already due or
// past are not scheduled; it reports whether a timer was armed.
func (d *Dispatcher) Schedule(item model.Item, token context.Context) bool {
	delay := item.Time.Sub(d.now())
	if delay <= 0 || token.Err() != nil {
		return false
	}

	id := item.ID
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.timers[id]; ok {
		old.Stop()
	}

	// t is written under d.mu and the callbacks only read it through forget,
	// which takes d.mu first.
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		d.forget(id, &t)
		if token.Err() != nil {
			d.logger.Debug("skip cancelled notification", "id", id)
			return
		}
		d.fire(context.Background(), id)
	})
	d.timers[id] = t

	context.AfterFunc(token, func() {
		d.mu.Lock()
		timer := t
		d.mu.Unlock()
		timer.Stop()
		d.forget(id, &t)
	})
	return true
}

// Pending returns the number of armed timers.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop disarms every timer.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}

// forget drops id's entry if it still belongs to the timer behind t.
func (d *Dispatcher) forget(id string, t **time.Timer) {
	d.mu.Lock()
	if d.timers[id] == *t {
		delete(d.timers, id)
	}
	d.mu.Unlock()
}
