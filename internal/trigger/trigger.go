// Package trigger polls the item store and fires items whose time has come.
package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/routine/internal/model"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultTolerance    = 30 * time.Second
)

// Source is the state the loop sweeps. Fire must be check-and-set: it
// reports true only for the call that moved the item out of the active state.
type Source interface {
	Now() time.Time
	Due(now time.Time, tolerance time.Duration) []model.Item
	Fire(ctx context.Context, id string) bool
}

type Config struct {
	PollInterval time.Duration
	Tolerance    time.Duration
}

// Loop fires every active item within Tolerance of the current time, checking
// once per PollInterval. Items whose window passes between two polls are
// never fired by the loop.
type Loop struct {
	mu       sync.Mutex
	source   Source
	interval time.Duration
	tol      time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(src Source, cfg Config, logger *slog.Logger) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Loop{
		source:   src,
		interval: cfg.PollInterval,
		tol:      cfg.Tolerance,
		logger:   logger,
	}
}

// Start begins polling. Calling Start on a running loop does nothing.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		l.logger.Warn("trigger loop already running")
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	l.logger.Info("trigger loop started", "interval", l.interval, "tolerance", l.tol)

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep(ctx, l.source.Now())
			}
		}
	}()
}

// Stop halts polling and waits for an in-flight sweep to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Sweep fires the items due at now and returns how many it fired.
func (l *Loop) Sweep(ctx context.Context, now time.Time) int {
	var fired int
	for _, item := range l.source.Due(now, l.tol) {
		if l.source.Fire(ctx, item.ID) {
			fired++
			l.logger.Debug("item fired", "id", item.ID, "kind", string(item.Kind))
		}
	}
	return fired
}
