// Package notify is the boundary between the reminder engine and whatever
// presents a fired item to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/routine/internal/model"
)

// Gateway presents a fired item. The returned error reports only whether
// the item could be displayed, not whether anyone saw it.
type Gateway interface {
	Notify(ctx context.Context, item model.Item) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, item model.Item) error

func (f GatewayFunc) Notify(ctx context.Context, item model.Item) error {
	return f(ctx, item)
}

// Multi fans a notification out to every gateway and joins their errors.
type Multi []Gateway

func (m Multi) Notify(ctx context.Context, item model.Item) error {
	var errs []error
	for _, g := range m {
		if err := g.Notify(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes fired items to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, item model.Item) error {
	l.Logger.InfoContext(ctx, "item due",
		"id", item.ID,
		"title", item.Title,
		"kind", string(item.Kind),
		"time", item.Time.Format("2006-01-02 15:04"),
	)
	return nil
}

// Body is the notification text shown under an item's title.
func Body(item model.Item) string {
	return fmt.Sprintf("Scheduled for %s", item.Time.Format("3:04 PM"))
}

// Sound reports whether the item should be presented with an audible alert.
func Sound(item model.Item) bool {
	return item.Kind == model.KindAlarm
}
