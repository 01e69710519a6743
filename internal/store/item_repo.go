package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/routine/internal/model"
)

// ItemRepository persists whole collections. Save replaces the stored list
// for a collection, Load returns it in its saved order.
type ItemRepository interface {
	Save(ctx context.Context, c model.Collection, items []model.Item) error
	Load(ctx context.Context, c model.Collection) ([]model.Item, error)
}

// ItemRepo is the SQLite ItemRepository. Due times are stored as RFC 3339
// text and come back in the local time zone at second precision.
type ItemRepo struct {
	db *sql.DB
}

func NewItemRepo(db *sql.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) Save(ctx context.Context, c model.Collection, items []model.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", c, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE collection = ?`, string(c)); err != nil {
		return fmt.Errorf("clear %s: %w", c, err)
	}

	for i, item := range items {
		var active int
		if item.Active {
			active = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, collection, position, title, kind, due_at, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, string(c), i, item.Title, string(item.Kind), item.Time.Format(time.RFC3339), active,
		)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save %s: %w", c, err)
	}
	return nil
}

func (r *ItemRepo) Load(ctx context.Context, c model.Collection) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, kind, due_at, active FROM items
		 WHERE collection = ? ORDER BY position ASC`,
		string(c),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var kind, dueAt string
		var active int
		if err := rows.Scan(&item.ID, &item.Title, &kind, &dueAt, &active); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		t, err := time.Parse(time.RFC3339, dueAt)
		if err != nil {
			return nil, fmt.Errorf("parse due_at of item %s: %w", item.ID, err)
		}
		item.Kind = model.Kind(kind)
		item.Time = t.Local()
		item.Active = active != 0
		items = append(items, item)
	}
	return items, rows.Err()
}
