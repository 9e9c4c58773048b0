package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/model"
)

const userItemSelect = `SELECT ui.id, ui.item_id, ui.user_id, ui.quantity, i.name AS item_name
	FROM user_items ui JOIN items i ON i.id = ui.item_id`

// GetUserItem returns a user's holding of an item.
func GetUserItem(ctx context.Context, q sqlx.ExtContext, itemID, userID int64) (*model.UserItem, error) {
	ui, err := getOne[model.UserItem](ctx, q,
		userItemSelect+` WHERE ui.item_id = ? AND ui.user_id = ?`, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user item: %w", err)
	}
	return ui, nil
}

// ListUserItems returns a user's holdings in a stash.
func ListUserItems(ctx context.Context, q sqlx.ExtContext, stashID, userID int64) ([]model.UserItem, error) {
	items, err := selectAll[model.UserItem](ctx, q,
		userItemSelect+` WHERE i.stash_id = ? AND ui.user_id = ? ORDER BY i.name, i.id`,
		stashID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user items: %w", err)
	}
	return items, nil
}

// ListStashUserItems returns every holding of every user in a stash.
func ListStashUserItems(ctx context.Context, q sqlx.ExtContext, stashID int64) ([]model.UserItem, error) {
	items, err := selectAll[model.UserItem](ctx, q,
		userItemSelect+` WHERE i.stash_id = ? ORDER BY ui.user_id, i.id`, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing stash user items: %w", err)
	}
	return items, nil
}

// SetUserItem creates or overwrites a user's holding of an item.
func SetUserItem(ctx context.Context, q sqlx.ExtContext, itemID, userID int64, quantity *int) error {
	_, err := exec(ctx, q,
		`INSERT INTO user_items (item_id, user_id, quantity) VALUES (?, ?, ?)
		 ON CONFLICT (item_id, user_id) DO UPDATE SET quantity = excluded.quantity`,
		itemID, userID, quantity,
	)
	if err != nil {
		return fmt.Errorf("setting user item: %w", err)
	}
	return nil
}

// lockUserItem makes sure the holding row exists and reads it under the
// transaction's lock. The row is created with a NULL quantity; callers roll
// back when they end up not writing to it.
func lockUserItem(ctx context.Context, tx *sqlx.Tx, itemID, userID int64) (*model.UserItem, error) {
	_, err := exec(ctx, tx,
		`INSERT INTO user_items (item_id, user_id, quantity) VALUES (?, ?, NULL)
		 ON CONFLICT (item_id, user_id) DO NOTHING`,
		itemID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensuring user item: %w", err)
	}

	ui, err := getOne[model.UserItem](ctx, tx,
		`SELECT id, item_id, user_id, quantity FROM user_items
		 WHERE item_id = ? AND user_id = ?`+forUpdate(tx),
		itemID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("locking user item: %w", err)
	}
	if ui == nil {
		return nil, fmt.Errorf("locking user item: row vanished")
	}
	return ui, nil
}

func updateUserItem(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error {
	if _, err := exec(ctx, tx, `UPDATE user_items SET quantity = ? WHERE id = ?`, quantity, id); err != nil {
		return fmt.Errorf("updating user item: %w", err)
	}
	return nil
}
