package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/hashcode"
	"github.com/erazemk/stash/internal/model"
)

const dropSelect = `SELECT d.id, d.item_id, d.name, d.max_pickup, d.pickup_interval, d.hashcode, i.stash_id
	FROM drops d JOIN items i ON i.id = d.item_id`

// CreateDrop creates a drop. in.HashCode must already be allocated and is
// rejected when another drop of the same stash uses it. Callers that pick
// the code themselves should hold LockStash in the same transaction.
func CreateDrop(ctx context.Context, q sqlx.ExtContext, in model.DropInput) (*model.Drop, error) {
	if err := checkDropCode(ctx, q, in.ItemID, in.HashCode, 0); err != nil {
		return nil, err
	}

	id, err := insertID(ctx, q,
		`INSERT INTO drops (item_id, name, max_pickup, pickup_interval, hashcode) VALUES (?, ?, ?, ?, ?)`,
		in.ItemID, in.Name, in.MaxPickup, in.PickupInterval, in.HashCode,
	)
	if err != nil {
		return nil, fmt.Errorf("creating drop: %w", err)
	}

	return GetDrop(ctx, q, id)
}

// GetDrop returns a drop by ID.
func GetDrop(ctx context.Context, q sqlx.ExtContext, id int64) (*model.Drop, error) {
	d, err := getOne[model.Drop](ctx, q, dropSelect+` WHERE d.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting drop: %w", err)
	}
	return d, nil
}

// ListDrops returns the drops of an item.
func ListDrops(ctx context.Context, q sqlx.ExtContext, itemID int64) ([]model.Drop, error) {
	drops, err := selectAll[model.Drop](ctx, q, dropSelect+` WHERE d.item_id = ? ORDER BY d.id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing drops: %w", err)
	}
	return drops, nil
}

// ListStashDrops returns every drop of every item in a stash.
func ListStashDrops(ctx context.Context, q sqlx.ExtContext, stashID int64) ([]model.Drop, error) {
	drops, err := selectAll[model.Drop](ctx, q, dropSelect+` WHERE i.stash_id = ? ORDER BY d.id`, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing stash drops: %w", err)
	}
	return drops, nil
}

// UpdateDrop replaces a drop's fields. The hashcode is checked as in
// CreateDrop.
func UpdateDrop(ctx context.Context, q sqlx.ExtContext, id int64, in model.DropInput) error {
	if err := checkDropCode(ctx, q, in.ItemID, in.HashCode, id); err != nil {
		return err
	}

	_, err := exec(ctx, q,
		`UPDATE drops SET item_id = ?, name = ?, max_pickup = ?, pickup_interval = ?, hashcode = ? WHERE id = ?`,
		in.ItemID, in.Name, in.MaxPickup, in.PickupInterval, in.HashCode, id,
	)
	if err != nil {
		return fmt.Errorf("updating drop: %w", err)
	}
	return nil
}

// DeleteDrop deletes a drop and its pickup history.
func DeleteDrop(ctx context.Context, q sqlx.ExtContext, id int64) error {
	if _, err := exec(ctx, q, `DELETE FROM drops WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting drop: %w", err)
	}
	return nil
}

// DropHashCodeExists reports whether another drop in the stash already uses
// code. excludeID names the drop being edited, zero for none.
func DropHashCodeExists(ctx context.Context, q sqlx.ExtContext, stashID int64, code string, excludeID int64) (bool, error) {
	found, err := exists(ctx, q,
		`SELECT COUNT(*) FROM drops d JOIN items i ON i.id = d.item_id
		 WHERE i.stash_id = ? AND d.hashcode = ? AND d.id <> ?`,
		stashID, code, excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("checking drop hashcode: %w", err)
	}
	return found, nil
}

// checkDropCode rejects code when another drop in the stash of itemID uses
// it. Drops carry no stash column, so no index can enforce this.
func checkDropCode(ctx context.Context, q sqlx.ExtContext, itemID int64, code string, excludeID int64) error {
	var stashID int64
	err := sqlx.GetContext(ctx, q, &stashID, q.Rebind(`SELECT stash_id FROM items WHERE id = ?`), itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FieldInvalid("item_id", "item does not exist")
	}
	if err != nil {
		return fmt.Errorf("checking drop hashcode: %w", err)
	}

	taken, err := DropHashCodeExists(ctx, q, stashID, code, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return hashCodeTaken()
	}
	return nil
}

func hashCodeTaken() error {
	return model.FieldInvalid("hashcode", "hashcode is already used in this stash")
}

// FindDropByHashPrefix returns the single drop in the stash whose hashcode
// starts with prefix. It fails with model.ErrNotFound when nothing matches
// and model.ErrAmbiguous when more than one drop does.
func FindDropByHashPrefix(ctx context.Context, q sqlx.ExtContext, stashID int64, prefix string) (*model.Drop, error) {
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}

	// substr keeps the comparison case-sensitive; LIKE is not in SQLite.
	drops, err := selectAll[model.Drop](ctx, q,
		dropSelect+` WHERE i.stash_id = ? AND substr(d.hashcode, 1, ?) = ? ORDER BY d.id LIMIT 2`,
		stashID, len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("finding drop by prefix: %w", err)
	}
	return single(drops)
}

func checkPrefix(prefix string) error {
	if prefix == "" || len(prefix) > hashcode.LegacyLength || !hashcode.Alphanumeric(prefix) {
		return model.FieldInvalid("prefix", "prefix must be 1 to 40 letters and digits")
	}
	return nil
}

func single[T any](rows []T) (*T, error) {
	switch len(rows) {
	case 0:
		return nil, model.ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, model.ErrAmbiguous
	}
}
