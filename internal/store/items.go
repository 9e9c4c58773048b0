package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/model"
)

const itemColumns = `id, stash_id, name, max_number, detail, detail_format, image_mime`

// CreateItem creates a new item in a stash.
func CreateItem(ctx context.Context, q sqlx.ExtContext, stashID int64, in model.ItemInput) (*model.Item, error) {
	format := in.DetailFormat
	if format == "" {
		format = model.DetailFormatHTML
	}

	id, err := insertID(ctx, q,
		`INSERT INTO items (stash_id, name, max_number, detail, detail_format) VALUES (?, ?, ?, ?, ?)`,
		stashID, in.Name, in.MaxNumber, in.Detail, format,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, q sqlx.ExtContext, id int64) (*model.Item, error) {
	item, err := getOne[model.Item](ctx, q,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items of a stash.
func ListItems(ctx context.Context, q sqlx.ExtContext, stashID int64) ([]model.Item, error) {
	items, err := selectAll[model.Item](ctx, q,
		`SELECT `+itemColumns+` FROM items WHERE stash_id = ? ORDER BY name, id`, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// UpdateItem replaces an item's metadata.
func UpdateItem(ctx context.Context, q sqlx.ExtContext, id int64, in model.ItemInput) error {
	format := in.DetailFormat
	if format == "" {
		format = model.DetailFormatHTML
	}

	_, err := exec(ctx, q,
		`UPDATE items SET name = ?, max_number = ?, detail = ?, detail_format = ? WHERE id = ?`,
		in.Name, in.MaxNumber, in.Detail, format, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// UpdateItemDetail replaces only the detail text of an item.
func UpdateItemDetail(ctx context.Context, q sqlx.ExtContext, id int64, detail string) error {
	if _, err := exec(ctx, q, `UPDATE items SET detail = ? WHERE id = ?`, detail, id); err != nil {
		return fmt.Errorf("updating item detail: %w", err)
	}
	return nil
}

// DeleteItem deletes an item together with its drops, pickups, user items and
// trade items.
func DeleteItem(ctx context.Context, q sqlx.ExtContext, id int64) error {
	if _, err := exec(ctx, q, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, q sqlx.ExtContext, id int64, image []byte, mime string) error {
	_, err := exec(ctx, q,
		`UPDATE items SET image = ?, image_mime = ? WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, q sqlx.ExtContext, id int64) ([]byte, string, error) {
	var image []byte
	var mime string
	err := q.QueryRowxContext(ctx,
		q.Rebind(`SELECT image, image_mime FROM items WHERE id = ?`), id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime, nil
}
