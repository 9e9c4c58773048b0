package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/cache"
	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/imaging"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// Manager performs operations inside one stash.
type Manager struct {
	db    *sqlx.DB
	sink  events.Sink
	cache cache.Stashes
	now   func() time.Time
	stash model.Stash
}

// Stash returns the stash the manager is bound to.
func (m *Manager) Stash() model.Stash {
	return m.stash
}

// UpdateStash renames the stash.
func (m *Manager) UpdateStash(ctx context.Context, name string) error {
	in := model.StashInput{CourseID: m.stash.CourseID, Name: name}
	if err := model.Validate(in); err != nil {
		return err
	}
	if err := store.UpdateStash(ctx, m.db, m.stash.ID, name); err != nil {
		return err
	}
	m.stash.Name = name
	m.cache.Invalidate(ctx, m.stash.CourseID)
	return nil
}

// Inventory returns the user's holdings in the stash.
func (m *Manager) Inventory(ctx context.Context, userID int64) ([]model.UserItem, error) {
	return store.ListUserItems(ctx, m.db, m.stash.ID, userID)
}

// Events returns the stash's most recent events.
func (m *Manager) Events(ctx context.Context, limit int) ([]model.Event, error) {
	return store.ListEvents(ctx, m.db, m.stash.ID, limit)
}

// emit reports events after a commit. Failures are logged only: the change
// they describe has already happened.
func (m *Manager) emit(ctx context.Context, evs ...model.Event) {
	for _, e := range evs {
		if err := m.sink.Emit(ctx, e); err != nil {
			slog.Error("failed to emit event", "event", e.ID, "kind", e.Kind, "error", err)
		}
	}
}

// item loads an item of this stash, or fails with model.ErrNotFound.
func (m *Manager) item(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, m.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.StashID != m.stash.ID {
		return nil, model.ErrNotFound
	}
	return item, nil
}

// CreateItem creates an item in the stash.
func (m *Manager) CreateItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	return store.CreateItem(ctx, m.db, m.stash.ID, in)
}

// UpdateItem replaces an item's metadata.
func (m *Manager) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (*model.Item, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	if _, err := m.item(ctx, id); err != nil {
		return nil, err
	}
	if err := store.UpdateItem(ctx, m.db, id, in); err != nil {
		return nil, err
	}
	return store.GetItem(ctx, m.db, id)
}

// DeleteItem deletes an item with its drops, pickups, holdings and trade lines.
func (m *Manager) DeleteItem(ctx context.Context, id int64) error {
	if _, err := m.item(ctx, id); err != nil {
		return err
	}
	return store.DeleteItem(ctx, m.db, id)
}

// GetItem returns an item of the stash.
func (m *Manager) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return m.item(ctx, id)
}

// GetItems returns every item of the stash.
func (m *Manager) GetItems(ctx context.Context) ([]model.Item, error) {
	return store.ListItems(ctx, m.db, m.stash.ID)
}

// SetItemImage normalises and stores an item's image.
func (m *Manager) SetItemImage(ctx context.Context, id int64, data []byte) (*model.Item, error) {
	if _, err := m.item(ctx, id); err != nil {
		return nil, err
	}

	img, err := imaging.Process(bytes.NewReader(data))
	if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
		return nil, model.FieldInvalid("image", err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("processing image: %w", err)
	}

	if err := store.SetItemImage(ctx, m.db, id, img.Data, img.MIME); err != nil {
		return nil, err
	}
	return store.GetItem(ctx, m.db, id)
}

// ItemImage returns an item's image and its MIME type. It fails with
// model.ErrNotFound when the item has no image.
func (m *Manager) ItemImage(ctx context.Context, id int64) ([]byte, string, error) {
	if _, err := m.item(ctx, id); err != nil {
		return nil, "", err
	}
	data, mime, err := store.GetItemImage(ctx, m.db, id)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", model.ErrNotFound
	}
	return data, mime, nil
}
