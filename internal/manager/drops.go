package manager

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/hashcode"
	"github.com/erazemk/stash/internal/ledger"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/snippet"
	"github.com/erazemk/stash/internal/store"
)

func (m *Manager) drop(ctx context.Context, id int64) (*model.Drop, error) {
	d, err := store.GetDrop(ctx, m.db, id)
	if err != nil {
		return nil, err
	}
	if d == nil || d.StashID != m.stash.ID {
		return nil, model.ErrNotFound
	}
	return d, nil
}

// stashItem checks that itemID names an item of this stash, reporting a
// field error otherwise.
func (m *Manager) stashItem(ctx context.Context, itemID int64) error {
	_, err := m.item(ctx, itemID)
	if errors.Is(err, model.ErrNotFound) {
		return model.FieldInvalid("item_id", "item does not exist in this stash")
	}
	return err
}

// claimCode returns requested if it is free, or allocates a new code when
// requested is empty.
func claimCode(ctx context.Context, requested string, exists hashcode.ExistsFunc) (string, error) {
	if requested == "" {
		code, err := hashcode.Allocate(ctx, exists)
		if err != nil {
			return "", fmt.Errorf("allocating hashcode: %w", err)
		}
		return code, nil
	}

	taken, err := exists(ctx, requested)
	if err != nil {
		return "", err
	}
	if taken {
		return "", model.FieldInvalid("hashcode", "hashcode is already used in this stash")
	}
	return requested, nil
}

func sameCode(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func (m *Manager) dropCodeExists(q sqlx.ExtContext, excludeID int64) hashcode.ExistsFunc {
	return func(ctx context.Context, code string) (bool, error) {
		return store.DropHashCodeExists(ctx, q, m.stash.ID, code, excludeID)
	}
}

// CreateDrop creates a drop for an item of the stash. A hashcode is
// allocated unless the input names a free one.
func (m *Manager) CreateDrop(ctx context.Context, in model.DropInput) (*model.Drop, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	if err := m.stashItem(ctx, in.ItemID); err != nil {
		return nil, err
	}

	var d *model.Drop
	err := store.WithTx(ctx, m.db, func(tx *sqlx.Tx) error {
		if err := store.LockStash(ctx, tx, m.stash.ID); err != nil {
			return err
		}
		code, err := claimCode(ctx, in.HashCode, m.dropCodeExists(tx, 0))
		if err != nil {
			return err
		}
		in.HashCode = code

		d, err = store.CreateDrop(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDrop replaces a drop's fields. An empty hashcode or item id keeps
// the current one.
func (m *Manager) UpdateDrop(ctx context.Context, id int64, in model.DropInput) (*model.Drop, error) {
	d, err := m.drop(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ItemID == 0 {
		in.ItemID = d.ItemID
	}
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	if in.ItemID != d.ItemID {
		if err := m.stashItem(ctx, in.ItemID); err != nil {
			return nil, err
		}
	}

	err = store.WithTx(ctx, m.db, func(tx *sqlx.Tx) error {
		if err := store.LockStash(ctx, tx, m.stash.ID); err != nil {
			return err
		}
		if in.HashCode == "" || in.HashCode == d.HashCode {
			in.HashCode = d.HashCode
		} else if _, err := claimCode(ctx, in.HashCode, m.dropCodeExists(tx, id)); err != nil {
			return err
		}
		return store.UpdateDrop(ctx, tx, id, in)
	})
	if err != nil {
		return nil, err
	}
	return store.GetDrop(ctx, m.db, id)
}

// DeleteDrop deletes a drop and its pickup history.
func (m *Manager) DeleteDrop(ctx context.Context, id int64) error {
	if _, err := m.drop(ctx, id); err != nil {
		return err
	}
	return store.DeleteDrop(ctx, m.db, id)
}

// GetDrop returns a drop of the stash.
func (m *Manager) GetDrop(ctx context.Context, id int64) (*model.Drop, error) {
	return m.drop(ctx, id)
}

// ListDrops returns the drops of an item, or of the whole stash when itemID
// is zero.
func (m *Manager) ListDrops(ctx context.Context, itemID int64) ([]model.Drop, error) {
	if itemID == 0 {
		return store.ListStashDrops(ctx, m.db, m.stash.ID)
	}
	if _, err := m.item(ctx, itemID); err != nil {
		return nil, err
	}
	return store.ListDrops(ctx, m.db, itemID)
}

// FindDropByPrefix resolves a hashcode prefix to a single drop.
func (m *Manager) FindDropByPrefix(ctx context.Context, prefix string) (*model.Drop, error) {
	return store.FindDropByHashPrefix(ctx, m.db, m.stash.ID, prefix)
}

// DropSnippet returns the code that embeds a drop in course content.
func (m *Manager) DropSnippet(ctx context.Context, id int64, label string) (string, error) {
	d, err := m.drop(ctx, id)
	if err != nil {
		return "", err
	}
	return snippet.Code(d.ID, d.HashCode, label), nil
}

// IsDropVisible reports whether the drop should be shown to the user: the
// hashcode must match and a pickup must currently be allowed. Nothing is
// written.
func (m *Manager) IsDropVisible(ctx context.Context, userID, dropID int64, code string) (bool, error) {
	d, err := m.drop(ctx, dropID)
	if err != nil {
		return false, err
	}
	if !sameCode(d.HashCode, code) {
		return false, model.ErrHashCodeMismatch
	}

	p, err := store.GetDropPickup(ctx, m.db, dropID, userID)
	if err != nil {
		return false, err
	}
	return ledger.CanPickup(*d, p, m.now()).Allowed, nil
}

// PickupDrop lets the user collect one unit from a drop. The hashcode must
// match the drop's; a denial is a normal result.
func (m *Manager) PickupDrop(ctx context.Context, userID, dropID int64, code string) (*store.PickupResult, error) {
	d, err := m.drop(ctx, dropID)
	if err != nil {
		return nil, err
	}
	if !sameCode(d.HashCode, code) {
		return nil, model.ErrHashCodeMismatch
	}

	now := m.now()
	res, err := store.Pickup(ctx, m.db, dropID, userID, now)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return res, nil
	}

	slog.Info("drop picked up", "stash", m.stash.ID, "drop", dropID, "user", userID, "quantity", res.UserItem.Held())
	m.emit(ctx, events.ItemAcquired(m.stash.ID, userID, userID, d.ItemID, 1, now))
	return res, nil
}
