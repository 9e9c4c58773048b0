package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/ledger"
	"github.com/erazemk/stash/internal/model"
)

const pickupColumns = `id, drop_id, user_id, pickup_count, last_pickup`

// PickupResult is the outcome of a pickup attempt. On denial UserItem and
// Pickup describe the state before the attempt.
type PickupResult struct {
	ledger.Decision
	Drop     model.Drop
	Pickup   model.DropPickup
	UserItem model.UserItem
	// NextPickupAt is when the drop's cooldown ends for this user, if any.
	NextPickupAt *int64
}

// GetDropPickup returns a user's pickup history for a drop.
func GetDropPickup(ctx context.Context, q sqlx.ExtContext, dropID, userID int64) (*model.DropPickup, error) {
	p, err := getOne[model.DropPickup](ctx, q,
		`SELECT `+pickupColumns+` FROM drop_pickups WHERE drop_id = ? AND user_id = ?`,
		dropID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting drop pickup: %w", err)
	}
	return p, nil
}

// ListStashPickups returns all pickup histories for drops in a stash.
func ListStashPickups(ctx context.Context, q sqlx.ExtContext, stashID int64) ([]model.DropPickup, error) {
	pickups, err := selectAll[model.DropPickup](ctx, q,
		`SELECT p.id, p.drop_id, p.user_id, p.pickup_count, p.last_pickup
		 FROM drop_pickups p
		 JOIN drops d ON d.id = p.drop_id
		 JOIN items i ON i.id = d.item_id
		 WHERE i.stash_id = ? ORDER BY p.drop_id, p.user_id`, stashID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing stash pickups: %w", err)
	}
	return pickups, nil
}

// SetDropPickup creates or overwrites a user's pickup history for a drop.
func SetDropPickup(ctx context.Context, q sqlx.ExtContext, dropID, userID int64, count int, last *int64) error {
	_, err := exec(ctx, q,
		`INSERT INTO drop_pickups (drop_id, user_id, pickup_count, last_pickup) VALUES (?, ?, ?, ?)
		 ON CONFLICT (drop_id, user_id) DO UPDATE
		 SET pickup_count = excluded.pickup_count, last_pickup = excluded.last_pickup`,
		dropID, userID, count, last,
	)
	if err != nil {
		return fmt.Errorf("setting drop pickup: %w", err)
	}
	return nil
}

// Pickup lets a user collect one unit from a drop at now. The pickup history
// and the holding are read under lock, checked and updated in a single
// transaction, so concurrent attempts cannot exceed the drop's limits.
// A denial is returned as a result and leaves the database untouched.
// It fails with model.ErrNotFound when the drop does not exist.
func Pickup(ctx context.Context, database *sqlx.DB, dropID, userID int64, now time.Time) (*PickupResult, error) {
	var res PickupResult

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		drop, err := GetDrop(ctx, tx, dropID)
		if err != nil {
			return err
		}
		if drop == nil {
			return model.ErrNotFound
		}
		res.Drop = *drop

		pickup, err := lockDropPickup(ctx, tx, dropID, userID)
		if err != nil {
			return err
		}
		holding, err := lockUserItem(ctx, tx, drop.ItemID, userID)
		if err != nil {
			return err
		}

		res.Decision = ledger.CanPickup(*drop, pickup, now)
		if !res.Allowed {
			res.Pickup = *pickup
			res.UserItem = *holding
			return errDenied
		}

		ledger.ApplyPickup(pickup, holding, now)

		_, err = exec(ctx, tx,
			`UPDATE drop_pickups SET pickup_count = ?, last_pickup = ? WHERE id = ?`,
			pickup.PickupCount, pickup.LastPickup, pickup.ID,
		)
		if err != nil {
			return fmt.Errorf("updating drop pickup: %w", err)
		}
		if err := updateUserItem(ctx, tx, holding.ID, holding.Held()); err != nil {
			return err
		}

		res.Pickup = *pickup
		res.UserItem = *holding
		return nil
	})
	if err != nil && !errors.Is(err, errDenied) {
		return nil, err
	}

	if errors.Is(err, errDenied) {
		// The rows read inside the rolled-back transaction may not exist.
		if res.Pickup.PickupCount == 0 && res.Pickup.LastPickup == nil {
			res.Pickup.ID = 0
		}
		if res.UserItem.Quantity == nil {
			res.UserItem.ID = 0
		}
	}

	if next := ledger.NextPickupAt(res.Drop, &res.Pickup); !next.IsZero() {
		ts := next.Unix()
		res.NextPickupAt = &ts
	}

	res.UserItem.ItemName, err = itemName(ctx, database, res.Drop.ItemID)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func lockDropPickup(ctx context.Context, tx *sqlx.Tx, dropID, userID int64) (*model.DropPickup, error) {
	_, err := exec(ctx, tx,
		`INSERT INTO drop_pickups (drop_id, user_id, pickup_count) VALUES (?, ?, 0)
		 ON CONFLICT (drop_id, user_id) DO NOTHING`,
		dropID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensuring drop pickup: %w", err)
	}

	p, err := getOne[model.DropPickup](ctx, tx,
		`SELECT `+pickupColumns+` FROM drop_pickups WHERE drop_id = ? AND user_id = ?`+forUpdate(tx),
		dropID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("locking drop pickup: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("locking drop pickup: row vanished")
	}
	return p, nil
}

func itemName(ctx context.Context, q sqlx.ExtContext, itemID int64) (string, error) {
	var name string
	if err := sqlx.GetContext(ctx, q, &name, q.Rebind(`SELECT name FROM items WHERE id = ?`), itemID); err != nil {
		return "", fmt.Errorf("getting item name: %w", err)
	}
	return name, nil
}

func forUpdate(tx *sqlx.Tx) string {
	return db.DialectOf(tx).ForUpdate()
}
