package backup

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/hashcode"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/snippet"
	"github.com/erazemk/stash/internal/store"
)

// Result describes a restored stash.
type Result struct {
	Stash model.Stash
	// Drops maps each drop of the document to the drop it became.
	Drops map[snippet.Ref]snippet.Ref
}

// Restore recreates doc as the stash of courseID. It fails with
// model.ErrStashExists when the course already has one. Records get new
// ids; hashcodes are kept unless another record of the new stash already
// uses them. Drop snippets in item details are rewritten to the new drops.
// Everything happens in one transaction.
func Restore(ctx context.Context, database *sqlx.DB, courseID int64, doc *Document) (*Result, error) {
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported backup version %d: %w", doc.Version, model.ErrValidation)
	}

	var res *Result
	err := store.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		r, err := restore(ctx, tx, courseID, doc)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func restore(ctx context.Context, tx *sqlx.Tx, courseID int64, doc *Document) (*Result, error) {
	s, err := store.CreateStash(ctx, tx, courseID, doc.Stash.Name)
	if err != nil {
		return nil, err
	}
	res := &Result{Stash: *s, Drops: make(map[snippet.Ref]snippet.Ref)}

	items := make(map[int64]int64, len(doc.Items))
	drops := make(map[int64]int64)
	details := make(map[int64]string)

	dropExists := func(ctx context.Context, code string) (bool, error) {
		return store.DropHashCodeExists(ctx, tx, s.ID, code, 0)
	}
	tradeExists := func(ctx context.Context, code string) (bool, error) {
		return store.TradeHashCodeExists(ctx, tx, s.ID, code, 0)
	}

	for _, it := range doc.Items {
		created, err := store.CreateItem(ctx, tx, s.ID, model.ItemInput{
			Name:         it.Name,
			MaxNumber:    it.MaxNumber,
			Detail:       it.Detail,
			DetailFormat: it.DetailFormat,
		})
		if err != nil {
			return nil, err
		}
		items[it.ID] = created.ID
		if it.Detail != "" {
			details[created.ID] = it.Detail
		}

		if it.Image != "" {
			data, err := base64.StdEncoding.DecodeString(it.Image)
			if err != nil {
				return nil, fmt.Errorf("decoding image of item %q: %w", it.Name, err)
			}
			if err := store.SetItemImage(ctx, tx, created.ID, data, it.ImageMime); err != nil {
				return nil, err
			}
		}

		for _, d := range it.Drops {
			code, err := keepCode(ctx, d.HashCode, dropExists)
			if err != nil {
				return nil, err
			}
			nd, err := store.CreateDrop(ctx, tx, model.DropInput{
				ItemID:         created.ID,
				Name:           d.Name,
				MaxPickup:      d.MaxPickup,
				PickupInterval: d.PickupInterval,
				HashCode:       code,
			})
			if err != nil {
				return nil, err
			}
			drops[d.ID] = nd.ID
			res.Drops[snippet.Ref{ID: d.ID, HashCode: d.HashCode}] = snippet.Ref{ID: nd.ID, HashCode: code}
		}
	}

	for id, detail := range details {
		if rewritten := snippet.RewriteReferences(detail, res.Drops); rewritten != detail {
			if err := store.UpdateItemDetail(ctx, tx, id, rewritten); err != nil {
				return nil, err
			}
		}
	}

	for _, t := range doc.Trades {
		code, err := keepCode(ctx, t.HashCode, tradeExists)
		if err != nil {
			return nil, err
		}
		nt, err := store.CreateTrade(ctx, tx, s.ID, model.TradeInput{
			Name:      t.Name,
			LossTitle: t.LossTitle,
			GainTitle: t.GainTitle,
			HashCode:  code,
		})
		if err != nil {
			return nil, err
		}
		for _, l := range t.Items {
			itemID, ok := items[l.ItemID]
			if !ok {
				return nil, fmt.Errorf("trade %q references unknown item %d: %w", t.Name, l.ItemID, model.ErrValidation)
			}
			_, err := store.AddTradeItem(ctx, tx, nt.ID, model.TradeItemInput{ItemID: itemID, Quantity: l.Quantity, GainLoss: l.Gain})
			if err != nil {
				return nil, err
			}
		}
	}

	for _, ui := range doc.UserItems {
		itemID, ok := items[ui.ItemID]
		if !ok {
			return nil, fmt.Errorf("holding references unknown item %d: %w", ui.ItemID, model.ErrValidation)
		}
		if err := store.SetUserItem(ctx, tx, itemID, ui.UserID, ui.Quantity); err != nil {
			return nil, err
		}
	}
	for _, p := range doc.Pickups {
		dropID, ok := drops[p.DropID]
		if !ok {
			return nil, fmt.Errorf("pickup references unknown drop %d: %w", p.DropID, model.ErrValidation)
		}
		if err := store.SetDropPickup(ctx, tx, dropID, p.UserID, p.Count, p.LastPickup); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// keepCode returns code if it is a valid hashcode still free in the new
// stash, and a freshly allocated one otherwise.
func keepCode(ctx context.Context, code string, exists hashcode.ExistsFunc) (string, error) {
	if hashcode.Valid(code) {
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return hashcode.Allocate(ctx, exists)
}
