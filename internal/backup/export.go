package backup

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// Export builds the document of a stash. User holdings and pickup history
// are only included when includeUserData is set.
func Export(ctx context.Context, q sqlx.ExtContext, stashID int64, includeUserData bool) (*Document, error) {
	s, err := store.GetStash(ctx, q, stashID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.ErrNotFound
	}
	doc := &Document{
		Version: Version,
		Stash:   Stash{Name: s.Name, CourseID: s.CourseID},
	}

	items, err := store.ListItems(ctx, q, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	drops, err := store.ListStashDrops(ctx, q, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing drops: %w", err)
	}
	byItem := make(map[int64][]Drop)
	for _, d := range drops {
		byItem[d.ItemID] = append(byItem[d.ItemID], Drop{
			ID:             d.ID,
			Name:           d.Name,
			MaxPickup:      d.MaxPickup,
			PickupInterval: d.PickupInterval,
			HashCode:       d.HashCode,
		})
	}

	for _, it := range items {
		out := Item{
			ID:           it.ID,
			Name:         it.Name,
			MaxNumber:    it.MaxNumber,
			Detail:       it.Detail,
			DetailFormat: it.DetailFormat,
			Drops:        byItem[it.ID],
		}
		if it.ImageMime != "" {
			data, mime, err := store.GetItemImage(ctx, q, it.ID)
			if err != nil {
				return nil, fmt.Errorf("reading image of item %d: %w", it.ID, err)
			}
			out.Image = base64.StdEncoding.EncodeToString(data)
			out.ImageMime = mime
		}
		doc.Items = append(doc.Items, out)
	}

	trades, err := store.ListTrades(ctx, q, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	for _, t := range trades {
		lines, err := store.ListTradeItems(ctx, q, t.ID)
		if err != nil {
			return nil, fmt.Errorf("listing items of trade %d: %w", t.ID, err)
		}
		out := Trade{
			ID:        t.ID,
			Name:      t.Name,
			LossTitle: t.LossTitle,
			GainTitle: t.GainTitle,
			HashCode:  t.HashCode,
		}
		for _, l := range lines {
			out.Items = append(out.Items, TradeItem{ItemID: l.ItemID, Quantity: l.Quantity, Gain: l.GainLoss})
		}
		doc.Trades = append(doc.Trades, out)
	}

	if !includeUserData {
		return doc, nil
	}

	holdings, err := store.ListStashUserItems(ctx, q, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing user items: %w", err)
	}
	for _, ui := range holdings {
		doc.UserItems = append(doc.UserItems, UserItem{ItemID: ui.ItemID, UserID: ui.UserID, Quantity: ui.Quantity})
	}

	pickups, err := store.ListStashPickups(ctx, q, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing pickups: %w", err)
	}
	for _, p := range pickups {
		doc.Pickups = append(doc.Pickups, Pickup{DropID: p.DropID, UserID: p.UserID, Count: p.PickupCount, LastPickup: p.LastPickup})
	}
	return doc, nil
}
