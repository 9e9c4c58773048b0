package store

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/model"
)

func intPtr(n int) *int { return &n }

func newStash(t *testing.T, database *sqlx.DB, courseID int64) *model.Stash {
	t.Helper()
	s, err := CreateStash(context.Background(), database, courseID, "Course stash")
	if err != nil {
		t.Fatalf("CreateStash: %v", err)
	}
	return s
}

func newItem(t *testing.T, database *sqlx.DB, stashID int64, name string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, stashID, model.ItemInput{Name: name})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func newDrop(t *testing.T, database *sqlx.DB, itemID int64, code string, maxPickup *int, interval int64) *model.Drop {
	t.Helper()
	d, err := CreateDrop(context.Background(), database, model.DropInput{
		ItemID:         itemID,
		Name:           "Drop " + code,
		MaxPickup:      maxPickup,
		PickupInterval: interval,
		HashCode:       code,
	})
	if err != nil {
		t.Fatalf("CreateDrop: %v", err)
	}
	return d
}

func newTrade(t *testing.T, database *sqlx.DB, stashID int64, code string) *model.Trade {
	t.Helper()
	tr, err := CreateTrade(context.Background(), database, stashID, model.TradeInput{Name: "Trade " + code, HashCode: code})
	if err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	return tr
}

func addTradeItem(t *testing.T, database *sqlx.DB, tradeID, itemID int64, qty *int, side bool) {
	t.Helper()
	_, err := AddTradeItem(context.Background(), database, tradeID, model.TradeItemInput{ItemID: itemID, Quantity: qty, GainLoss: side})
	if err != nil {
		t.Fatalf("AddTradeItem: %v", err)
	}
}

func held(t *testing.T, database *sqlx.DB, itemID, userID int64) *int {
	t.Helper()
	ui, err := GetUserItem(context.Background(), database, itemID, userID)
	if err != nil {
		t.Fatalf("GetUserItem: %v", err)
	}
	if ui == nil {
		return nil
	}
	return ui.Quantity
}
