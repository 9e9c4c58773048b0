package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/ledger"
	"github.com/erazemk/stash/internal/model"
)

func TestTradeCRUD(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	coin := newItem(t, database, s.ID, "Coin")

	tr := newTrade(t, database, s.ID, "trd001")
	err := UpdateTrade(ctx, database, tr.ID, model.TradeInput{Name: "Market", LossTitle: "Pay", GainTitle: "Get", HashCode: "trd001"})
	if err != nil {
		t.Fatalf("UpdateTrade: %v", err)
	}
	got, _ := GetTrade(ctx, database, tr.ID)
	if got.Name != "Market" || got.LossTitle != "Pay" || got.GainTitle != "Get" {
		t.Errorf("unexpected trade: %+v", got)
	}

	ti, err := AddTradeItem(ctx, database, tr.ID, model.TradeItemInput{ItemID: coin.ID, Quantity: intPtr(2), GainLoss: model.TradeGain})
	if err != nil {
		t.Fatalf("AddTradeItem: %v", err)
	}
	if ti.ItemName != "Coin" || !ti.GainLoss || *ti.Quantity != 2 {
		t.Errorf("unexpected trade item: %+v", ti)
	}

	trades, _ := ListTrades(ctx, database, s.ID)
	if len(trades) != 1 {
		t.Errorf("expected 1 trade, got %d", len(trades))
	}

	if err := DeleteTradeItem(ctx, database, ti.ID); err != nil {
		t.Fatalf("DeleteTradeItem: %v", err)
	}
	if items, _ := ListTradeItems(ctx, database, tr.ID); len(items) != 0 {
		t.Errorf("expected no trade items, got %d", len(items))
	}

	addTradeItem(t, database, tr.ID, coin.ID, nil, model.TradeLoss)
	if err := DeleteTrade(ctx, database, tr.ID); err != nil {
		t.Fatalf("DeleteTrade: %v", err)
	}
	if got, _ := GetTrade(ctx, database, tr.ID); got != nil {
		t.Error("expected trade to be deleted")
	}
	var n int
	database.Get(&n, `SELECT COUNT(*) FROM trade_items`)
	if n != 0 {
		t.Errorf("expected trade items to be deleted with the trade, got %d", n)
	}
}

func TestFindTradeByHashPrefix(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	newTrade(t, database, s.ID, "abc123")
	want := newTrade(t, database, s.ID, "abc789")

	if _, err := FindTradeByHashPrefix(ctx, database, s.ID, "abc"); !errors.Is(err, model.ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	got, err := FindTradeByHashPrefix(ctx, database, s.ID, "abc7")
	if err != nil || got.ID != want.ID {
		t.Errorf("expected trade %d, got %+v (%v)", want.ID, got, err)
	}
	if _, err := FindTradeByHashPrefix(ctx, database, s.ID, "q"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	exists, _ := TradeHashCodeExists(ctx, database, s.ID, "abc789", 0)
	excluded, _ := TradeHashCodeExists(ctx, database, s.ID, "abc789", want.ID)
	if !exists || excluded {
		t.Errorf("TradeHashCodeExists = %v/%v, want true/false", exists, excluded)
	}
}

func TestExecuteTradeSequence(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	a := newItem(t, database, s.ID, "A")
	b := newItem(t, database, s.ID, "B")
	tr := newTrade(t, database, s.ID, "trd001")
	addTradeItem(t, database, tr.ID, a.ID, intPtr(2), model.TradeLoss)
	addTradeItem(t, database, tr.ID, b.ID, intPtr(1), model.TradeGain)

	const user = 7
	if err := SetUserItem(ctx, database, a.ID, user, intPtr(5)); err != nil {
		t.Fatalf("SetUserItem: %v", err)
	}

	res, err := ExecuteTrade(ctx, database, tr.ID, user)
	if err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("first trade denied: %s", res.Reason)
	}
	if len(res.Lost) != 1 || res.Lost[0].Delta != -2 || res.Lost[0].UserItem.Held() != 3 {
		t.Errorf("unexpected losses: %+v", res.Lost)
	}
	if len(res.Gained) != 1 || res.Gained[0].ItemName != "B" || res.Gained[0].UserItem.Held() != 1 {
		t.Errorf("unexpected gains: %+v", res.Gained)
	}

	if res, _ = ExecuteTrade(ctx, database, tr.ID, user); !res.Allowed {
		t.Fatalf("second trade denied: %s", res.Reason)
	}
	if *held(t, database, a.ID, user) != 1 || *held(t, database, b.ID, user) != 2 {
		t.Errorf("expected A=1 B=2 after two trades")
	}

	res, err = ExecuteTrade(ctx, database, tr.ID, user)
	if err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}
	if res.Allowed || res.Reason != ledger.ReasonInsufficient {
		t.Errorf("expected insufficient items denial, got %+v", res.Decision)
	}
	if len(res.Gained) != 0 || len(res.Lost) != 0 {
		t.Errorf("denied trade reported changes: %+v", res)
	}
	if *held(t, database, a.ID, user) != 1 || *held(t, database, b.ID, user) != 2 {
		t.Errorf("denied trade changed holdings")
	}
}

func TestExecuteTradeDeniedCreatesNoRows(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	a := newItem(t, database, s.ID, "A")
	b := newItem(t, database, s.ID, "B")
	tr := newTrade(t, database, s.ID, "trd001")
	addTradeItem(t, database, tr.ID, a.ID, intPtr(1), model.TradeLoss)
	addTradeItem(t, database, tr.ID, b.ID, intPtr(1), model.TradeGain)

	res, err := ExecuteTrade(ctx, database, tr.ID, 9)
	if err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected denial without holdings")
	}
	items, _ := ListUserItems(ctx, database, s.ID, 9)
	if len(items) != 0 {
		t.Errorf("denied trade created user items: %+v", items)
	}
}

func TestExecuteTradeEdgeCases(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	gift := newItem(t, database, s.ID, "Gift")

	empty := newTrade(t, database, s.ID, "empty1")
	res, err := ExecuteTrade(ctx, database, empty.ID, 1)
	if err != nil || !res.Allowed || len(res.Gained)+len(res.Lost) != 0 {
		t.Errorf("empty trade: %+v %v", res, err)
	}

	free := newTrade(t, database, s.ID, "free01")
	addTradeItem(t, database, free.ID, gift.ID, nil, model.TradeGain)
	res, err = ExecuteTrade(ctx, database, free.ID, 1)
	if err != nil || !res.Allowed {
		t.Fatalf("gift trade: %+v %v", res, err)
	}
	if q := held(t, database, gift.ID, 1); q == nil || *q != 1 {
		t.Errorf("expected one gift unit, got %v", q)
	}

	if _, err := ExecuteTrade(ctx, database, 404, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentTradesNeverOverspend(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	a := newItem(t, database, s.ID, "A")
	b := newItem(t, database, s.ID, "B")
	tr := newTrade(t, database, s.ID, "trd001")
	addTradeItem(t, database, tr.ID, a.ID, intPtr(2), model.TradeLoss)
	addTradeItem(t, database, tr.ID, b.ID, intPtr(1), model.TradeGain)
	SetUserItem(ctx, database, a.ID, 3, intPtr(5))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ExecuteTrade(ctx, database, tr.ID, 3)
			if err != nil {
				t.Errorf("ExecuteTrade: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 2 {
		t.Errorf("expected exactly 2 trades, got %d", allowed)
	}
	if *held(t, database, a.ID, 3) != 1 || *held(t, database, b.ID, 3) != 2 {
		t.Errorf("unexpected holdings after concurrent trades")
	}
}

func TestUserHoldingsDoesNotCreateRows(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	a := newItem(t, database, s.ID, "A")
	b := newItem(t, database, s.ID, "B")
	SetUserItem(ctx, database, a.ID, 4, intPtr(2))

	items := []model.TradeItem{{ItemID: a.ID}, {ItemID: b.ID}, {ItemID: a.ID}}
	h, err := UserHoldings(ctx, database, items, 4)
	if err != nil {
		t.Fatalf("UserHoldings: %v", err)
	}
	if h[a.ID] == nil || *h[a.ID] != 2 {
		t.Errorf("expected A=2, got %v", h[a.ID])
	}
	if _, ok := h[b.ID]; ok {
		t.Error("expected no entry for an item never acquired")
	}
	if ui, _ := GetUserItem(ctx, database, b.ID, 4); ui != nil {
		t.Error("reading holdings created a row")
	}
}

func TestTradeHashCodeUniqueInStash(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newStash(t, database, 1)
	b := newStash(t, database, 2)
	newTrade(t, database, a.ID, "mkt001")

	_, err := CreateTrade(ctx, database, a.ID, model.TradeInput{Name: "Copy", HashCode: "mkt001"})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("duplicate code in stash: expected ErrValidation, got %v", err)
	}
	newTrade(t, database, b.ID, "mkt001")

	other := newTrade(t, database, a.ID, "mkt002")
	err = UpdateTrade(ctx, database, other.ID, model.TradeInput{Name: "Copy", HashCode: "mkt001"})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("update to a taken code: expected ErrValidation, got %v", err)
	}
}

func TestExecuteTradeSameItemBothSides(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	a := newItem(t, database, s.ID, "A")
	tr := newTrade(t, database, s.ID, "swap01")
	addTradeItem(t, database, tr.ID, a.ID, intPtr(2), model.TradeLoss)
	addTradeItem(t, database, tr.ID, a.ID, intPtr(3), model.TradeGain)
	SetUserItem(ctx, database, a.ID, 1, intPtr(5))

	res, err := ExecuteTrade(ctx, database, tr.ID, 1)
	if err != nil || !res.Allowed {
		t.Fatalf("ExecuteTrade: %+v %v", res, err)
	}
	if len(res.Lost) != 1 || len(res.Gained) != 1 {
		t.Fatalf("expected one loss and one gain, got %+v", res)
	}

	lost, gained := res.Lost[0], res.Gained[0]
	if lost.Delta != -2 || lost.UserItem.Quantity == nil || *lost.UserItem.Quantity != 3 {
		t.Errorf("loss: delta %d quantity %v, want -2 and 3", lost.Delta, lost.UserItem.Quantity)
	}
	if gained.Delta != 3 || gained.UserItem.Quantity == nil || *gained.UserItem.Quantity != 6 {
		t.Errorf("gain: delta %d quantity %v, want 3 and 6", gained.Delta, gained.UserItem.Quantity)
	}
	if q := held(t, database, a.ID, 1); q == nil || *q != 6 {
		t.Errorf("expected 6 held after the trade, got %v", q)
	}
}
