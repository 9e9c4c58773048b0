package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/ledger"
	"github.com/erazemk/stash/internal/model"
)

func TestPickupCreatesHolding(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	item := newItem(t, database, s.ID, "Coin")
	d := newDrop(t, database, item.ID, "abc123", nil, 0)
	now := time.Unix(1_700_000_000, 0)

	res, err := Pickup(ctx, database, d.ID, 10, now)
	if err != nil {
		t.Fatalf("Pickup: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("pickup denied: %s", res.Reason)
	}
	if res.UserItem.Held() != 1 || res.UserItem.ItemName != "Coin" {
		t.Errorf("unexpected user item: %+v", res.UserItem)
	}

	res, _ = Pickup(ctx, database, d.ID, 10, now)
	if res.UserItem.Held() != 2 {
		t.Errorf("expected quantity 2 after second pickup, got %d", res.UserItem.Held())
	}

	p, _ := GetDropPickup(ctx, database, d.ID, 10)
	if p == nil || p.PickupCount != 2 || p.LastPickup == nil || *p.LastPickup != now.Unix() {
		t.Errorf("unexpected pickup history: %+v", p)
	}
}

func TestPickupMaxCount(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	item := newItem(t, database, s.ID, "Coin")
	d := newDrop(t, database, item.ID, "abc123", intPtr(2), 0)
	now := time.Unix(1_700_000_000, 0)

	for i := range 2 {
		res, err := Pickup(ctx, database, d.ID, 10, now)
		if err != nil || !res.Allowed {
			t.Fatalf("pickup %d: %+v %v", i+1, res, err)
		}
	}

	res, err := Pickup(ctx, database, d.ID, 10, now)
	if err != nil {
		t.Fatalf("Pickup: %v", err)
	}
	if res.Allowed || res.Reason != ledger.ReasonMaxPickups {
		t.Errorf("expected max pickups denial, got %+v", res.Decision)
	}
	if *held(t, database, item.ID, 10) != 2 {
		t.Error("denied pickup changed the holding")
	}

	// Another user has their own history.
	res, _ = Pickup(ctx, database, d.ID, 11, now)
	if !res.Allowed {
		t.Error("expected another user to be allowed")
	}
}

func TestPickupInterval(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	d := newDrop(t, database, newItem(t, database, s.ID, "Coin").ID, "abc123", nil, 60)
	start := time.Unix(1_700_000_000, 0)

	if res, _ := Pickup(ctx, database, d.ID, 10, start); !res.Allowed {
		t.Fatal("first pickup denied")
	}

	res, _ := Pickup(ctx, database, d.ID, 10, start.Add(59*time.Second))
	if res.Allowed || res.Reason != ledger.ReasonCoolingDown {
		t.Errorf("expected cooldown denial, got %+v", res.Decision)
	}
	if res.NextPickupAt == nil || *res.NextPickupAt != start.Unix()+60 {
		t.Errorf("unexpected next pickup time: %v", res.NextPickupAt)
	}

	if res, _ := Pickup(ctx, database, d.ID, 10, start.Add(60*time.Second)); !res.Allowed {
		t.Errorf("pickup at the end of the interval denied: %s", res.Reason)
	}
}

func TestDeniedPickupWritesNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	now := time.Unix(1_700_000_000, 0)

	// History says the drop is used up, but the user holds nothing.
	other := newItem(t, database, s.ID, "Gem")
	blocked := newDrop(t, database, other.ID, "gem123", intPtr(1), 0)
	if err := SetDropPickup(ctx, database, blocked.ID, 20, 1, nil); err != nil {
		t.Fatalf("SetDropPickup: %v", err)
	}

	res, err := Pickup(ctx, database, blocked.ID, 20, now)
	if err != nil {
		t.Fatalf("Pickup: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected denial")
	}
	if res.UserItem.ID != 0 || res.UserItem.Quantity != nil {
		t.Errorf("expected no holding in denial result, got %+v", res.UserItem)
	}
	if ui, _ := GetUserItem(ctx, database, other.ID, 20); ui != nil {
		t.Errorf("denied pickup created a user item: %+v", ui)
	}
}

func TestPickupMissingDrop(t *testing.T) {
	database := db.NewTestDB(t)
	_, err := Pickup(context.Background(), database, 404, 1, time.Now())
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentPickupsRespectMax(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	item := newItem(t, database, s.ID, "Coin")
	d := newDrop(t, database, item.ID, "abc123", intPtr(3), 0)
	now := time.Unix(1_700_000_000, 0)

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		errs    []error
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Pickup(ctx, database, d.ID, 10, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Allowed {
				allowed++
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("pickup errors: %v", errs)
	}
	if allowed != 3 {
		t.Errorf("expected exactly 3 successful pickups, got %d", allowed)
	}
	if q := held(t, database, item.ID, 10); q == nil || *q != 3 {
		t.Errorf("expected holding of 3, got %v", q)
	}
}

func TestListStashPickups(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	d := newDrop(t, database, newItem(t, database, s.ID, "Coin").ID, "abc123", nil, 0)

	Pickup(ctx, database, d.ID, 1, time.Now())
	Pickup(ctx, database, d.ID, 2, time.Now())

	pickups, err := ListStashPickups(ctx, database, s.ID)
	if err != nil {
		t.Fatalf("ListStashPickups: %v", err)
	}
	if len(pickups) != 2 {
		t.Errorf("expected 2 pickup histories, got %d", len(pickups))
	}
}
