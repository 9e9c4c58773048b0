package store

import (
	"context"
	"testing"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/model"
)

func TestRecordAndListEvents(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := newStash(t, database, 1)
	other := newStash(t, database, 2)

	for i, id := range []string{"e1", "e2", "e3"} {
		err := RecordEvent(ctx, database, model.Event{
			ID: id, StashID: s.ID, Kind: model.EventItemAcquired,
			ActorID: 1, BeneficiaryID: 1, ItemID: 5, Quantity: 1, CreatedAt: int64(100 + i),
		})
		if err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}
	RecordEvent(ctx, database, model.Event{ID: "x", StashID: other.ID, Kind: model.EventItemAcquired, CreatedAt: 1})

	events, err := ListEvents(ctx, database, s.ID, 2)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "e3" || events[1].ID != "e2" {
		t.Errorf("expected newest first, got %s, %s", events[0].ID, events[1].ID)
	}

	all, _ := ListEvents(ctx, database, s.ID, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 events with default limit, got %d", len(all))
	}
}
