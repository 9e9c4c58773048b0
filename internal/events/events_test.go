package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

type recordingSink struct {
	events []model.Event
	err    error
}

func (s *recordingSink) Emit(_ context.Context, e model.Event) error {
	s.events = append(s.events, e)
	return s.err
}

func TestItemAcquired(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	e := ItemAcquired(1, 2, 3, 4, 5, at)

	if e.Kind != model.EventItemAcquired || e.StashID != 1 || e.ActorID != 2 ||
		e.BeneficiaryID != 3 || e.ItemID != 4 || e.Quantity != 5 || e.CreatedAt != at.Unix() {
		t.Errorf("unexpected event: %+v", e)
	}
	if len(e.ID) != 36 {
		t.Errorf("expected a UUID id, got %q", e.ID)
	}
	if other := ItemAcquired(1, 2, 3, 4, 5, at); other.ID == e.ID {
		t.Error("expected unique event ids")
	}
}

func TestMultiEmitsToAllSinks(t *testing.T) {
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	m := Multi{failing, ok}

	err := m.Emit(context.Background(), ItemAcquired(1, 1, 1, 1, 1, time.Now()))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(ok.events) != 1 {
		t.Error("a failing sink stopped later sinks")
	}
}

func TestStoreSink(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s, err := store.CreateStash(ctx, database, 1, "Stash")
	if err != nil {
		t.Fatal(err)
	}

	sink := StoreSink{DB: database}
	if err := sink.Emit(ctx, ItemAcquired(s.ID, 1, 1, 9, 1, time.Now())); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	events, _ := store.ListEvents(ctx, database, s.ID, 10)
	if len(events) != 1 || events[0].ItemID != 9 {
		t.Errorf("unexpected audit trail: %+v", events)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	sink.Emit(context.Background(), ItemAcquired(1, 2, 2, 4, 1, time.Now()))

	out := buf.String()
	if !strings.Contains(out, "kind=item_acquired") || !strings.Contains(out, "item=4") {
		t.Errorf("unexpected log output: %s", out)
	}
}
