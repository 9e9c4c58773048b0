package backup

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/hashcode"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

func intPtr(n int) *int { return &n }

// seed creates a stash with two items, a drop whose snippet is embedded in
// an item detail, a trade and some user data.
func seed(t *testing.T, database *sqlx.DB) (*model.Stash, *model.Drop) {
	t.Helper()
	ctx := context.Background()

	s, err := store.CreateStash(ctx, database, 1, "Physics")
	if err != nil {
		t.Fatal(err)
	}
	coin, err := store.CreateItem(ctx, database, s.ID, model.ItemInput{Name: "Coin", MaxNumber: intPtr(10)})
	if err != nil {
		t.Fatal(err)
	}
	d, err := store.CreateDrop(ctx, database, model.DropInput{ItemID: coin.ID, Name: "Chest", MaxPickup: intPtr(3), PickupInterval: 60, HashCode: "abc123"})
	if err != nil {
		t.Fatal(err)
	}
	detail := "Find it here: [stashdrop:" + strconv.FormatInt(d.ID, 10) + ":abc123:the chest]"
	badge, err := store.CreateItem(ctx, database, s.ID, model.ItemInput{Name: "Badge", Detail: detail})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetItemImage(ctx, database, badge.ID, []byte{0x89, 'P', 'N', 'G'}, "image/png"); err != nil {
		t.Fatal(err)
	}

	tr, err := store.CreateTrade(ctx, database, s.ID, model.TradeInput{Name: "Exchange", HashCode: "trd001"})
	if err != nil {
		t.Fatal(err)
	}
	store.AddTradeItem(ctx, database, tr.ID, model.TradeItemInput{ItemID: coin.ID, Quantity: intPtr(3)})
	store.AddTradeItem(ctx, database, tr.ID, model.TradeItemInput{ItemID: badge.ID, GainLoss: model.TradeGain})

	last := int64(1_700_000_000)
	store.SetUserItem(ctx, database, coin.ID, 42, intPtr(2))
	store.SetDropPickup(ctx, database, d.ID, 42, 2, &last)
	return s, d
}

func TestExport(t *testing.T) {
	database := db.NewTestDB(t)
	s, d := seed(t, database)

	doc, err := Export(context.Background(), database, s.ID, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.Version != Version || doc.Stash.Name != "Physics" {
		t.Errorf("unexpected header: %+v", doc)
	}
	if len(doc.Items) != 2 || len(doc.Trades) != 1 {
		t.Fatalf("expected 2 items and 1 trade, got %d and %d", len(doc.Items), len(doc.Trades))
	}
	var drops int
	for _, it := range doc.Items {
		drops += len(it.Drops)
		if it.Name == "Badge" && (it.Image == "" || it.ImageMime != "image/png") {
			t.Error("badge image not exported")
		}
	}
	if drops != 1 {
		t.Errorf("expected 1 drop, got %d", drops)
	}
	if len(doc.Trades[0].Items) != 2 {
		t.Errorf("expected 2 trade lines, got %d", len(doc.Trades[0].Items))
	}
	if doc.UserItems != nil || doc.Pickups != nil {
		t.Error("user data exported without being asked for")
	}

	doc, _ = Export(context.Background(), database, s.ID, true)
	if len(doc.UserItems) != 1 || len(doc.Pickups) != 1 || doc.Pickups[0].DropID != d.ID {
		t.Errorf("unexpected user data: %+v %+v", doc.UserItems, doc.Pickups)
	}

	if _, err := Export(context.Background(), database, 999, false); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteRead(t *testing.T) {
	database := db.NewTestDB(t)
	s, _ := seed(t, database)
	doc, err := Export(context.Background(), database, s.ID, true)
	if err != nil {
		t.Fatal(err)
	}

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		if err := Write(&buf, doc, compress); err != nil {
			t.Fatalf("Write(compress=%v): %v", compress, err)
		}
		if !compress && !strings.Contains(buf.String(), "name: Physics") {
			t.Errorf("expected plain YAML, got:\n%s", buf.String())
		}
		if compress && !bytes.HasPrefix(buf.Bytes(), zstdMagic) {
			t.Error("expected zstd frame")
		}

		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read(compress=%v): %v", compress, err)
		}
		if got.Stash.Name != doc.Stash.Name || len(got.Items) != len(doc.Items) || len(got.Pickups) != 1 {
			t.Errorf("round trip lost data: %+v", got)
		}
	}
}

func TestReadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"no stash", "version: 1\n"},
		{"wrong version", "version: 2\nstash: {name: X}\n"},
		{"bad hashcode", "version: 1\nstash: {name: X}\ntrades:\n  - {id: 1, name: T, hashcode: 'no-no'}\n"},
		{"zero max pickup", "version: 1\nstash: {name: X}\nitems:\n  - id: 1\n    name: I\n    drops:\n      - {id: 1, name: D, hashcode: abc123, max_pickup: 0}\n"},
		{"not yaml", "version: [1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRestore(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s, d := seed(t, database)
	doc, err := Export(ctx, database, s.ID, true)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Restore(ctx, database, 2, doc)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.Stash.CourseID != 2 || res.Stash.ID == s.ID {
		t.Fatalf("unexpected stash: %+v", res.Stash)
	}

	var newDropID int64
	for old, mapped := range res.Drops {
		if old.ID != d.ID || mapped.HashCode != "abc123" {
			t.Errorf("unexpected mapping %+v -> %+v", old, mapped)
		}
		newDropID = mapped.ID
	}
	if newDropID == 0 || newDropID == d.ID {
		t.Fatalf("drop not remapped: %d", newDropID)
	}

	items, _ := store.ListItems(ctx, database, res.Stash.ID)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	var badge, coin model.Item
	for _, it := range items {
		if it.Name == "Badge" {
			badge = it
		} else {
			coin = it
		}
	}
	want := "[stashdrop:" + strconv.FormatInt(newDropID, 10) + ":abc123:the chest]"
	if !strings.Contains(badge.Detail, want) {
		t.Errorf("detail not rewritten: %q", badge.Detail)
	}
	if data, mime, _ := store.GetItemImage(ctx, database, badge.ID); len(data) != 4 || mime != "image/png" {
		t.Errorf("image not restored: %d bytes, %q", len(data), mime)
	}
	if coin.MaxNumber == nil || *coin.MaxNumber != 10 {
		t.Errorf("max number not restored: %v", coin.MaxNumber)
	}

	trades, _ := store.ListTrades(ctx, database, res.Stash.ID)
	if len(trades) != 1 || trades[0].HashCode != "trd001" {
		t.Fatalf("unexpected trades: %+v", trades)
	}
	lines, _ := store.ListTradeItems(ctx, database, trades[0].ID)
	if len(lines) != 2 {
		t.Errorf("expected 2 trade lines, got %d", len(lines))
	}

	ui, _ := store.GetUserItem(ctx, database, coin.ID, 42)
	if ui.Held() != 2 {
		t.Errorf("expected 2 coins restored, got %d", ui.Held())
	}
	p, _ := store.GetDropPickup(ctx, database, newDropID, 42)
	if p == nil || p.PickupCount != 2 {
		t.Errorf("pickup history not restored: %+v", p)
	}

	if _, err := Restore(ctx, database, 2, doc); !errors.Is(err, model.ErrStashExists) {
		t.Errorf("expected ErrStashExists, got %v", err)
	}
}

func TestRestoreReallocatesHashCodes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := &Document{
		Version: Version,
		Stash:   Stash{Name: "Copy"},
		Items: []Item{{
			ID:   1,
			Name: "Coin",
			Drops: []Drop{
				{ID: 1, Name: "First", HashCode: "same01"},
				{ID: 2, Name: "Second", HashCode: "same01"},
				{ID: 3, Name: "Legacy", HashCode: "abc"},
			},
		}},
	}

	res, err := Restore(ctx, database, 5, doc)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	codes := make(map[string]bool)
	for old, mapped := range res.Drops {
		if codes[mapped.HashCode] {
			t.Errorf("hashcode %q used twice", mapped.HashCode)
		}
		codes[mapped.HashCode] = true
		if !hashcode.Valid(mapped.HashCode) {
			t.Errorf("drop %d got invalid hashcode %q", old.ID, mapped.HashCode)
		}
	}
	if !codes["same01"] {
		t.Error("first occurrence of a hashcode should be kept")
	}
	if len(res.Drops) != 3 {
		t.Errorf("expected 3 mapped drops, got %d", len(res.Drops))
	}
}

func TestRestoreRollsBackOnError(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := &Document{
		Version: Version,
		Stash:   Stash{Name: "Broken"},
		Items:   []Item{{ID: 1, Name: "Coin"}},
		Trades:  []Trade{{ID: 1, Name: "T", HashCode: "trd001", Items: []TradeItem{{ItemID: 99}}}},
	}
	if _, err := Restore(ctx, database, 7, doc); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if s, _ := store.GetStashByCourse(ctx, database, 7); s != nil {
		t.Error("failed restore left a stash behind")
	}
}
