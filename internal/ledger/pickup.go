package ledger

import (
	"time"

	"github.com/erazemk/stash/internal/model"
)

// CanPickup decides whether a user with the given history may collect from
// drop at now. A nil pickup means the user never collected from it.
func CanPickup(drop model.Drop, pickup *model.DropPickup, now time.Time) Decision {
	var count int
	var last *int64
	if pickup != nil {
		count = pickup.PickupCount
		last = pickup.LastPickup
	}

	if drop.MaxPickup != nil && count >= *drop.MaxPickup {
		return deny(ReasonMaxPickups)
	}
	if interval := drop.Interval(); interval > 0 && last != nil && now.Before(time.Unix(*last, 0).Add(interval)) {
		return deny(ReasonCoolingDown)
	}
	return allow()
}

// NextPickupAt returns when the cooldown after the last pickup ends, or the
// zero time when no cooldown applies.
func NextPickupAt(drop model.Drop, pickup *model.DropPickup) time.Time {
	if drop.Interval() <= 0 || pickup == nil || pickup.LastPickup == nil {
		return time.Time{}
	}
	return time.Unix(*pickup.LastPickup, 0).Add(drop.Interval())
}

// ApplyPickup records one pickup at now: the history count goes up by one and
// the user's holding grows by one unit, starting from one when never acquired.
func ApplyPickup(pickup *model.DropPickup, holding *model.UserItem, now time.Time) {
	ts := now.Unix()
	pickup.PickupCount++
	pickup.LastPickup = &ts

	qty := holding.Held() + 1
	holding.Quantity = &qty
}
