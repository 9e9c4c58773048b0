package ledger

import (
	"github.com/erazemk/stash/internal/model"
)

// Holdings maps item ids to the quantity a user holds. A missing entry or a
// nil value means the item was never acquired.
type Holdings map[int64]*int

func (h Holdings) held(itemID int64) int {
	if q := h[itemID]; q != nil {
		return *q
	}
	return 0
}

// Change is the effect of a trade on one item.
type Change struct {
	ItemID   int64
	Delta    int
	Quantity int
}

// Outcome is the result of applying a trade to a set of holdings.
type Outcome struct {
	Decision
	Lost   []Change
	Gained []Change

	// Quantities holds the final quantity of every item the trade touched.
	Quantities map[int64]int
}

// Required returns the number of units the loss side demands per item.
// A nil quantity demands one unit.
func Required(items []model.TradeItem) map[int64]int {
	required := make(map[int64]int)
	for _, ti := range items {
		if ti.GainLoss != model.TradeLoss {
			continue
		}
		if ti.Quantity == nil {
			required[ti.ItemID] += 1
		} else {
			required[ti.ItemID] += *ti.Quantity
		}
	}
	return required
}

// CanTrade reports whether holdings cover every loss-side requirement.
func CanTrade(items []model.TradeItem, holdings Holdings) Decision {
	for itemID, need := range Required(items) {
		if holdings.held(itemID) < need {
			return deny(ReasonInsufficient)
		}
	}
	return allow()
}

// ApplyTrade computes the holdings after the trade. Losses are applied first,
// floored at zero; a nil loss quantity surrenders everything held. Gains are
// applied next; a nil gain quantity grants one unit. holdings is not modified.
// When the trade is not allowed the outcome carries the denial and no changes.
func ApplyTrade(items []model.TradeItem, holdings Holdings) Outcome {
	decision := CanTrade(items, holdings)
	if !decision.Allowed {
		return Outcome{Decision: decision}
	}

	out := Outcome{Decision: decision, Quantities: make(map[int64]int)}
	current := func(itemID int64) int {
		if q, ok := out.Quantities[itemID]; ok {
			return q
		}
		return holdings.held(itemID)
	}

	for _, ti := range items {
		if ti.GainLoss != model.TradeLoss {
			continue
		}
		before := current(ti.ItemID)
		after := 0
		if ti.Quantity != nil {
			after = max(before-*ti.Quantity, 0)
		}
		out.Quantities[ti.ItemID] = after
		out.Lost = append(out.Lost, Change{ItemID: ti.ItemID, Delta: after - before, Quantity: after})
	}

	for _, ti := range items {
		if ti.GainLoss != model.TradeGain {
			continue
		}
		add := 1
		if ti.Quantity != nil {
			add = *ti.Quantity
		}
		after := current(ti.ItemID) + add
		out.Quantities[ti.ItemID] = after
		out.Gained = append(out.Gained, Change{ItemID: ti.ItemID, Delta: add, Quantity: after})
	}

	return out
}
