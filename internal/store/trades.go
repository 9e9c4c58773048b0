package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/ledger"
	"github.com/erazemk/stash/internal/model"
)

const tradeColumns = `id, stash_id, name, loss_title, gain_title, hashcode`

const tradeItemSelect = `SELECT ti.id, ti.trade_id, ti.item_id, ti.quantity, ti.gain_loss, i.name AS item_name
	FROM trade_items ti JOIN items i ON i.id = ti.item_id`

// TradeResult is the outcome of a trade attempt. Gained and Lost are empty
// when the trade was denied.
type TradeResult struct {
	ledger.Decision
	Gained []model.ItemChange `json:"gained"`
	Lost   []model.ItemChange `json:"lost"`
}

// CreateTrade creates a trade. in.HashCode must already be allocated; a code
// used by another trade of the stash fails with a hashcode field error.
func CreateTrade(ctx context.Context, q sqlx.ExtContext, stashID int64, in model.TradeInput) (*model.Trade, error) {
	id, err := insertID(ctx, q,
		`INSERT INTO trades (stash_id, name, loss_title, gain_title, hashcode) VALUES (?, ?, ?, ?, ?)`,
		stashID, in.Name, in.LossTitle, in.GainTitle, in.HashCode,
	)
	if db.IsUniqueViolation(err) {
		return nil, hashCodeTaken()
	}
	if err != nil {
		return nil, fmt.Errorf("creating trade: %w", err)
	}

	return GetTrade(ctx, q, id)
}

// GetTrade returns a trade by ID.
func GetTrade(ctx context.Context, q sqlx.ExtContext, id int64) (*model.Trade, error) {
	t, err := getOne[model.Trade](ctx, q, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting trade: %w", err)
	}
	return t, nil
}

// ListTrades returns the trades of a stash.
func ListTrades(ctx context.Context, q sqlx.ExtContext, stashID int64) ([]model.Trade, error) {
	trades, err := selectAll[model.Trade](ctx, q,
		`SELECT `+tradeColumns+` FROM trades WHERE stash_id = ? ORDER BY name, id`, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	return trades, nil
}

// UpdateTrade replaces a trade's fields.
func UpdateTrade(ctx context.Context, q sqlx.ExtContext, id int64, in model.TradeInput) error {
	_, err := exec(ctx, q,
		`UPDATE trades SET name = ?, loss_title = ?, gain_title = ?, hashcode = ? WHERE id = ?`,
		in.Name, in.LossTitle, in.GainTitle, in.HashCode, id,
	)
	if db.IsUniqueViolation(err) {
		return hashCodeTaken()
	}
	if err != nil {
		return fmt.Errorf("updating trade: %w", err)
	}
	return nil
}

// DeleteTrade deletes a trade and its trade items.
func DeleteTrade(ctx context.Context, q sqlx.ExtContext, id int64) error {
	if _, err := exec(ctx, q, `DELETE FROM trades WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting trade: %w", err)
	}
	return nil
}

// TradeHashCodeExists reports whether another trade in the stash already
// uses code. excludeID names the trade being edited, zero for none.
func TradeHashCodeExists(ctx context.Context, q sqlx.ExtContext, stashID int64, code string, excludeID int64) (bool, error) {
	found, err := exists(ctx, q,
		`SELECT COUNT(*) FROM trades WHERE stash_id = ? AND hashcode = ? AND id <> ?`,
		stashID, code, excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("checking trade hashcode: %w", err)
	}
	return found, nil
}

// FindTradeByHashPrefix returns the single trade in the stash whose hashcode
// starts with prefix. See FindDropByHashPrefix.
func FindTradeByHashPrefix(ctx context.Context, q sqlx.ExtContext, stashID int64, prefix string) (*model.Trade, error) {
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}

	trades, err := selectAll[model.Trade](ctx, q,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE stash_id = ? AND substr(hashcode, 1, ?) = ? ORDER BY id LIMIT 2`,
		stashID, len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("finding trade by prefix: %w", err)
	}
	return single(trades)
}

// AddTradeItem adds a line to a trade.
func AddTradeItem(ctx context.Context, q sqlx.ExtContext, tradeID int64, in model.TradeItemInput) (*model.TradeItem, error) {
	id, err := insertID(ctx, q,
		`INSERT INTO trade_items (trade_id, item_id, quantity, gain_loss) VALUES (?, ?, ?, ?)`,
		tradeID, in.ItemID, in.Quantity, in.GainLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("adding trade item: %w", err)
	}

	return GetTradeItem(ctx, q, id)
}

// GetTradeItem returns a trade item by ID.
func GetTradeItem(ctx context.Context, q sqlx.ExtContext, id int64) (*model.TradeItem, error) {
	ti, err := getOne[model.TradeItem](ctx, q, tradeItemSelect+` WHERE ti.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting trade item: %w", err)
	}
	return ti, nil
}

// ListTradeItems returns the lines of a trade, loss side first.
func ListTradeItems(ctx context.Context, q sqlx.ExtContext, tradeID int64) ([]model.TradeItem, error) {
	items, err := selectAll[model.TradeItem](ctx, q,
		tradeItemSelect+` WHERE ti.trade_id = ? ORDER BY ti.gain_loss, ti.id`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("listing trade items: %w", err)
	}
	return items, nil
}

// DeleteTradeItem removes a line from a trade.
func DeleteTradeItem(ctx context.Context, q sqlx.ExtContext, id int64) error {
	if _, err := exec(ctx, q, `DELETE FROM trade_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting trade item: %w", err)
	}
	return nil
}

// UserHoldings returns the user's holdings of every item the trade mentions,
// without creating any rows.
func UserHoldings(ctx context.Context, q sqlx.ExtContext, items []model.TradeItem, userID int64) (ledger.Holdings, error) {
	holdings := make(ledger.Holdings)
	for _, itemID := range tradeItemIDs(items) {
		ui, err := GetUserItem(ctx, q, itemID, userID)
		if err != nil {
			return nil, err
		}
		if ui != nil {
			holdings[itemID] = ui.Quantity
		}
	}
	return holdings, nil
}

// ExecuteTrade performs a trade for a user. Every holding the trade touches
// is locked in item id order, checked and updated in one transaction.
// A denial is returned as a result and leaves the database untouched.
// It fails with model.ErrNotFound when the trade does not exist.
func ExecuteTrade(ctx context.Context, database *sqlx.DB, tradeID, userID int64) (*TradeResult, error) {
	var res TradeResult

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		trade, err := GetTrade(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if trade == nil {
			return model.ErrNotFound
		}

		items, err := ListTradeItems(ctx, tx, tradeID)
		if err != nil {
			return err
		}

		holdings := make(ledger.Holdings)
		rows := make(map[int64]*model.UserItem)
		for _, itemID := range tradeItemIDs(items) {
			ui, err := lockUserItem(ctx, tx, itemID, userID)
			if err != nil {
				return err
			}
			rows[itemID] = ui
			holdings[itemID] = ui.Quantity
		}

		outcome := ledger.ApplyTrade(items, holdings)
		res.Decision = outcome.Decision
		if !outcome.Allowed {
			return errDenied
		}

		for itemID, qty := range outcome.Quantities {
			if err := updateUserItem(ctx, tx, rows[itemID].ID, qty); err != nil {
				return err
			}
		}

		names := make(map[int64]string, len(items))
		for _, ti := range items {
			names[ti.ItemID] = ti.ItemName
		}
		// Each change carries the quantity right after it was applied, so an
		// item on both sides reports its loss before the gain.
		change := func(c ledger.Change) model.ItemChange {
			qty := c.Quantity
			ui := *rows[c.ItemID]
			ui.Quantity = &qty
			ui.ItemName = names[c.ItemID]
			return model.ItemChange{ItemID: c.ItemID, ItemName: ui.ItemName, Delta: c.Delta, UserItem: ui}
		}
		for _, c := range outcome.Lost {
			res.Lost = append(res.Lost, change(c))
		}
		for _, c := range outcome.Gained {
			res.Gained = append(res.Gained, change(c))
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDenied) {
		return nil, err
	}

	return &res, nil
}

// tradeItemIDs returns the distinct item ids of a trade in ascending order,
// the order in which their holdings are locked.
func tradeItemIDs(items []model.TradeItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, ti := range items {
		ids = append(ids, ti.ItemID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
